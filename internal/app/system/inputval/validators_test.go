package inputval

import "testing"

func TestIsValidHTTPURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"http://example.com", true},
		{"https://example.com/path?query=1", true},
		{"http://localhost:8080", true},
		{"  https://example.com  ", true},

		{"", false},
		{"ftp://example.com", false},
		{"mailto:user@example.com", false},
		{"example.com", false},
		{"//example.com", false},
		{"not a url", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			if got := IsValidHTTPURL(tt.url); got != tt.want {
				t.Errorf("IsValidHTTPURL(%q) = %v, want %v", tt.url, got, tt.want)
			}
		})
	}
}

func TestIsValidObjectID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"507f1f77bcf86cd799439011", true},
		{"FFFFFFFFFFFFFFFFFFFFFFFF", true},
		{"  507f1f77bcf86cd799439011  ", true},

		{"", false},
		{"507f1f77bcf86cd79943901", false},
		{"507f1f77bcf86cd79943901g", false},
		{"12345", false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			if got := IsValidObjectID(tt.id); got != tt.want {
				t.Errorf("IsValidObjectID(%q) = %v, want %v", tt.id, got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	type signup struct {
		Username string `json:"username" validate:"required,username" label:"Username"`
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required,min=8,max=72" label:"Password"`
	}

	tests := []struct {
		name      string
		input     signup
		wantFirst string
	}{
		{
			name:  "valid input",
			input: signup{Username: "ace", Email: "ace@clan.gg", Password: "hunter2hunter2"},
		},
		{
			name:      "missing username",
			input:     signup{Email: "ace@clan.gg", Password: "hunter2hunter2"},
			wantFirst: "Username is required.",
		},
		{
			name:      "bad username",
			input:     signup{Username: "a b", Email: "ace@clan.gg", Password: "hunter2hunter2"},
			wantFirst: "Usernames are 3 to 20 characters: letters, numbers and underscores.",
		},
		{
			name:      "invalid email",
			input:     signup{Username: "ace", Email: "nope", Password: "hunter2hunter2"},
			wantFirst: "A valid email address is required.",
		},
		{
			name:      "short password",
			input:     signup{Username: "ace", Email: "ace@clan.gg", Password: "short"},
			wantFirst: "Password must be at least 8 characters.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(tt.input)
			if result.HasErrors() != (tt.wantFirst != "") {
				t.Fatalf("HasErrors = %v, errors: %v", result.HasErrors(), result.Errors)
			}
			if result.First() != tt.wantFirst {
				t.Errorf("First() = %q, want %q", result.First(), tt.wantFirst)
			}
		})
	}
}

func TestValidate_CustomRules(t *testing.T) {
	type shortInput struct {
		VideoURL string `json:"video_url" validate:"required,videourl"`
		Caption  string `json:"caption" validate:"max=280" label:"Caption"`
	}

	if r := Validate(shortInput{VideoURL: "https://youtu.be/dQw4w9WgXcQ"}); r.HasErrors() {
		t.Errorf("expected youtube link to pass: %v", r.Errors)
	}
	if r := Validate(shortInput{VideoURL: "https://cdn.clan.gg/clip.MP4"}); r.HasErrors() {
		t.Errorf("expected mp4 link to pass: %v", r.Errors)
	}
	r := Validate(shortInput{VideoURL: "https://cdn.clan.gg/clip.png"})
	if r.First() != "Invalid video URL." {
		t.Errorf("First() = %q, want %q", r.First(), "Invalid video URL.")
	}
}

func TestResult_All(t *testing.T) {
	r := &Result{Errors: []FieldError{{Message: "Error 1"}, {Message: "Error 2"}}}
	if got := r.All(); got != "Error 1; Error 2" {
		t.Errorf("All() = %q", got)
	}
	if got := (&Result{}).All(); got != "" {
		t.Errorf("All() on empty = %q", got)
	}
}
