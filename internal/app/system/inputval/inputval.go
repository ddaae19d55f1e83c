// Package inputval validates request payloads with go-playground/validator
// and turns failures into user-facing messages.
//
// Struct fields use `validate` tags for rules and an optional `label` tag
// for the name shown in messages (defaults to the json name).
package inputval

import (
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"reflect"
	"regexp"
	"strings"

	"github.com/clanforge/clanhub/internal/app/system/mediaurl"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FieldError is one failed rule.
type FieldError struct {
	Field   string
	Tag     string
	Message string
}

// Result collects FieldErrors in struct order.
type Result struct {
	Errors []FieldError
}

// HasErrors reports whether any rule failed.
func (r *Result) HasErrors() bool { return len(r.Errors) > 0 }

// First is the first message, or "".
func (r *Result) First() string {
	if len(r.Errors) == 0 {
		return ""
	}
	return r.Errors[0].Message
}

// All joins every message with "; ".
func (r *Result) All() string {
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		msgs = append(msgs, e.Message)
	}
	return strings.Join(msgs, "; ")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if l := f.Tag.Get("label"); l != "" {
			return l
		}
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	rules := map[string]func(string) bool{
		"email":    IsValidEmail,
		"username": IsValidUsername,
		"httpurl":  IsValidHTTPURL,
		"objectid": IsValidObjectID,
		"videourl": mediaurl.IsVideoLink,
		"notblank": func(s string) bool { return strings.TrimSpace(s) != "" },
	}
	for tag, fn := range rules {
		fn := fn
		_ = v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return fn(fl.Field().String())
		})
	}
	return v
}

// Validate runs the struct's rules.
func Validate(s any) *Result {
	res := &Result{}
	err := validate.Struct(s)
	if err == nil {
		return res
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		res.Errors = append(res.Errors, FieldError{Message: "Invalid input."})
		return res
	}
	for _, fe := range verrs {
		res.Errors = append(res.Errors, FieldError{
			Field:   fe.StructField(),
			Tag:     fe.Tag(),
			Message: message(fe),
		})
	}
	return res
}

func message(fe validator.FieldError) string {
	label := fe.Field()
	switch fe.Tag() {
	case "required", "notblank":
		return label + " is required."
	case "max":
		return fmt.Sprintf("%s must be at most %s characters.", label, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters.", label, fe.Param())
	case "email":
		return "A valid email address is required."
	case "username":
		return "Usernames are 3 to 20 characters: letters, numbers and underscores."
	case "videourl":
		return "Invalid video URL."
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s.", label, fe.Param())
	default:
		return label + " is not valid."
	}
}

// IsValidEmail accepts a bare addr-spec (no display name). Single-label
// domains such as localhost are allowed.
func IsValidEmail(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, " \t\r\n<>") {
		return false
	}
	at := strings.LastIndex(s, "@")
	if at <= 0 || at == len(s)-1 {
		return false
	}
	for _, part := range []string{s[:at], s[at+1:]} {
		if strings.HasPrefix(part, ".") || strings.HasSuffix(part, ".") || strings.Contains(part, "..") {
			return false
		}
	}
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

var usernameRE = regexp.MustCompile(`^[A-Za-z0-9_]{3,20}$`)

// IsValidUsername checks length 3 to 20 and [A-Za-z0-9_]. Case is kept for
// display; uniqueness is on the folded form.
func IsValidUsername(s string) bool {
	return usernameRE.MatchString(s)
}

// IsValidHTTPURL accepts absolute http(s) URLs with a host.
func IsValidHTTPURL(s string) bool {
	s = strings.TrimSpace(s)
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

// IsValidObjectID accepts 24 hex characters.
func IsValidObjectID(s string) bool {
	_, err := primitive.ObjectIDFromHex(strings.ToLower(strings.TrimSpace(s)))
	return err == nil
}
