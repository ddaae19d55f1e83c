// Package genai drafts clan constitution sections with a hosted Gemini model
// on Vertex AI.
package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/template"

	"github.com/clanforge/clanhub/internal/app/system/inputval"
	"github.com/clanforge/clanhub/internal/app/system/limits"
	"github.com/clanforge/clanhub/internal/domain/models"
	"go.uber.org/zap"
	"golang.org/x/oauth2/google"
)

const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

var (
	// ErrNotConfigured means no project was configured.
	ErrNotConfigured = errors.New("constitution builder is not configured")
	// ErrBadResponse means the model answered with something that is not a
	// usable section.
	ErrBadResponse = errors.New("model returned an unusable section")
)

// InvalidInputError carries the validation message for the caller.
type InvalidInputError struct{ Message string }

func (e *InvalidInputError) Error() string { return e.Message }

// Config selects the Vertex AI model.
type Config struct {
	Project  string
	Location string // e.g. us-central1
	Model    string // e.g. gemini-2.0-flash
	Endpoint string // overrides the regional endpoint (tests)
}

// Client calls generateContent.
type Client struct {
	http   *http.Client
	url    string
	logger *zap.Logger
}

// New builds a Client authenticated with Application Default Credentials.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.Project == "" {
		return nil, ErrNotConfigured
	}
	hc, err := google.DefaultClient(ctx, cloudPlatformScope)
	if err != nil {
		return nil, fmt.Errorf("google credentials: %w", err)
	}
	return NewWithHTTPClient(cfg, hc, logger), nil
}

// NewWithHTTPClient builds a Client on an existing HTTP client.
func NewWithHTTPClient(cfg Config, hc *http.Client, logger *zap.Logger) *Client {
	if cfg.Location == "" {
		cfg.Location = "us-central1"
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	base := cfg.Endpoint
	if base == "" {
		base = fmt.Sprintf("https://%s-aiplatform.googleapis.com", cfg.Location)
	}
	url := fmt.Sprintf("%s/v1/projects/%s/locations/%s/publishers/google/models/%s:generateContent",
		strings.TrimRight(base, "/"), cfg.Project, cfg.Location, cfg.Model)
	return &Client{http: hc, url: url, logger: logger}
}

var promptTmpl = template.Must(template.New("prompt").Parse(
	`You are helping the leadership of an eSports clan write their clan constitution.
Draft the "{{.SectionType}}" section for the clan "{{.ClanName}}", which plays {{.Game}}.
{{- if .AdditionalDetails}}
Take these details from the leadership into account:
{{.AdditionalDetails}}
{{- end}}
Write clear, enforceable rules in plain language. Use short paragraphs or numbered points.
Answer with a JSON object containing "sectionTitle" and "sectionContent".`))

// Prompt renders the instruction sent to the model.
func Prompt(in models.ConstitutionSectionInput) (string, error) {
	var buf bytes.Buffer
	if err := promptTmpl.Execute(&buf, in); err != nil {
		return "", err
	}
	return buf.String(), nil
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generationConfig struct {
	ResponseMimeType string         `json:"responseMimeType"`
	ResponseSchema   map[string]any `json:"responseSchema"`
	Temperature      float64        `json:"temperature"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
}

// draft is the model's JSON output.
type draft struct {
	SectionTitle   string `json:"sectionTitle"`
	SectionContent string `json:"sectionContent"`
}

var sectionSchema = map[string]any{
	"type": "OBJECT",
	"properties": map[string]any{
		"sectionTitle":   map[string]any{"type": "STRING"},
		"sectionContent": map[string]any{"type": "STRING"},
	},
	"required": []string{"sectionTitle", "sectionContent"},
}

// DraftSection validates in, makes one model call and validates the answer.
// There is no retry.
func (c *Client) DraftSection(ctx context.Context, in models.ConstitutionSectionInput) (models.ConstitutionSection, error) {
	if res := inputval.Validate(in); res.HasErrors() {
		return models.ConstitutionSection{}, &InvalidInputError{Message: res.First()}
	}

	prompt, err := Prompt(in)
	if err != nil {
		return models.ConstitutionSection{}, err
	}
	body, err := json.Marshal(generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   sectionSchema,
			Temperature:      0.7,
		},
	})
	if err != nil {
		return models.ConstitutionSection{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return models.ConstitutionSection{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return models.ConstitutionSection{}, fmt.Errorf("generateContent: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, limits.MaxModelResponse))
	if err != nil {
		return models.ConstitutionSection{}, err
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("generateContent failed",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", raw))
		return models.ConstitutionSection{}, fmt.Errorf("generateContent: status %d", resp.StatusCode)
	}

	return parseSection(raw)
}

func parseSection(raw []byte) (models.ConstitutionSection, error) {
	var gr generateResponse
	if err := json.Unmarshal(raw, &gr); err != nil {
		return models.ConstitutionSection{}, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		return models.ConstitutionSection{}, fmt.Errorf("%w: no candidates", ErrBadResponse)
	}

	var text strings.Builder
	for _, p := range gr.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}

	var d draft
	if err := json.Unmarshal([]byte(stripFence(text.String())), &d); err != nil {
		return models.ConstitutionSection{}, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	out := models.ConstitutionSection{
		SectionTitle:   strings.TrimSpace(d.SectionTitle),
		SectionContent: strings.TrimSpace(d.SectionContent),
	}
	if res := inputval.Validate(out); res.HasErrors() {
		return models.ConstitutionSection{}, fmt.Errorf("%w: %s", ErrBadResponse, res.All())
	}
	return out, nil
}

// stripFence removes a ```json fence some models wrap around JSON output.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
