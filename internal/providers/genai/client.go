package genai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/edytjahyadi/AI-Fashion/internal/domain"
)

// Options controls how the Gemini client is configured.
type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// Client is a thin facade over the Gemini generateContent endpoint for the
// virtual try-on call: two inline source images plus one text instruction in,
// one inline composite image out. The client performs no retries; retry is
// the caller's explicit regenerate.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient constructs a Gemini client with sane defaults. Callers may
// provide a nil HTTP client; one with a generation-sized timeout is created.
func NewClient(opts Options) *Client {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	model := opts.Model
	if model == "" {
		model = "gemini-2.5-flash-image"
	}
	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		model:      model,
		httpClient: client,
		logger:     opts.Logger,
	}
}

// Model returns the configured Gemini model identifier.
func (c *Client) Model() string {
	return c.model
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts,omitempty"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type geminiGenerationConfig struct {
	CandidateCount     int      `json:"candidateCount,omitempty"`
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type geminiGenerateContentRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}

type geminiGenerateContentResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
	} `json:"error"`
}

// TryOn sends the person photo, the garment photo and the pose instruction to
// the backend and returns the synthesized composite image. Malformed source
// encodings fail before any network call.
func (c *Client) TryOn(ctx context.Context, person, garment domain.EncodedImage, instruction string) (domain.EncodedImage, error) {
	if err := person.Validate(); err != nil {
		return domain.EncodedImage{}, fmt.Errorf("person image: %w", err)
	}
	if err := garment.Validate(); err != nil {
		return domain.EncodedImage{}, fmt.Errorf("garment image: %w", err)
	}

	payload := geminiGenerateContentRequest{
		Contents: []geminiContent{{
			Role: "user",
			Parts: []geminiPart{
				{InlineData: inlinePart(person)},
				{InlineData: inlinePart(garment)},
				{Text: instruction},
			},
		}},
		GenerationConfig: &geminiGenerationConfig{
			CandidateCount:     1,
			ResponseModalities: []string{"TEXT", "IMAGE"},
		},
	}

	var response geminiGenerateContentResponse
	if err := c.invoke(ctx, fmt.Sprintf("/models/%s:generateContent", url.PathEscape(c.model)), payload, &response); err != nil {
		return domain.EncodedImage{}, err
	}

	img, refusal := extractImage(response)
	if img == nil {
		reason := refusal
		if reason == "" {
			reason = "no image returned"
		}
		return domain.EncodedImage{}, fmt.Errorf("%w: %s", domain.ErrBackendRefused, reason)
	}

	c.logger.Debug().
		Str("model", c.model).
		Str("mime", img.MIME).
		Int("bytes", len(img.Data)).
		Msg("genai: try-on image generated")

	return *img, nil
}

func inlinePart(img domain.EncodedImage) *geminiInlineData {
	return &geminiInlineData{
		MimeType: img.MIME,
		Data:     base64.StdEncoding.EncodeToString(img.Data),
	}
}

// extractImage scans candidates for the first inline image part. When none is
// present the joined text parts become the refusal reason.
func extractImage(resp geminiGenerateContentResponse) (*domain.EncodedImage, string) {
	var texts []string
	for _, candidate := range resp.Candidates {
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil && part.InlineData.Data != "" {
				data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
				if err != nil || len(data) == 0 {
					continue
				}
				mime := part.InlineData.MimeType
				if mime == "" {
					mime = "image/png"
				}
				return &domain.EncodedImage{Data: data, MIME: mime}, ""
			}
			if text := strings.TrimSpace(part.Text); text != "" {
				texts = append(texts, text)
			}
		}
	}
	return nil, strings.Join(texts, " ")
}

func (c *Client) invoke(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	endpoint := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if c.apiKey != "" {
		q := req.URL.Query()
		q.Set("key", c.apiKey)
		req.URL.RawQuery = q.Encode()
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: invoke gemini: %v", domain.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr geminiErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("%w: gemini status %d: %s", domain.ErrBackendRefused, resp.StatusCode, apiErr.Error.Message)
		}
		data, _ := io.ReadAll(resp.Body)
		if len(data) > 0 {
			return fmt.Errorf("%w: gemini status %d: %s", domain.ErrTransport, resp.StatusCode, strings.TrimSpace(string(data)))
		}
		return fmt.Errorf("%w: gemini status %d", domain.ErrTransport, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode gemini response: %v", domain.ErrTransport, err)
	}
	return nil
}
