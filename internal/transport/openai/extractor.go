package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/bazar-cloud/bazar/internal/domain"
	"github.com/bazar-cloud/bazar/internal/metrics"
)

// DefaultExtractTimeout bounds a single extraction round trip, the
// transcription leg of a voice listing included.
const DefaultExtractTimeout = 60 * time.Second

// extractPrompt asks for the draft JSON and nothing else.
const extractPrompt = `Extract structured product information from the seller's description.
Return ONLY a valid JSON object with these exact fields (no markdown, no code blocks):

{
    "name": "product name",
    "description": "detailed product description",
    "category": "suggested category",
    "price": numeric value only,
    "quantity": numeric value only,
    "unit": "piece/kg/dozen/liter/etc",
    "image_url": ""
}

Remember: Return ONLY the JSON object, nothing else.`

// visionPrompt is the image flavor of extractPrompt.
const visionPrompt = `Analyze this product photo and extract structured information.
Return ONLY a valid JSON object with these exact fields (no markdown, no code blocks):

{
    "name": "product name based on what you see",
    "description": "detailed description of the product in the photo",
    "category": "suggested category",
    "price": numeric value only,
    "quantity": numeric value only,
    "unit": "piece/kg/dozen/liter/etc",
    "image_url": ""
}

Remember: Return ONLY the JSON object, nothing else.`

// Extractor turns raw seller input into a product draft via the
// OpenAI-compatible chat API. Voice goes through transcription first,
// photos through vision message parts.
type Extractor struct {
	client          *openai.Client
	model           string
	transcribeModel string
	temperature     float32
	timeout         time.Duration
	provider        string
	logger          *zap.Logger
}

// ExtractorConfig holds the extraction provider settings.
type ExtractorConfig struct {
	APIKey          string
	BaseURL         string
	Model           string
	TranscribeModel string
	Temperature     float32
	Timeout         time.Duration
	Provider        string
	Logger          *zap.Logger
}

// NewExtractor creates an OpenAI-compatible extraction provider.
func NewExtractor(cfg *ExtractorConfig) *Extractor {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	transcribeModel := cfg.TranscribeModel
	if transcribeModel == "" {
		transcribeModel = openai.Whisper1
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultExtractTimeout
	}

	return &Extractor{
		client:          openai.NewClientWithConfig(clientCfg),
		model:           cfg.Model,
		transcribeModel: transcribeModel,
		temperature:     cfg.Temperature,
		timeout:         timeout,
		provider:        cfg.Provider,
		logger:          cfg.Logger,
	}
}

// Extract implements domain.Extractor with transport-level metrics.
func (e *Extractor) Extract(ctx context.Context, in domain.RawListing) (domain.Draft, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	modality := in.Modality.String()
	start := time.Now()

	draft, err := e.extract(ctx, in)

	duration := time.Since(start)

	if err != nil {
		metrics.ExtractionRequestsTotal.WithLabelValues(e.provider, e.model, modality, "error").Inc()
		return domain.Draft{}, err
	}

	metrics.ExtractionRequestsTotal.WithLabelValues(e.provider, e.model, modality, "success").Inc()
	metrics.ExtractionRequestDuration.WithLabelValues(e.provider, e.model, modality).Observe(duration.Seconds())

	return draft, nil
}

func (e *Extractor) extract(ctx context.Context, in domain.RawListing) (domain.Draft, error) {
	switch in.Modality {
	case domain.ModalityText:
		return e.fromText(ctx, in.Text)
	case domain.ModalityVoice:
		text, err := e.transcribe(ctx, in)
		if err != nil {
			return domain.Draft{}, err
		}
		return e.fromText(ctx, text)
	case domain.ModalityImage:
		return e.fromImage(ctx, in)
	default:
		return domain.Draft{}, fmt.Errorf("%w: unknown modality %q", domain.ErrInvalidInput, in.Modality)
	}
}

func (e *Extractor) fromText(ctx context.Context, text string) (domain.Draft, error) {
	req := openai.ChatCompletionRequest{
		Model:       e.model,
		Temperature: e.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: extractPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}
	return e.complete(ctx, req)
}

func (e *Extractor) fromImage(ctx context.Context, in domain.RawListing) (domain.Draft, error) {
	if len(in.Payload) == 0 {
		return domain.Draft{}, fmt.Errorf("%w: image listing has no payload", domain.ErrInvalidInput)
	}

	parts := []openai.ChatMessagePart{
		{Type: openai.ChatMessagePartTypeText, Text: visionPrompt},
		{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    dataURL(in.Payload),
				Detail: openai.ImageURLDetailAuto,
			},
		},
	}
	if extra := strings.TrimSpace(in.Text); extra != "" {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeText,
			Text: "Additional context: " + extra,
		})
	}

	// Без response_format: vision-бэкенды его часто не поддерживают,
	// хватает промпта и среза ограждений.
	req := openai.ChatCompletionRequest{
		Model:       e.model,
		Temperature: e.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, MultiContent: parts},
		},
	}
	return e.complete(ctx, req)
}

func (e *Extractor) transcribe(ctx context.Context, in domain.RawListing) (string, error) {
	if len(in.Payload) == 0 {
		return "", fmt.Errorf("%w: voice listing has no payload", domain.ErrInvalidInput)
	}

	name := in.Filename
	if name == "" {
		name = "voice.mp3"
	}

	resp, err := e.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    e.transcribeModel,
		FilePath: name,
		Reader:   bytes.NewReader(in.Payload),
	})
	if err != nil {
		return "", parseAPIError("transcription", err, domain.ErrExtractionProviderError)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", fmt.Errorf("could not understand audio: %w", domain.ErrExtractionProviderError)
	}

	e.logger.Debug("Voice listing transcribed", zap.Int("chars", len(text)))
	return text, nil
}

func (e *Extractor) complete(ctx context.Context, req openai.ChatCompletionRequest) (domain.Draft, error) {
	resp, err := e.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return domain.Draft{}, parseAPIError("extraction", err, domain.ErrExtractionProviderError)
	}
	if len(resp.Choices) == 0 {
		return domain.Draft{}, fmt.Errorf("empty extraction response: %w", domain.ErrExtractionProviderError)
	}
	return parseDraft(resp.Choices[0].Message.Content)
}

// parseDraft decodes the model output. Fences are stripped first: not
// every backend honors the JSON-only instruction.
func parseDraft(raw string) (domain.Draft, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	var parsed struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Category    string `json:"category"`
		Price       any    `json:"price"`
		Quantity    any    `json:"quantity"`
		Unit        string `json:"unit"`
		ImageURL    string `json:"image_url"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return domain.Draft{}, fmt.Errorf("parse draft JSON: %v: %w", err, domain.ErrExtractionProviderError)
	}

	return domain.Draft{
		Name:        parsed.Name,
		Description: parsed.Description,
		Category:    parsed.Category,
		Price:       asFloat(parsed.Price),
		Quantity:    int(asFloat(parsed.Quantity)),
		Unit:        parsed.Unit,
		ImageURL:    parsed.ImageURL,
	}, nil
}

// asFloat coerces the model's idea of a number. Junk becomes zero and
// sanitation picks the default later.
func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// dataURL inlines the photo bytes for the vision API.
func dataURL(payload []byte) string {
	return "data:" + http.DetectContentType(payload) + ";base64," + base64.StdEncoding.EncodeToString(payload)
}
