// Package mockai is a deterministic stand-in for the AI providers, used
// for development and load testing. No network calls: embeddings are
// seeded by a hash of the text, drafts come from a fixed product pool.
// Same input always produces the same output.
package mockai

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bazar-cloud/bazar/internal/domain"
	"github.com/bazar-cloud/bazar/internal/domain/vector"
)

// DefaultDimensions matches the embedding width used in local configs.
const DefaultDimensions = 768

type sample struct {
	draft     domain.Draft
	priceLow  int
	priceHigh int
}

var samplePool = []sample{
	{
		draft: domain.Draft{
			Name:        "Fresh Tomatoes",
			Description: "Fresh organic tomatoes, locally sourced. Rich in vitamins and perfect for cooking.",
			Category:    "Vegetables",
			Unit:        "kg",
		},
		priceLow: 30, priceHigh: 60,
	},
	{
		draft: domain.Draft{
			Name:        "Samsung Galaxy S24 Ultra",
			Description: "Flagship smartphone with 200MP camera, S Pen, and powerful Snapdragon processor.",
			Category:    "Mobile Phones",
			Unit:        "piece",
		},
		priceLow: 120000, priceHigh: 135000,
	},
	{
		draft: domain.Draft{
			Name:        "HP LaserJet Printer",
			Description: "Professional laser printer with wireless connectivity and fast printing speeds.",
			Category:    "Electronics",
			Unit:        "piece",
		},
		priceLow: 8000, priceHigh: 15000,
	},
	{
		draft: domain.Draft{
			Name:        "Basmati Rice",
			Description: "Premium quality basmati rice with long grains and aromatic flavor.",
			Category:    "Grains",
			Unit:        "kg",
		},
		priceLow: 60, priceHigh: 100,
	},
	{
		draft: domain.Draft{
			Name:        "Leather Wallet",
			Description: "Genuine leather wallet with multiple card slots and coin pocket.",
			Category:    "Accessories",
			Unit:        "piece",
		},
		priceLow: 500, priceHigh: 2000,
	},
}

var placeholderImages = []string{
	"https://via.placeholder.com/300x300/FF6B6B/FFFFFF?text=Product+1",
	"https://via.placeholder.com/300x300/4ECDC4/FFFFFF?text=Product+2",
	"https://via.placeholder.com/300x300/45B7D1/FFFFFF?text=Product+3",
	"https://via.placeholder.com/300x300/FFA07A/FFFFFF?text=Product+4",
}

var digits = regexp.MustCompile(`\d+`)

// Provider implements the embedder, extractor and image finder contracts.
type Provider struct {
	dimensions int
	latency    time.Duration
	logger     *zap.Logger
}

// New creates a mock provider producing vectors of the given width.
func New(dimensions int, logger *zap.Logger) *Provider {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	return &Provider{dimensions: dimensions, logger: logger}
}

// WithLatency makes every call sleep, imitating a remote provider.
// Load tests want realistic timings; unit tests leave this at zero.
func (p *Provider) WithLatency(d time.Duration) *Provider {
	p.latency = d
	return p
}

// Embed returns a unit-length vector seeded by the text hash.
func (p *Provider) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if err := p.sleep(ctx); err != nil {
		return domain.EmbeddingResult{}, err
	}

	rng := rand.New(rand.NewSource(int64(hash(text)))) //nolint:gosec // детерминизм важнее криптостойкости
	vec := make([]float32, p.dimensions)
	for i := range vec {
		vec[i] = float32(rng.NormFloat64())
	}

	tokens := len(strings.Fields(text))
	return domain.EmbeddingResult{
		Embedding:    vector.Normalize(vec),
		PromptTokens: tokens,
		TotalTokens:  tokens,
	}, nil
}

// Extract matches the input against the sample pool and fills the rest
// deterministically.
func (p *Provider) Extract(ctx context.Context, in domain.RawListing) (domain.Draft, error) {
	if err := p.sleep(ctx); err != nil {
		return domain.Draft{}, err
	}

	switch in.Modality {
	case domain.ModalityText:
		return p.fromText(in.Text), nil
	case domain.ModalityVoice, domain.ModalityImage:
		if strings.TrimSpace(in.Text) != "" {
			return p.fromText(in.Text), nil
		}
		return p.pick(hash(string(in.Payload))), nil
	default:
		return domain.Draft{}, fmt.Errorf("%w: unknown modality %q", domain.ErrInvalidInput, in.Modality)
	}
}

// FindImages returns a deterministic slice of placeholder URLs.
func (p *Provider) FindImages(ctx context.Context, query string) ([]string, error) {
	if err := p.sleep(ctx); err != nil {
		return nil, err
	}

	n := 3 + int(hash(query)%2)
	return append([]string(nil), placeholderImages[:n]...), nil
}

// HealthCheck always succeeds; the mock has nothing to reach.
func (p *Provider) HealthCheck(context.Context) error { return nil }

func (p *Provider) fromText(text string) domain.Draft {
	lower := strings.ToLower(text)

	for _, s := range samplePool {
		if strings.Contains(lower, strings.ToLower(s.draft.Name)) {
			d := s.draft
			d.Price = price(s, hash(text))
			d.Quantity = quantityFrom(text)
			return d
		}
	}
	return p.pick(hash(text))
}

func (p *Provider) pick(h uint64) domain.Draft {
	s := samplePool[h%uint64(len(samplePool))]
	d := s.draft
	d.Price = price(s, h)
	d.Quantity = 1 + int(h%10)
	return d
}

func price(s sample, h uint64) float64 {
	span := uint64(s.priceHigh - s.priceLow + 1)
	return float64(s.priceLow + int(h%span))
}

// quantityFrom pulls the first number out of the text, if any.
func quantityFrom(text string) int {
	if m := digits.FindString(text); m != "" {
		if n, err := strconv.Atoi(m); err == nil && n > 0 {
			return n
		}
	}
	return 1
}

func (p *Provider) sleep(ctx context.Context) error {
	if p.latency <= 0 {
		return nil
	}
	select {
	case <-time.After(p.latency):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func hash(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}
