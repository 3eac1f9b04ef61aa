package mockai

import (
	"context"
	"math"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/bazar-cloud/bazar/internal/domain"
)

func TestEmbed_Deterministic(t *testing.T) {
	p := New(64, zap.NewNop())
	ctx := context.Background()

	a, err := p.Embed(ctx, "fresh honey in jars")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	b, err := p.Embed(ctx, "fresh honey in jars")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}

	if len(a.Embedding) != 64 {
		t.Fatalf("dimensions = %d, want 64", len(a.Embedding))
	}
	for i := range a.Embedding {
		if a.Embedding[i] != b.Embedding[i] {
			t.Fatalf("same text produced different vectors at %d", i)
		}
	}

	c, err := p.Embed(ctx, "a completely different listing")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	same := true
	for i := range a.Embedding {
		if a.Embedding[i] != c.Embedding[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different texts produced identical vectors")
	}
}

func TestEmbed_UnitLength(t *testing.T) {
	p := New(128, zap.NewNop())

	res, err := p.Embed(context.Background(), "bike")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}

	var sum float64
	for _, x := range res.Embedding {
		sum += float64(x) * float64(x)
	}
	if math.Abs(math.Sqrt(sum)-1) > 1e-5 {
		t.Errorf("norm = %f, want 1", math.Sqrt(sum))
	}
}

func TestExtract_KnownProduct(t *testing.T) {
	p := New(8, zap.NewNop())

	draft, err := p.Extract(context.Background(), domain.RawListing{
		Modality: domain.ModalityText,
		Text:     "selling 12 kg of fresh tomatoes from my garden",
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if draft.Name != "Fresh Tomatoes" {
		t.Errorf("name = %q, want Fresh Tomatoes", draft.Name)
	}
	if draft.Category != "Vegetables" {
		t.Errorf("category = %q", draft.Category)
	}
	if draft.Quantity != 12 {
		t.Errorf("quantity = %d, want 12 (from the text)", draft.Quantity)
	}
	if draft.Price < 30 || draft.Price > 60 {
		t.Errorf("price = %f, want within the tomato range", draft.Price)
	}
}

func TestExtract_Deterministic(t *testing.T) {
	p := New(8, zap.NewNop())
	in := domain.RawListing{Modality: domain.ModalityText, Text: "something unlisted"}

	a, err := p.Extract(context.Background(), in)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	b, err := p.Extract(context.Background(), in)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if a != b {
		t.Errorf("same input produced different drafts: %+v vs %+v", a, b)
	}
}

func TestExtract_VoiceAndImage(t *testing.T) {
	p := New(8, zap.NewNop())
	ctx := context.Background()

	voice, err := p.Extract(ctx, domain.RawListing{
		Modality: domain.ModalityVoice,
		Payload:  []byte("audio-bytes"),
	})
	if err != nil {
		t.Fatalf("Extract voice: %v", err)
	}
	if voice.Name == "" {
		t.Error("voice draft has no name")
	}

	// Фото с подписью идёт по текстовому пути.
	image, err := p.Extract(ctx, domain.RawListing{
		Modality: domain.ModalityImage,
		Payload:  []byte("image-bytes"),
		Text:     "basmati rice, 5 kg bags",
	})
	if err != nil {
		t.Fatalf("Extract image: %v", err)
	}
	if image.Name != "Basmati Rice" {
		t.Errorf("image draft name = %q, want Basmati Rice", image.Name)
	}
	if image.Quantity != 5 {
		t.Errorf("image draft quantity = %d, want 5", image.Quantity)
	}
}

func TestExtract_UnknownModality(t *testing.T) {
	p := New(8, zap.NewNop())

	_, err := p.Extract(context.Background(), domain.RawListing{Modality: domain.Modality("video")})
	if err == nil {
		t.Fatal("expected error for unknown modality")
	}
}

func TestFindImages(t *testing.T) {
	p := New(8, zap.NewNop())

	a, err := p.FindImages(context.Background(), "tomatoes")
	if err != nil {
		t.Fatalf("FindImages: %v", err)
	}
	if len(a) < 3 || len(a) > 4 {
		t.Fatalf("got %d urls, want 3 or 4", len(a))
	}

	b, _ := p.FindImages(context.Background(), "tomatoes")
	if len(a) != len(b) {
		t.Error("same query produced different result sizes")
	}
}

func TestLatencyHonorsContext(t *testing.T) {
	p := New(8, zap.NewNop()).WithLatency(time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := p.Embed(ctx, "anything"); err == nil {
		t.Fatal("expected context error under latency")
	}
}
