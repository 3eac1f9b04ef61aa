package domain

import "context"

// RawListing is the seller input handed to the extraction provider.
// For voice the payload is the audio bytes, for image the photo bytes,
// for text the payload is empty and Text carries the description.
type RawListing struct {
	Modality Modality
	Text     string
	Payload  []byte
	// Filename hints the payload format to providers that care (audio codecs).
	Filename string
}

// Extractor turns raw seller input into a structured product draft.
type Extractor interface {
	Extract(ctx context.Context, in RawListing) (Draft, error)
}

// ImageFinder locates candidate illustration URLs for a product by name.
// Implementations are best effort: no results is an empty slice, not an
// error, and callers treat errors as non-fatal.
type ImageFinder interface {
	FindImages(ctx context.Context, query string) ([]string, error)
}
