package domain

import "fmt"

// Modality identifies the kind of raw listing input a seller submitted.
type Modality string

const (
	// ModalityText is a free-form text description.
	ModalityText Modality = "text"
	// ModalityVoice is an audio recording to be transcribed first.
	ModalityVoice Modality = "voice"
	// ModalityImage is a photo of the goods.
	ModalityImage Modality = "image"
)

// ParseModality validates and converts a raw string into a Modality.
func ParseModality(raw string) (Modality, error) {
	switch Modality(raw) {
	case ModalityText, ModalityVoice, ModalityImage:
		return Modality(raw), nil
	default:
		return "", fmt.Errorf("%w: unknown modality %q", ErrInvalidInput, raw)
	}
}

func (m Modality) String() string { return string(m) }
