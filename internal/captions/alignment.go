package captions

import (
	"encoding/json"
	"fmt"

	"nightshift/internal/services"
)

// Alignment carries character-level timing for synthesized speech, one entry
// per character across the three parallel arrays.
type Alignment struct {
	Characters          []string  `json:"characters"`
	CharacterStartTimes []float64 `json:"character_start_times_seconds"`
	CharacterEndTimes   []float64 `json:"character_end_times_seconds"`
}

type alignmentDocument struct {
	Alignment Alignment `json:"alignment"`
}

// ParseAlignment decodes the persisted timestamps document and validates the
// parallel arrays. Empty or mismatched arrays are a validation error; no
// partial result is returned.
func ParseAlignment(data []byte) (*Alignment, error) {
	var doc alignmentDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, services.Wrap(services.ErrValidation, "captions", "parse alignment", "malformed timestamps JSON", err)
	}
	alignment := doc.Alignment
	if err := alignment.Validate(); err != nil {
		return nil, err
	}
	return &alignment, nil
}

// Validate checks that the parallel arrays are present and consistent.
func (a *Alignment) Validate() error {
	if len(a.Characters) == 0 {
		return services.Wrap(services.ErrValidation, "captions", "validate alignment", "empty character array", nil)
	}
	if len(a.Characters) != len(a.CharacterStartTimes) || len(a.Characters) != len(a.CharacterEndTimes) {
		return services.Wrap(services.ErrValidation, "captions", "validate alignment",
			fmt.Sprintf("mismatched arrays: %d characters, %d starts, %d ends",
				len(a.Characters), len(a.CharacterStartTimes), len(a.CharacterEndTimes)), nil)
	}
	return nil
}

// Document wraps the alignment in its on-disk envelope for persistence.
func (a *Alignment) Document() ([]byte, error) {
	return json.Marshal(alignmentDocument{Alignment: *a})
}

// LastEndTime returns the end time of the final character, which is the
// authoritative speech duration when present.
func (a *Alignment) LastEndTime() float64 {
	if len(a.CharacterEndTimes) == 0 {
		return 0
	}
	return a.CharacterEndTimes[len(a.CharacterEndTimes)-1]
}
