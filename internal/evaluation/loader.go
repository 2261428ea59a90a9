package evaluation

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// LoadGoldenPitches reads and parses a golden pitch set from a JSON file.
func LoadGoldenPitches(path string) ([]GoldenPitch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read golden pitches file: %w", err)
	}

	var pitches []GoldenPitch
	if err := json.Unmarshal(data, &pitches); err != nil {
		return nil, fmt.Errorf("failed to parse golden pitches: %w", err)
	}

	return pitches, nil
}

var validDifficulties = map[string]bool{
	"easy":   true,
	"medium": true,
	"hard":   true,
}

// ValidateGoldenPitches checks that all golden pitches have required fields and valid values.
func ValidateGoldenPitches(pitches []GoldenPitch) error {
	seen := make(map[string]struct{}, len(pitches))

	for i, p := range pitches {
		if p.ID == "" {
			return fmt.Errorf("pitch at index %d: missing id", i)
		}
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("pitch at index %d: duplicate id %q", i, p.ID)
		}
		seen[p.ID] = struct{}{}

		if strings.TrimSpace(p.Pitch) == "" {
			return fmt.Errorf("pitch %q: missing pitch text", p.ID)
		}
		if len(p.ExpectedKeywords) == 0 {
			return fmt.Errorf("pitch %q: no expected keywords", p.ID)
		}
		if !validDifficulties[p.Difficulty] {
			return fmt.Errorf("pitch %q: invalid difficulty %q (must be easy/medium/hard)", p.ID, p.Difficulty)
		}
	}

	return nil
}
