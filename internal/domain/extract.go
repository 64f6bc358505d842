package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// maxDecodeAttempts bounds the scan for an embedded JSON document.
const maxDecodeAttempts = 32

var errUnusableResponse = errors.New("unusable generative response")

// SuggestedExercise is one model-proposed exercise before validation.
type SuggestedExercise struct {
	Name         string `json:"name"`
	Instructions string `json:"instructions"`
}

type suggestionEnvelope struct {
	Exercises []SuggestedExercise `json:"exercises"`
}

// ExtractExercises finds the first JSON object or array in a model response
// and keeps the suggestions whose names match the eligible pool. Matching is
// case-insensitive and the catalog spelling wins. At most limit suggestions
// are returned; fewer than min(4, len(eligible)) is treated as unusable.
func ExtractExercises(text string, eligible []ExerciseDefinition, limit int) ([]ExerciseDefinition, []string, error) {
	suggestions, err := decodeSuggestions(text)
	if err != nil {
		return nil, nil, err
	}

	byName := make(map[string]ExerciseDefinition, len(eligible))
	for _, ex := range eligible {
		byName[strings.ToLower(ex.Name)] = ex
	}

	seen := make(map[string]struct{})
	var defs []ExerciseDefinition
	var instructions []string
	for _, s := range suggestions {
		if len(defs) >= limit {
			break
		}
		key := strings.ToLower(strings.TrimSpace(s.Name))
		def, ok := byName[key]
		if !ok {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		defs = append(defs, def)
		instructions = append(instructions, strings.TrimSpace(s.Instructions))
	}

	if need := min(MinExercises, len(eligible)); len(defs) < need {
		return nil, nil, fmt.Errorf("%w: %w: %d usable exercises, need %d", ErrPrimaryServiceUnavailable, errUnusableResponse, len(defs), need)
	}
	return defs, instructions, nil
}

func decodeSuggestions(text string) ([]SuggestedExercise, error) {
	attempts := 0
	for i := 0; i < len(text) && attempts < maxDecodeAttempts; i++ {
		c := text[i]
		if c != '{' && c != '[' {
			continue
		}
		attempts++
		dec := json.NewDecoder(strings.NewReader(text[i:]))
		if c == '[' {
			var list []SuggestedExercise
			if err := dec.Decode(&list); err == nil && len(list) > 0 {
				return list, nil
			}
			continue
		}
		var env suggestionEnvelope
		if err := dec.Decode(&env); err == nil && len(env.Exercises) > 0 {
			return env.Exercises, nil
		}
	}
	return nil, fmt.Errorf("%w: %w: no exercise list", ErrPrimaryServiceUnavailable, errUnusableResponse)
}
