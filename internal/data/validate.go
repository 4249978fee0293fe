package data

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// entity is implemented by the three dataset element types so decoding can
// report which element was dropped.
type entity interface {
	key() string
}

// newValidator builds the shared struct validator used for per-element shape
// checks.
func newValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

// decodeElements parses a JSON array and validates every element against its
// shape. Elements that fail to decode or validate are dropped and reported;
// decoding never aborts the surrounding load.
func decodeElements[T entity](v *validator.Validate, dataset string, raw []byte) ([]T, []string) {
	var rawElems []json.RawMessage
	if err := json.Unmarshal(raw, &rawElems); err != nil {
		return nil, []string{fmt.Sprintf("%s: not a JSON array: %v", dataset, err)}
	}

	var (
		elems    []T
		warnings []string
	)
	for i, re := range rawElems {
		var elem T
		if err := json.Unmarshal(re, &elem); err != nil {
			warnings = append(warnings, fmt.Sprintf("%s[%d]: dropped, decode failed: %v", dataset, i, err))
			continue
		}
		if err := validateElement(v, elem); err != nil {
			warnings = append(warnings, fmt.Sprintf("%s[%d] %s: dropped, %v", dataset, i, describeElement(elem), err))
			continue
		}
		elems = append(elems, elem)
	}
	return elems, warnings
}

// validateElement runs the struct validation plus the checks the tag
// language cannot express.
func validateElement[T entity](v *validator.Validate, elem T) error {
	if err := v.Struct(elem); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if tok, ok := any(elem).(DesignToken); ok && tok.Value.IsZero() {
		return fmt.Errorf("validation failed: token value is required")
	}
	return nil
}

func describeElement[T entity](elem T) string {
	if k := elem.key(); k != "" {
		return fmt.Sprintf("%q", k)
	}
	return "(unnamed)"
}
