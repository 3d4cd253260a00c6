package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrMalformedOutput is returned when a structured model response does not
// match the expected shape. Callers must not use any partially decoded value.
var ErrMalformedOutput = errors.New("malformed model output")

var validate = validator.New(validator.WithRequiredStructEnabled())

// DecodeJSON strictly decodes a single JSON object from raw into v and runs
// its validate tags. Unknown keys, trailing data and failed validation all
// yield ErrMalformedOutput.
func DecodeJSON(raw string, v any) error {
	text := stripCodeFence(strings.TrimSpace(raw))
	if text == "" {
		return fmt.Errorf("%w: empty response", ErrMalformedOutput)
	}

	dec := json.NewDecoder(strings.NewReader(text))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedOutput, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: trailing data after object", ErrMalformedOutput)
	}

	if err := validate.Struct(v); err != nil {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			return nil
		}
		return fmt.Errorf("%w: %w", ErrMalformedOutput, err)
	}
	return nil
}

// stripCodeFence removes a surrounding ``` or ```json fence.
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		return ""
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
