package predict

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DefaultResultField is the response property read when nothing else is
// configured.
const DefaultResultField = "tahmin"

// Result is a decoded prediction.
type Result struct {
	Price float64
}

// DecodeResult reads the numeric property field from a JSON object. A missing,
// null or non-numeric property is reported as ErrNoPrediction.
func DecodeResult(data []byte, field string) (Result, error) {
	var body map[string]json.RawMessage
	if err := json.Unmarshal(data, &body); err != nil {
		return Result{}, fmt.Errorf("predict: decode response: %w", err)
	}

	raw, ok := body[field]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return Result{}, ErrNoPrediction
	}

	var price float64
	if err := json.Unmarshal(raw, &price); err != nil {
		return Result{}, fmt.Errorf("%w: %s is not a number", ErrNoPrediction, field)
	}
	return Result{Price: price}, nil
}
