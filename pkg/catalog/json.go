package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

var jsonNull = []byte("null")

// UnmarshalJSON decodes the nested brand → series → models object while
// keeping key order. A null brand or series value decodes as empty.
func (d *Dataset) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), jsonNull) {
		*d = Dataset{}
		return nil
	}

	var brands []Brand
	err := decodeObject(data, func(brand string, raw json.RawMessage) error {
		var series []Series
		if bytes.Equal(raw, jsonNull) {
			brands = append(brands, Brand{Name: brand})
			return nil
		}
		err := decodeObject(raw, func(name string, rawModels json.RawMessage) error {
			var models []string
			if err := json.Unmarshal(rawModels, &models); err != nil {
				return fmt.Errorf("series %q: models: %w", name, err)
			}
			series = append(series, Series{Name: name, Models: models})
			return nil
		})
		if err != nil {
			return fmt.Errorf("brand %q: %w", brand, err)
		}
		brands = append(brands, Brand{Name: brand, Series: series})
		return nil
	})
	if err != nil {
		return fmt.Errorf("catalog: decode dataset: %w", err)
	}

	*d = NewDataset(brands...)
	return nil
}

// MarshalJSON encodes the dataset as a nested object in source order.
func (d Dataset) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, brand := range d.brands {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeKey(&buf, brand.Name); err != nil {
			return nil, err
		}
		buf.WriteByte('{')
		for j, series := range brand.Series {
			if j > 0 {
				buf.WriteByte(',')
			}
			if err := writeKey(&buf, series.Name); err != nil {
				return nil, err
			}
			models, err := json.Marshal(series.Models)
			if err != nil {
				return nil, err
			}
			buf.Write(models)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Parse decodes raw JSON into a Dataset.
func Parse(data []byte) (Dataset, error) {
	var ds Dataset
	if err := ds.UnmarshalJSON(data); err != nil {
		return Dataset{}, err
	}
	return ds, nil
}

func writeKey(buf *bytes.Buffer, key string) error {
	raw, err := json.Marshal(key)
	if err != nil {
		return err
	}
	buf.Write(raw)
	buf.WriteByte(':')
	return nil
}

// decodeObject walks a JSON object in document order, handing each key and
// its raw value to fn.
func decodeObject(data []byte, fn func(key string, raw json.RawMessage) error) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := expectDelim(dec, '{'); err != nil {
		return err
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("value of %q: %w", key, err)
		}
		if err := fn(key, raw); err != nil {
			return err
		}
	}
	if err := expectDelim(dec, '}'); err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("trailing data after object")
	}
	return nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}
