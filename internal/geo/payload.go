package geo

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/evyataryagoni/ipgeocode/internal/models"
)

// decodePayload reads a flat JSON object keeping the key order of the response
// String values are unquoted, null becomes an empty string and anything else
// (numbers, booleans, nested objects) is kept as raw JSON text
func decodePayload(r io.Reader) (models.GeoPayload, error) {
	payload := models.GeoPayload{}
	dec := json.NewDecoder(r)
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return payload, fmt.Errorf("cannot parse a response: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return payload, fmt.Errorf("cannot parse a response: expected a JSON object")
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return payload, fmt.Errorf("cannot parse a response: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return payload, fmt.Errorf("cannot parse a response: unexpected key %v", tok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return payload, fmt.Errorf("cannot parse a response: %w", err)
		}

		payload.Fields = append(payload.Fields, models.Field{
			Key:   key,
			Value: rawValue(raw),
		})
	}

	if _, err := dec.Token(); err != nil {
		return payload, fmt.Errorf("cannot parse a response: %w", err)
	}

	return payload, nil
}

func rawValue(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)

	switch {
	case bytes.Equal(trimmed, []byte("null")):
		return ""
	case len(trimmed) > 0 && trimmed[0] == '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return s
		}
	}

	return string(trimmed)
}
