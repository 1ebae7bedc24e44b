package core

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/mitchellh/mapstructure"
	"golang.org/x/net/html"
)

// decodeFields copies attrs into the typed struct out. Numbers arrive as float64 from
// encoding/json, so decoding is weakly typed.
func decodeFields(attrs map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(attrs)
}

// DecodeObject parses a subscription payload into an attribute map.
func DecodeObject(data json.RawMessage) (map[string]any, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode object: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("decode object: %w", ErrMissingID)
	}
	return raw, nil
}

// DecodeID accepts a bare id or an object carrying one.
func DecodeID(data json.RawMessage) (int64, error) {
	var id int64
	if err := json.Unmarshal(data, &id); err == nil {
		return id, nil
	}
	raw, err := DecodeObject(data)
	if err != nil {
		return 0, err
	}
	id, ok := rawID(raw)
	if !ok {
		return 0, ErrMissingID
	}
	return id, nil
}

func rawID(raw map[string]any) (int64, bool) {
	switch v := raw["id"].(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	}
	return 0, false
}

// stripTags returns the text content of an HTML fragment.
func stripTags(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			if z.Err() == io.EOF {
				return b.String()
			}
			return s
		case html.TextToken:
			b.Write(z.Text())
		}
	}
}

// paragraph wraps plain text as the HTML body the server expects.
func paragraph(text string) string {
	return "<p>" + html.EscapeString(text) + "</p>"
}
