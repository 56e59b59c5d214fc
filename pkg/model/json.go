package model

import (
	"bytes"
	"encoding/json"

	"github.com/archifact/archifact/pkg/errors"
)

// MarshalPretty renders the blueprint as indented JSON, the form written
// next to the patched XML artifact.
func MarshalPretty(b *Blueprint) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(b); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encoding model to JSON")
	}
	return buf.Bytes(), nil
}

// DecodeOverride decodes a caller-supplied override document. The input is
// forgiving: "identifier" is accepted as an alias for "id", and
// "label_hint"/"documentation_hint" keys fill in for absent "label"/
// "documentation" values. JSON null values decode to nil pointers and are
// treated as absent fields.
func DecodeOverride(data []byte) (*Blueprint, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return &Blueprint{}, nil
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidDatamodel, err, "override document is not valid JSON")
	}

	normalized := normalizeOverride(raw)
	buf, err := json.Marshal(normalized)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "re-encoding normalized override")
	}

	var out Blueprint
	if err := json.Unmarshal(buf, &out); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidDatamodel, err, "override document does not match the model shape")
	}
	return &out, nil
}

// aliasKeys maps accepted alternative key spellings to canonical ones. An
// alias is applied only when the canonical key is absent.
var aliasKeys = map[string]string{
	"identifier":         "id",
	"label_hint":         "label",
	"documentation_hint": "documentation",
	"name_hint":          "name",
}

func normalizeOverride(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalizeOverride(val)
		}
		for alias, canonical := range aliasKeys {
			if val, ok := out[alias]; ok {
				if _, exists := out[canonical]; !exists {
					out[canonical] = val
				}
				delete(out, alias)
			}
		}
		// Bare-string localized text is accepted where a {text,lang}
		// object is expected.
		for _, k := range []string{"name", "documentation", "label", "value", "modelName", "modelDocumentation"} {
			if s, ok := out[k].(string); ok {
				out[k] = map[string]any{"text": s}
			}
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalizeOverride(val)
		}
		return out
	default:
		return v
	}
}
