// Package classify normalizes security-classification payloads of
// inconsistent shape into a canonical result and derives handling
// recommendations from a fixed policy table.
package classify

import (
	"encoding/json"
	"log/slog"
	"strings"
)

// Result is a complete, canonical classification record. Normalize always
// produces one; it never fails.
type Result struct {
	Category        string            `json:"category"`
	Sensitivity     string            `json:"sensitivity"`
	Reasoning       string            `json:"reasoning"`
	Recommendations []string          `json:"recommendations"`
	Source          map[string]string `json:"source,omitempty"`
}

const (
	defaultCategory    = "Unknown"
	defaultSensitivity = "Unknown"
	defaultReasoning   = "No reasoning provided."
)

// payloadKind tags the shape the raw payload resolved to.
type payloadKind int

const (
	kindMapping payloadKind = iota
	kindJSONText
	kindLiteralText
	kindUnparseable
)

// Normalize converts a raw classification payload (a mapping, a
// JSON-encoded string, or a Python-literal-encoded string) into a Result.
// Unparseable input yields the Unknown/Unknown defaults rather than an
// error; the raw payload is logged for diagnosis.
func Normalize(raw any, extractionStatus, filename string) Result {
	m, kind := toMapping(raw)
	if kind == kindUnparseable {
		slog.Debug("classification payload unparseable", "file", filename, "payload", raw)
	}

	// The interesting fields may sit under a nested, possibly re-encoded
	// "classification" → "answer"/"ANSWER" payload.
	if nested, ok := m["classification"]; ok {
		if nm, nk := toMapping(nested); nk != kindUnparseable {
			m = nm
		}
	}
	if answer, ok := firstOf(m, "answer", "ANSWER"); ok {
		if am, ak := toMapping(answer); ak != kindUnparseable {
			m = am
		}
	}

	res := Result{
		Category:    stringField(m, "category", defaultCategory),
		Sensitivity: stringField(m, "sensitivity", defaultSensitivity),
		Reasoning:   stringField(m, "reasoning", defaultReasoning),
		Source: map[string]string{
			"filename":          filename,
			"extraction_status": extractionStatus,
		},
	}
	res.Recommendations = Recommend(res.Category, res.Sensitivity)
	return res
}

// toMapping resolves raw through the ordered parse chain:
// already a mapping → JSON parse → literal parse → empty mapping.
func toMapping(raw any) (map[string]any, payloadKind) {
	switch v := raw.(type) {
	case map[string]any:
		return v, kindMapping
	case map[string]string:
		m := make(map[string]any, len(v))
		for k, s := range v {
			m[k] = s
		}
		return m, kindMapping
	case string:
		var m map[string]any
		if err := json.Unmarshal([]byte(v), &m); err == nil && m != nil {
			return m, kindJSONText
		}
		if m, err := parsePythonDict(v); err == nil {
			return m, kindLiteralText
		}
	}
	return map[string]any{}, kindUnparseable
}

// firstOf returns the value of the first key present in m.
func firstOf(m map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			return v, true
		}
	}
	return nil, false
}

func stringField(m map[string]any, key, fallback string) string {
	v, ok := m[key]
	if !ok {
		return fallback
	}
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
