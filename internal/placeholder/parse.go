package placeholder

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// thinkTagPattern matches a leading <think>...</think> block some reasoning models emit.
var thinkTagPattern = regexp.MustCompile(`(?s)^\s*<think>.*?</think>\s*`)

// ParseError reports a reply that is not a JSON array of strings.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	raw := e.Raw
	if len(raw) > 200 {
		raw = raw[:200] + "..."
	}
	return fmt.Sprintf("model reply is not a list of strings: %v (reply: %q)", e.Err, raw)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ParseList decodes a model reply as exactly one JSON array of strings.
// Surrounding whitespace, a leading <think> block and one enclosing markdown
// code fence are tolerated; anything else is a *ParseError.
func ParseList(raw string) ([]string, error) {
	s := strings.TrimSpace(thinkTagPattern.ReplaceAllString(raw, ""))
	s = stripFence(s)
	if s == "" {
		return nil, &ParseError{Raw: raw, Err: errors.New("empty reply")}
	}

	dec := json.NewDecoder(strings.NewReader(s))
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, &ParseError{Raw: raw, Err: err}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &ParseError{Raw: raw, Err: errors.New("trailing data after list")}
	}
	items, ok := v.([]any)
	if !ok {
		return nil, &ParseError{Raw: raw, Err: fmt.Errorf("expected a list, got %s", jsonKind(v))}
	}
	out := make([]string, 0, len(items))
	for i, it := range items {
		str, ok := it.(string)
		if !ok {
			return nil, &ParseError{Raw: raw, Err: fmt.Errorf("element %d is %s, not a string", i, jsonKind(it))}
		}
		out = append(out, str)
	}
	return out, nil
}

// stripFence removes one ``` or ```json fence wrapping the whole reply.
func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	body := strings.TrimSuffix(s[3:], "```")
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		// drop the info string (e.g. "json")
		if !strings.ContainsAny(body[:nl], "[{\"") {
			body = body[nl+1:]
		}
	}
	return strings.TrimSpace(body)
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "a boolean"
	case float64:
		return "a number"
	case string:
		return "a string"
	case []any:
		return "a list"
	case map[string]any:
		return "an object"
	}
	return fmt.Sprintf("%T", v)
}
