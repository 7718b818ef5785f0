package template

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

var placeholderRe = regexp.MustCompile(`\{\{\s*([^{}\s]+)\s*\}\}`)

// Scope is the JSON document placeholders are resolved against
type Scope struct {
	doc []byte
}

// NewScope creates an empty scope
func NewScope() *Scope {
	return &Scope{doc: []byte("{}")}
}

// NewScopeFrom creates a scope holding the given values
func NewScopeFrom(values map[string]interface{}) (*Scope, error) {
	if values == nil {
		return NewScope(), nil
	}
	doc, err := json.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("failed to encode template scope: %w", err)
	}
	return &Scope{doc: doc}, nil
}

// Set stores value under a top-level key
func (s *Scope) Set(key string, value interface{}) error {
	doc, err := sjson.SetBytes(s.doc, escapeSegment(key), value)
	if err != nil {
		return fmt.Errorf("failed to set template scope key %s: %w", key, err)
	}
	s.doc = doc
	return nil
}

// Lookup returns the stringified value at a dot-separated path.
// Missing paths and JSON null report false.
func (s *Scope) Lookup(path string) (string, bool) {
	segments := strings.Split(path, ".")
	for i, seg := range segments {
		if seg == "" {
			return "", false
		}
		segments[i] = escapeSegment(seg)
	}

	res := gjson.GetBytes(s.doc, strings.Join(segments, "."))
	if !res.Exists() || res.Type == gjson.Null {
		return "", false
	}
	if res.Type == gjson.String {
		return res.Str, true
	}
	return res.Raw, true
}

// Resolve returns a copy of args with every {{path}} placeholder in string
// leaves replaced. Unresolved placeholders are kept verbatim.
func (s *Scope) Resolve(args map[string]interface{}) map[string]interface{} {
	if args == nil {
		return nil
	}
	return s.resolveMap(args)
}

// ResolveValue resolves placeholders in an arbitrary argument value
func (s *Scope) ResolveValue(value interface{}) interface{} {
	switch v := value.(type) {
	case string:
		return s.resolveString(v)
	case []interface{}:
		result := make([]interface{}, len(v))
		for i, item := range v {
			result[i] = s.ResolveValue(item)
		}
		return result
	case []string:
		result := make([]string, len(v))
		for i, item := range v {
			result[i] = s.resolveString(item)
		}
		return result
	case map[string]interface{}:
		return s.resolveMap(v)
	default:
		return value
	}
}

func (s *Scope) resolveMap(m map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{}, len(m))
	for key, val := range m {
		result[key] = s.ResolveValue(val)
	}
	return result
}

func (s *Scope) resolveString(str string) string {
	if !strings.Contains(str, "{{") {
		return str
	}
	return placeholderRe.ReplaceAllStringFunc(str, func(match string) string {
		path := placeholderRe.FindStringSubmatch(match)[1]
		if value, ok := s.Lookup(path); ok {
			return value
		}
		return match
	})
}

// Resolve replaces placeholders in args using values as the scope.
func Resolve(args map[string]interface{}, values map[string]interface{}) (map[string]interface{}, error) {
	scope, err := NewScopeFrom(values)
	if err != nil {
		return nil, err
	}
	return scope.Resolve(args), nil
}

// escapeSegment escapes gjson/sjson path syntax inside a single key
func escapeSegment(seg string) string {
	var b strings.Builder
	for _, r := range seg {
		switch r {
		case '\\', '.', '*', '?', '|', '#', '@', '!', '=', '<', '>', '%', ',', ':', '[', ']', '{', '}', '(', ')', '"':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
