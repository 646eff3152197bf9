package searchql

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Form is an insertion-ordered mapping of field names to values. Values are
// scalars (nil, string, bool, integers, floats), nested *Form values or
// FormList values.
type Form struct {
	keys   []string
	values map[string]any
}

// FormList is a sequence of repeated sub-form entries.
type FormList []*Form

// NewForm returns an empty form.
func NewForm() *Form {
	return &Form{values: make(map[string]any)}
}

// Set stores value under key. Replacing a key keeps its original position.
func (f *Form) Set(key string, value any) *Form {
	if f.values == nil {
		f.values = make(map[string]any)
	}
	if _, exists := f.values[key]; !exists {
		f.keys = append(f.keys, key)
	}
	f.values[key] = value
	return f
}

// Get returns the value stored under key.
func (f *Form) Get(key string) (any, bool) {
	if f == nil {
		return nil, false
	}
	v, ok := f.values[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (f *Form) Keys() []string {
	if f == nil {
		return nil
	}
	return append([]string(nil), f.keys...)
}

// Len returns the number of keys.
func (f *Form) Len() int {
	if f == nil {
		return 0
	}
	return len(f.keys)
}

// IsEmpty reports whether v counts as "not submitted".
func IsEmpty(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

// KeySet records the keys of one mapping that derivations have consumed.
type KeySet map[string]struct{}

// Add marks keys as consumed.
func (s KeySet) Add(keys ...string) {
	for _, k := range keys {
		s[k] = struct{}{}
	}
}

// Has reports whether key was consumed.
func (s KeySet) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// UnmarshalJSON decodes a JSON object keeping the key order.
func (f *Form) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("form must be a JSON object")
	}
	decoded, err := decodeJSONObject(dec)
	if err != nil {
		return err
	}
	*f = *decoded
	return nil
}

func decodeJSONObject(dec *json.Decoder) (*Form, error) {
	form := NewForm()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected object key %v", tok)
		}
		value, err := decodeJSONValue(dec)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		form.Set(key, value)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return form, nil
}

func decodeJSONValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return decodeJSONObject(dec)
		case '[':
			var list FormList
			for dec.More() {
				item, err := decodeJSONValue(dec)
				if err != nil {
					return nil, err
				}
				sub, ok := item.(*Form)
				if !ok {
					return nil, fmt.Errorf("list entries must be objects, got %T", item)
				}
				list = append(list, sub)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return list, nil
		}
		return nil, fmt.Errorf("unexpected delimiter %v", t)
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i, nil
		}
		return t.Float64()
	default:
		return t, nil
	}
}

// UnmarshalYAML decodes a YAML mapping keeping the key order.
func (f *Form) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.DocumentNode && len(node.Content) == 1 {
		node = node.Content[0]
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: form must be a mapping", node.Line)
	}
	decoded, err := decodeYAMLMapping(node)
	if err != nil {
		return err
	}
	*f = *decoded
	return nil
}

func decodeYAMLMapping(node *yaml.Node) (*Form, error) {
	form := NewForm()
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		value, err := decodeYAMLValue(node.Content[i+1])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		form.Set(key, value)
	}
	return form, nil
}

func decodeYAMLValue(node *yaml.Node) (any, error) {
	switch node.Kind {
	case yaml.MappingNode:
		return decodeYAMLMapping(node)
	case yaml.SequenceNode:
		list := make(FormList, 0, len(node.Content))
		for _, item := range node.Content {
			if item.Kind == yaml.AliasNode {
				item = item.Alias
			}
			if item.Kind != yaml.MappingNode {
				return nil, fmt.Errorf("line %d: list entries must be mappings", item.Line)
			}
			sub, err := decodeYAMLMapping(item)
			if err != nil {
				return nil, err
			}
			list = append(list, sub)
		}
		return list, nil
	case yaml.AliasNode:
		return decodeYAMLValue(node.Alias)
	case yaml.ScalarNode:
		var v any
		if err := node.Decode(&v); err != nil {
			return nil, err
		}
		return v, nil
	}
	return nil, fmt.Errorf("line %d: unsupported YAML node", node.Line)
}
