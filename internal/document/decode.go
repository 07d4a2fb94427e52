package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DecodeJSON strictly parses a single JSON value. Trailing data is an error.
// Duplicate keys keep their first position and the last value.
func DecodeJSON(data []byte) (*Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeJSONValue(dec)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("invalid data after top-level value at offset %d", dec.InputOffset())
	}
	return v, nil
}

func decodeJSONValue(dec *json.Decoder) (*Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			m := NewMap()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("invalid object key %v", keyTok)
				}
				val, err := decodeJSONValue(dec)
				if err != nil {
					return nil, err
				}
				m.Set(key, val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return m, nil
		case '[':
			s := NewSeq()
			for dec.More() {
				item, err := decodeJSONValue(dec)
				if err != nil {
					return nil, err
				}
				s.Append(item)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return s, nil
		}
		return nil, fmt.Errorf("unexpected delimiter %q", t)
	case nil:
		return NullValue(), nil
	case bool:
		return BoolValue(t), nil
	case json.Number:
		return numberFromLiteral(string(t))
	case string:
		return StringValue(t), nil
	}
	return nil, fmt.Errorf("unexpected token %v", tok)
}

// numberFromLiteral canonicalizes a numeric literal so that equal numbers
// from JSON and YAML encode identically.
func numberFromLiteral(lit string) (*Value, error) {
	if i, err := strconv.ParseInt(lit, 10, 64); err == nil {
		return Int(i), nil
	}
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return nil, fmt.Errorf("invalid number %q", lit)
	}
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return StringValue(lit), nil
	}
	return Float(f), nil
}

// DecodeYAML parses the first YAML document. An empty document decodes to null.
func DecodeYAML(data []byte) (*Value, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	if root.Kind == 0 {
		return NullValue(), nil
	}
	c := &yamlConverter{active: map[*yaml.Node]bool{}}
	return c.convert(&root)
}

type yamlConverter struct {
	active map[*yaml.Node]bool
}

func (c *yamlConverter) convert(n *yaml.Node) (*Value, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return NullValue(), nil
		}
		return c.convert(n.Content[0])
	case yaml.AliasNode:
		if n.Alias == nil {
			return NullValue(), nil
		}
		if c.active[n.Alias] {
			return nil, fmt.Errorf("yaml: line %d: recursive alias *%s", n.Line, n.Value)
		}
		c.active[n.Alias] = true
		defer delete(c.active, n.Alias)
		return c.convert(n.Alias)
	case yaml.MappingNode:
		return c.convertMapping(n)
	case yaml.SequenceNode:
		s := NewSeq()
		for _, item := range n.Content {
			v, err := c.convert(item)
			if err != nil {
				return nil, err
			}
			s.Append(v)
		}
		return s, nil
	case yaml.ScalarNode:
		return convertScalar(n)
	}
	return nil, fmt.Errorf("yaml: line %d: unsupported node kind %d", n.Line, n.Kind)
}

func (c *yamlConverter) convertMapping(n *yaml.Node) (*Value, error) {
	m := NewMap()
	for i := 0; i+1 < len(n.Content); i += 2 {
		keyNode, valNode := n.Content[i], n.Content[i+1]

		if keyNode.Kind == yaml.ScalarNode && keyNode.ShortTag() == "!!merge" {
			if err := c.merge(m, valNode); err != nil {
				return nil, err
			}
			continue
		}

		key, err := mappingKey(keyNode)
		if err != nil {
			return nil, err
		}
		val, err := c.convert(valNode)
		if err != nil {
			return nil, err
		}
		m.Set(key, val)
	}
	return m, nil
}

// merge applies a "<<" merge key: merged keys never override keys already present.
func (c *yamlConverter) merge(into *Value, src *yaml.Node) error {
	sources := []*yaml.Node{src}
	if src.Kind == yaml.SequenceNode {
		sources = src.Content
	}
	for _, s := range sources {
		v, err := c.convert(s)
		if err != nil {
			return err
		}
		if v.Kind() != Map {
			return fmt.Errorf("yaml: line %d: merge value must be a mapping", s.Line)
		}
		for _, m := range v.Members() {
			if !into.Has(m.Key) {
				into.Set(m.Key, m.Value)
			}
		}
	}
	return nil
}

func mappingKey(n *yaml.Node) (string, error) {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	if n.Kind != yaml.ScalarNode {
		return "", fmt.Errorf("yaml: line %d: mapping keys must be scalars", n.Line)
	}
	if n.ShortTag() == "!!null" {
		return "null", nil
	}
	return n.Value, nil
}

func convertScalar(n *yaml.Node) (*Value, error) {
	switch n.ShortTag() {
	case "!!null":
		return NullValue(), nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, err
		}
		return BoolValue(b), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err == nil {
			return Int(i), nil
		}
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, err
		}
		return Float(f), nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, err
		}
		if math.IsInf(f, 0) || math.IsNaN(f) {
			return StringValue(strings.TrimPrefix(n.Value, "+")), nil
		}
		return Float(f), nil
	default:
		// !!str, !!timestamp, !!binary and custom tags keep their literal text.
		return StringValue(n.Value), nil
	}
}
