package frontmatter

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrNotMapping is returned by Parse when the YAML document is not a mapping.
var ErrNotMapping = errors.New("front matter must be a mapping")

// Parse decodes raw front matter (without delimiters) into a mapping Value.
// An empty block yields an empty mapping.
func Parse(frontmatter []byte) (Value, error) {
	v, err := Decode(frontmatter)
	if err != nil {
		return Value{}, err
	}
	switch v.Kind() {
	case KindNull:
		return EmptyMap(), nil
	case KindMapping:
		return v, nil
	default:
		return Value{}, fmt.Errorf("%w, got %s", ErrNotMapping, v.Kind())
	}
}

// Decode decodes any YAML (or JSON) document into a Value.
func Decode(data []byte) (Value, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Value{}, err
	}
	if doc.Kind == 0 {
		return Value{}, nil
	}
	return FromNode(&doc)
}

// UnmarshalYAML lets Value appear directly in yaml-tagged structs.
func (v *Value) UnmarshalYAML(n *yaml.Node) error {
	val, err := FromNode(n)
	if err != nil {
		return err
	}
	*v = val
	return nil
}

// FromNode converts a yaml.v3 node, keeping mapping key order.
func FromNode(n *yaml.Node) (Value, error) {
	return fromNode(n, 0)
}

const maxNodeDepth = 256

func fromNode(n *yaml.Node, depth int) (Value, error) {
	if n == nil {
		return Value{}, nil
	}
	if depth > maxNodeDepth {
		return Value{}, fmt.Errorf("yaml nesting deeper than %d at line %d", maxNodeDepth, n.Line)
	}
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return Value{}, nil
		}
		return fromNode(n.Content[0], depth+1)
	case yaml.AliasNode:
		return fromNode(n.Alias, depth+1)
	case yaml.SequenceNode:
		items := make([]Value, 0, len(n.Content))
		for _, c := range n.Content {
			item, err := fromNode(c, depth+1)
			if err != nil {
				return Value{}, err
			}
			items = append(items, item)
		}
		return Value{kind: KindSequence, seq: items}, nil
	case yaml.MappingNode:
		pairs := make([]Pair, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i]
			val, err := fromNode(n.Content[i+1], depth+1)
			if err != nil {
				return Value{}, err
			}
			pairs = append(pairs, Pair{Key: key.Value, Value: val})
		}
		return Map(pairs...), nil
	case yaml.ScalarNode:
		return fromScalar(n)
	default:
		return Value{}, fmt.Errorf("unsupported yaml node kind %d at line %d", n.Kind, n.Line)
	}
}

func fromScalar(n *yaml.Node) (Value, error) {
	switch n.ShortTag() {
	case "!!null":
		return Value{}, nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return Value{}, err
		}
		return Bool(b), nil
	case "!!int":
		if i, err := strconv.ParseInt(n.Value, 0, 64); err == nil {
			return Int(i), nil
		}
		var f float64
		if err := n.Decode(&f); err != nil {
			return String(n.Value), nil
		}
		return Number(f), nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return Value{}, err
		}
		return Number(f), nil
	case "!!timestamp":
		var t time.Time
		if err := n.Decode(&t); err != nil {
			return String(n.Value), nil
		}
		return Time(t), nil
	default:
		return String(n.Value), nil
	}
}
