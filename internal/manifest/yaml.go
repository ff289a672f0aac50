package manifest

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Converts a YAML or JSON document to JSON.
//
// Scalars are resolved with the YAML 1.2 core schema and keep their source
// text: yes, on and y stay strings, and numbers such as 1.10 or 007 reach
// string fields exactly as written. Numbers that are also valid JSON are
// emitted as JSON numbers so that typed fields still decode them; other
// numeric forms (octal, hex, underscores) become strings.
func yamlToJSON(data []byte) ([]byte, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := writeNode(&buf, &doc, 0); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Alias chains deeper than this are treated as cyclic.
const maxNodeDepth = 1000

func writeNode(buf *bytes.Buffer, n *yaml.Node, depth int) error {
	if depth > maxNodeDepth {
		return errors.Errorf("line %d: document nests too deeply", n.Line)
	}

	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			buf.WriteString("null")
			return nil
		}
		return writeNode(buf, n.Content[0], depth+1)

	case yaml.AliasNode:
		return writeNode(buf, n.Alias, depth+1)

	case yaml.SequenceNode:
		buf.WriteByte('[')
		for i, item := range n.Content {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeNode(buf, item, depth+1); err != nil {
				return err
			}
		}
		buf.WriteByte(']')

	case yaml.MappingNode:
		buf.WriteByte('{')
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i]
			if key.Kind != yaml.ScalarNode {
				return errors.Errorf("line %d: mapping keys must be scalars", key.Line)
			}
			if i > 0 {
				buf.WriteByte(',')
			}
			writeString(buf, key.Value)
			buf.WriteByte(':')
			if err := writeNode(buf, n.Content[i+1], depth+1); err != nil {
				return err
			}
		}
		buf.WriteByte('}')

	case yaml.ScalarNode:
		return writeScalar(buf, n)

	default:
		buf.WriteString("null")
	}

	return nil
}

func writeScalar(buf *bytes.Buffer, n *yaml.Node) error {
	switch n.ShortTag() {
	case "!!null":
		buf.WriteString("null")

	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return errors.Wrapf(err, "line %d", n.Line)
		}
		buf.WriteString(strconv.FormatBool(b))

	case "!!int", "!!float":
		if json.Valid([]byte(n.Value)) {
			buf.WriteString(n.Value)
			return nil
		}
		writeString(buf, n.Value)

	default:
		writeString(buf, n.Value)
	}

	return nil
}

func writeString(buf *bytes.Buffer, s string) {
	data, _ := json.Marshal(s)
	buf.Write(data)
}
