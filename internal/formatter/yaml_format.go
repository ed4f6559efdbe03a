package formatter

import (
	"bytes"
	"encoding/json"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/oakwood-commons/listx/pkg/item"
)

// YAMLFormatOptions control YAML rendering.
type YAMLFormatOptions struct {
	Indent              int
	LiteralBlockStrings bool
}

// RenderYAML renders v to YAML. Multi-line strings can be emitted as literal
// blocks ("|") to preserve newlines.
func RenderYAML(v any, opts YAMLFormatOptions) (string, error) {
	var node yaml.Node
	if err := node.Encode(v); err != nil {
		return "", err
	}
	if opts.LiteralBlockStrings {
		applyLiteralStyle(&node)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	indent := opts.Indent
	if indent <= 0 {
		indent = 2
	}
	enc.SetIndent(indent)
	if err := enc.Encode(&node); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func applyLiteralStyle(n *yaml.Node) {
	if n == nil {
		return
	}
	if n.Kind == yaml.ScalarNode && n.Tag == "!!str" && strings.Contains(n.Value, "\n") {
		n.Style = yaml.LiteralStyle
	}
	for _, c := range n.Content {
		applyLiteralStyle(c)
	}
}

type yamlFormatter struct{}

func (yamlFormatter) Items(items []item.Item) (string, error) {
	if items == nil {
		items = []item.Item{}
	}
	return RenderYAML(items, YAMLFormatOptions{LiteralBlockStrings: true})
}

func (yamlFormatter) Error(err error) string {
	out, _ := RenderYAML(errorDoc(err), YAMLFormatOptions{})
	return out
}

type jsonFormatter struct{}

func (jsonFormatter) Items(items []item.Item) (string, error) {
	if items == nil {
		items = []item.Item{}
	}
	b, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b) + "\n", nil
}

func (jsonFormatter) Error(err error) string {
	b, _ := json.MarshalIndent(errorDoc(err), "", "  ")
	return string(b) + "\n"
}

func errorDoc(err error) map[string]string {
	doc := map[string]string{"error": ErrorPlaceholder}
	if err != nil {
		doc["detail"] = err.Error()
	}
	return doc
}
