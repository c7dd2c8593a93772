// Package parser reads runtime values from YAML: resource layers from files
// and single values from command-line arguments.
package parser

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gal-dev/galrt/domain/entities"
	"github.com/gal-dev/galrt/domain/ports"
)

// YAMLResourceParser parses a flat YAML mapping of scalars into a VarMap.
type YAMLResourceParser struct{}

var _ ports.ResourceParser = YAMLResourceParser{}

// NewYAMLResourceParser returns a YAMLResourceParser.
func NewYAMLResourceParser() YAMLResourceParser {
	return YAMLResourceParser{}
}

// Parse decodes data. An empty document is an empty layer.
func (YAMLResourceParser) Parse(data []byte) (entities.VarMap, error) {
	var layer entities.VarMap
	if err := yaml.Unmarshal(data, &layer); err != nil {
		return nil, err
	}
	if layer == nil {
		layer = entities.VarMap{}
	}
	return layer, nil
}

// LoadChain parses each file into one layer of a ResChain, keeping the
// order of paths: earlier files override later ones.
func LoadChain(p ports.ResourceParser, paths ...string) (entities.ResChain, error) {
	chain := make(entities.ResChain, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read resources: %w", err)
		}
		layer, err := p.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse resources %s: %w", path, err)
		}
		chain = append(chain, layer)
	}
	return chain, nil
}

// ParseValue reads s as a YAML scalar: "~" is Unit, "true" is Bool, integers
// of any size are Num. Anything else, including an empty string, is taken
// verbatim as Str.
func ParseValue(s string) entities.Value {
	if strings.TrimSpace(s) == "" {
		return entities.NewStr(s)
	}
	var node yaml.Node
	if err := yaml.Unmarshal([]byte(s), &node); err != nil || len(node.Content) != 1 {
		return entities.NewStr(s)
	}
	var v entities.Value
	if err := node.Content[0].Decode(&v); err != nil {
		return entities.NewStr(s)
	}
	return v
}

// ParseValues applies ParseValue to each argument.
func ParseValues(args []string) []entities.Value {
	values := make([]entities.Value, len(args))
	for i, a := range args {
		values[i] = ParseValue(a)
	}
	return values
}
