package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lasselehtinen/elvis/internal/config"
	"github.com/lasselehtinen/elvis/pkg/elvis"
)

// ParseMultiYAML parses a file containing multiple YAML documents
// Returns a slice of maps containing the parsed YAML documents
func ParseMultiYAML(filename string) ([]map[string]any, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	data = replaceTabsWithSpaces(data)

	data, err = config.ExpandEnv(data, environMap())
	if err != nil {
		return nil, err
	}

	return ParseMultiYAMLFromBytes(data)
}

// ParseMultiYAMLFromBytes parses byte data containing multiple YAML documents
// Returns a slice of maps containing the parsed YAML documents
func ParseMultiYAMLFromBytes(data []byte) ([]map[string]any, error) {
	// If data is empty or contains only whitespace or only --- separators, return empty slice
	content := strings.TrimSpace(string(data))
	if len(content) == 0 || strings.Trim(content, "- \n\t") == "" {
		return []map[string]any{}, nil
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	var result []map[string]any

	for {
		var doc map[string]any
		if err := decoder.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to decode YAML: %w", err)
		}
		// Skip empty documents (common with trailing ---)
		if len(doc) > 0 {
			result = append(result, doc)
		}
	}

	return result, nil
}

// LoadMetadata builds asset metadata from an optional YAML file and key=value
// pairs. Later documents override earlier ones and pairs override the file.
// Repeating a key in pairs collects the values into a list.
func LoadMetadata(file string, pairs []string) (elvis.Metadata, error) {
	md := elvis.Metadata{}
	if file != "" {
		docs, err := ParseMultiYAML(file)
		if err != nil {
			return nil, err
		}
		for _, doc := range docs {
			for k, v := range doc {
				md[k] = v
			}
		}
	}

	fromPairs := elvis.Metadata{}
	for _, pair := range pairs {
		k, v, found := strings.Cut(pair, "=")
		if !found || k == "" {
			return nil, fmt.Errorf("invalid metadata %q, expected field=value", pair)
		}
		switch cur := fromPairs[k].(type) {
		case nil:
			fromPairs[k] = v
		case string:
			fromPairs[k] = []any{cur, v}
		case []any:
			fromPairs[k] = append(cur, v)
		}
	}
	for k, v := range fromPairs {
		md[k] = v
	}
	return md, nil
}

// parseKeyValues turns key=value pairs into request parameters, in order.
func parseKeyValues(pairs []string) (*elvis.Params, error) {
	params := elvis.NewParams()
	for _, pair := range pairs {
		k, v, found := strings.Cut(pair, "=")
		if !found || k == "" {
			return nil, fmt.Errorf("invalid parameter %q, expected name=value", pair)
		}
		params.Set(k, v)
	}
	return params, nil
}

// parseFacetSelection turns name=v1,v2 pairs into a facet selection, in
// order. Repeating a name adds values.
func parseFacetSelection(pairs []string) (*elvis.Params, error) {
	sel := elvis.NewParams()
	for _, pair := range pairs {
		k, v, found := strings.Cut(pair, "=")
		if !found || k == "" || v == "" {
			return nil, fmt.Errorf("invalid facet selection %q, expected facet=value[,value]", pair)
		}
		values := strings.Split(v, ",")
		if cur, ok := sel.Get(k); ok {
			values = append(cur.([]string), values...)
		}
		sel.Set(k, values)
	}
	return sel, nil
}

func environMap() map[string]string {
	env := map[string]string{}
	for _, e := range os.Environ() {
		if k, v, found := strings.Cut(e, "="); found {
			env[k] = v
		}
	}
	return env
}

func replaceTabsWithSpaces(data []byte) []byte {
	return bytes.ReplaceAll(data, []byte("\t"), []byte("  "))
}
