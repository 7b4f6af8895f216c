package config

import (
	"bytes"
	"fmt"
	"regexp"
	"text/template"
)

// TemplateContext is the data a config file template is executed with.
type TemplateContext struct {
	ENV map[string]string
}

var missingKeyRegex = regexp.MustCompile(`map has no entry for key "(.*?)"`)

// ExpandEnv replaces {{ .ENV.VAR }} placeholders with values from env, so
// secrets can stay out of the config file.
func ExpandEnv(input []byte, env map[string]string) ([]byte, error) {
	if !bytes.Contains(input, []byte("{{")) {
		return input, nil
	}
	tmpl, err := template.New("config").Option("missingkey=error").Parse(string(input))
	if err != nil {
		return nil, err
	}

	var output bytes.Buffer
	if err := tmpl.Execute(&output, TemplateContext{ENV: env}); err != nil {
		if matches := missingKeyRegex.FindStringSubmatch(err.Error()); len(matches) == 2 {
			return nil, fmt.Errorf("missing environment variable: %s (set it in your shell or .env file)", matches[1])
		}
		return nil, fmt.Errorf("template error: %w", err)
	}
	return output.Bytes(), nil
}
