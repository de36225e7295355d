package output

import (
	"io"

	"gopkg.in/yaml.v3"
)

// YAMLFormatter formats a result as YAML.
type YAMLFormatter struct{}

// NewYAMLFormatter creates a new YAML formatter.
func NewYAMLFormatter() *YAMLFormatter {
	return &YAMLFormatter{}
}

// Format writes the result as a YAML document.
func (f *YAMLFormatter) Format(w io.Writer, r Result) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(r); err != nil {
		return err
	}
	return encoder.Close()
}
