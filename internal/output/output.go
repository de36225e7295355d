// Package output provides output formatters for the check command.
package output

import (
	"fmt"
	"io"
	"time"

	"github.com/tiagoad/discord-lastfm-rich-presence/internal/model"
)

// Result is the outcome of a single poll.
type Result struct {
	User      string              `json:"user" yaml:"user"`
	Playing   bool                `json:"playing" yaml:"playing"`
	Track     *model.PlayingTrack `json:"track,omitempty" yaml:"track,omitempty"`
	CheckedAt time.Time           `json:"checked_at" yaml:"checked_at"`
}

// NewResult builds a Result for user from a fetched track (nil when nothing
// is playing).
func NewResult(user string, track *model.PlayingTrack, checkedAt time.Time) Result {
	return Result{
		User:      user,
		Playing:   track != nil,
		Track:     track,
		CheckedAt: checkedAt,
	}
}

// Formatter formats a check result for output.
type Formatter interface {
	// Format writes the formatted result to the writer.
	Format(w io.Writer, r Result) error
}

// FormatType represents an output format type.
type FormatType string

const (
	FormatPlain FormatType = "plain"
	FormatJSON  FormatType = "json"
	FormatYAML  FormatType = "yaml"
)

// ValidFormats returns all valid output formats.
func ValidFormats() []FormatType {
	return []FormatType{FormatPlain, FormatJSON, FormatYAML}
}

// NewFormatter creates a formatter for the specified format type.
func NewFormatter(format FormatType) (Formatter, error) {
	switch format {
	case FormatPlain, "":
		return NewPlainFormatter(), nil
	case FormatJSON:
		return NewJSONFormatter(), nil
	case FormatYAML:
		return NewYAMLFormatter(), nil
	default:
		return nil, fmt.Errorf("invalid output format %q, must be one of: %v", format, ValidFormats())
	}
}
