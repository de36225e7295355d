package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/tiagoad/discord-lastfm-rich-presence/internal/presence"
)

// PlainFormatter formats a result as styled text.
type PlainFormatter struct {
	headerStyle lipgloss.Style
	labelStyle  lipgloss.Style
	mutedStyle  lipgloss.Style
}

// NewPlainFormatter creates a new plain text formatter.
func NewPlainFormatter() *PlainFormatter {
	return &PlainFormatter{
		headerStyle: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		labelStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		mutedStyle:  lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("8")),
	}
}

// Format writes the result as plain text.
func (f *PlainFormatter) Format(w io.Writer, r Result) error {
	var sb strings.Builder

	if r.Track == nil {
		sb.WriteString(f.mutedStyle.Render(fmt.Sprintf("%s is not playing anything", r.User)))
		sb.WriteString("\n")
		_, err := io.WriteString(w, sb.String())
		return err
	}

	t := r.Track
	sb.WriteString(f.headerStyle.Render(t.Title) + "\n")
	sb.WriteString(f.labelStyle.Render("Artist: ") + t.Artist + "\n")
	if t.Album != "" {
		sb.WriteString(f.labelStyle.Render("Album: ") + t.Album + "\n")
	}

	if t.NowPlaying {
		sb.WriteString(f.labelStyle.Render("Status: ") + "now playing\n")
	} else {
		sb.WriteString(f.labelStyle.Render("Status: ") + "played " + humanize.RelTime(t.PlayedAt, r.CheckedAt, "ago", "from now") + "\n")
	}
	if t.URL != "" {
		sb.WriteString(f.labelStyle.Render("URL: ") + t.URL + "\n")
	}

	activity := presence.ActivityFor(*t)
	sb.WriteString(f.labelStyle.Render("Presence: ") + activity.Details + " / " + activity.State + "\n")

	_, err := io.WriteString(w, sb.String())
	return err
}
