package output

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	PrimaryBlue = "#007bff"
	TextPrimary = "#F8FAFC"
	TextMuted   = "#718096"
	Recording   = "#e74c3c"
	Success     = "#2ecc71"
)

var emotionColors = map[string]string{
	"joy":        "#f6c90e",
	"happiness":  "#f6c90e",
	"gratitude":  "#2ecc71",
	"love":       "#e84393",
	"admiration": "#9b59b6",
	"neutral":    "#95a5a6",
	"sadness":    "#3498db",
	"fear":       "#e67e22",
	"anger":      "#e74c3c",
	"disgust":    "#8e44ad",
	"surprise":   "#1abc9c",
}

var emotionEmoji = map[string]string{
	"joy":       "😄",
	"happiness": "😄",
	"sadness":   "😢",
	"anger":     "😠",
	"fear":      "😨",
	"love":      "❤️",
	"neutral":   "😐",
}

var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(TextPrimary)).
			Background(lipgloss.Color(PrimaryBlue)).
			Padding(0, 1)

	MutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(TextMuted))

	RecordingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(Recording)).
			Bold(true)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(Success))

	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(Recording))

	CardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(TextMuted)).
			Padding(1, 2)
)

// EmotionColor returns the display color for an emotion label.
func EmotionColor(label string) string {
	if c, ok := emotionColors[strings.ToLower(label)]; ok {
		return c
	}
	return PrimaryBlue
}

func EmotionStyle(label string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(EmotionColor(label)))
}

func Emoji(label string) string {
	if e, ok := emotionEmoji[strings.ToLower(label)]; ok {
		return e
	}
	return "🎭"
}
