package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/audiolibrelab/moodcap/internal/emotion"
)

const barWidth = 30

type Formatter struct {
	w io.Writer
}

func NewFormatter(w io.Writer) *Formatter {
	return &Formatter{w: w}
}

// Result prints the dominant emotion and the top scores as bars.
func (f *Formatter) Result(title string, r emotion.Result) {
	fmt.Fprintf(f.w, "%s\n\n", title)
	fmt.Fprintf(f.w, "  %s %s\n", Emoji(r.Dominant()), EmotionStyle(r.Dominant()).Bold(true).Render(Capitalize(r.Dominant())))
	fmt.Fprintf(f.w, "  %s\n\n", MutedStyle.Render("Primary emotion detected"))

	top := r.Top(emotion.TopN)
	if len(top) > 0 {
		fmt.Fprintf(f.w, "  Emotion breakdown:\n")
		width := labelWidth(top)
		for i, s := range top {
			style := MutedStyle
			if i == 0 {
				style = EmotionStyle(r.Dominant())
			}
			fmt.Fprintf(f.w, "  %-*s %s %5.1f%%\n", width, s.Label, style.Render(Bar(s.Probability, barWidth)), s.Percent())
		}
	}

	if w := r.Warning(); w != "" {
		fmt.Fprintln(f.w)
		f.Warning(w)
	}
}

func (f *Formatter) HistoryHeader() {
	fmt.Fprintf(f.w, "📋 Mood history:\n\n")
}

func (f *Formatter) HistoryItem(e emotion.HistoryEntry) {
	when := e.Timestamp
	if t, ok := e.Time(); ok {
		when = t.Local().Format("2006-01-02 15:04")
	}
	kind := ""
	if e.Type != "" {
		kind = MutedStyle.Render(" (" + e.Type + ")")
	}
	fmt.Fprintf(f.w, "  %-16s %s %s%s\n", when, Emoji(e.Dominant), e.Dominant, kind)
}

func (f *Formatter) History(entries []emotion.HistoryEntry) {
	if len(entries) == 0 {
		f.Info("No analyses recorded yet")
		return
	}
	f.HistoryHeader()
	for _, e := range entries {
		f.HistoryItem(e)
	}
}

func (f *Formatter) Playing(path string) {
	fmt.Fprintf(f.w, "▶️  Playing %s\n", path)
}

func (f *Formatter) Analyzing() {
	fmt.Fprintf(f.w, "🔍 Analyzing emotional tone...\n")
}

func (f *Formatter) Error(msg string) {
	fmt.Fprintf(f.w, "❌ %s\n", msg)
}

func (f *Formatter) Info(msg string) {
	fmt.Fprintf(f.w, "ℹ️  %s\n", msg)
}

func (f *Formatter) Success(msg string) {
	fmt.Fprintf(f.w, "✅ %s\n", msg)
}

func (f *Formatter) Warning(msg string) {
	fmt.Fprintf(f.w, "⚠️  %s\n", msg)
}

// FormatElapsed renders whole seconds as mm:ss.
func FormatElapsed(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// Bar renders p in [0,1] as a fixed-width bar.
func Bar(p float64, width int) string {
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	filled := int(p*float64(width) + 0.5)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func Capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func labelWidth(scores []emotion.Score) int {
	w := 0
	for _, s := range scores {
		if len(s.Label) > w {
			w = len(s.Label)
		}
	}
	return w
}
