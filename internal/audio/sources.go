package audio

import (
	"fmt"
	"os/exec"
	"strings"
)

// ListSources returns the capture sources known to PulseAudio/PipeWire.
func ListSources() ([]string, error) {
	if _, err := exec.LookPath("pactl"); err != nil {
		return nil, fmt.Errorf("pactl not found; list devices with 'ffmpeg -sources' instead")
	}

	output, err := exec.Command("pactl", "list", "short", "sources").Output()
	if err != nil {
		return nil, fmt.Errorf("failed to list audio sources: %w", err)
	}

	return parsePactlSources(string(output)), nil
}

// parsePactlSources extracts source names from `pactl list short sources`.
// Monitor sources of output sinks are skipped.
func parsePactlSources(output string) []string {
	var sources []string
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		name := fields[1]
		if strings.HasSuffix(name, ".monitor") {
			continue
		}
		sources = append(sources, name)
	}
	return sources
}

// ValidateSource checks that source is present exactly once in available.
func ValidateSource(source string, available []string) error {
	if source == "" || source == "default" {
		return nil
	}

	count := 0
	for _, s := range available {
		if s == source {
			count++
		}
	}

	switch {
	case count == 0:
		return fmt.Errorf("source not found: %s", source)
	case count > 1:
		return fmt.Errorf("duplicate sources detected for '%s', please close conflicting applications", source)
	}
	return nil
}
