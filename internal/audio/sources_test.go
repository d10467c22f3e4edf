package audio

import (
	"strings"
	"testing"
)

func TestParsePactlSources(t *testing.T) {
	output := `0	alsa_output.pci-0000_00_1f.3.analog-stereo.monitor	PipeWire	s32le 2ch 48000Hz	SUSPENDED
1	alsa_input.pci-0000_00_1f.3.analog-stereo	PipeWire	s32le 2ch 48000Hz	RUNNING
2	bluez_input.00_1B_66_AA_BB_CC	PipeWire	s16le 1ch 16000Hz	IDLE

`
	sources := parsePactlSources(output)
	if len(sources) != 2 {
		t.Fatalf("Expected 2 sources, got %d: %v", len(sources), sources)
	}
	if sources[0] != "alsa_input.pci-0000_00_1f.3.analog-stereo" {
		t.Errorf("Unexpected first source %s", sources[0])
	}
	if sources[1] != "bluez_input.00_1B_66_AA_BB_CC" {
		t.Errorf("Unexpected second source %s", sources[1])
	}
}

func TestValidateSource_Success(t *testing.T) {
	available := []string{"alsa_input.usb-mic", "alsa_input.builtin"}

	if err := ValidateSource("alsa_input.usb-mic", available); err != nil {
		t.Errorf("Expected no error for valid single source, got: %v", err)
	}
}

func TestValidateSource_Default(t *testing.T) {
	if err := ValidateSource("default", nil); err != nil {
		t.Errorf("Expected default to be accepted, got: %v", err)
	}
	if err := ValidateSource("", nil); err != nil {
		t.Errorf("Expected empty source to be accepted, got: %v", err)
	}
}

func TestValidateSource_NotFound(t *testing.T) {
	err := ValidateSource("alsa_input.missing", []string{"alsa_input.builtin"})
	if err == nil {
		t.Fatal("Expected error for nonexistent source")
	}
	if !strings.Contains(err.Error(), "source not found") {
		t.Errorf("Expected 'source not found' error, got: %v", err)
	}
}

func TestValidateSource_DuplicateDetection(t *testing.T) {
	available := []string{"alsa_input.usb-mic", "alsa_input.usb-mic"}

	err := ValidateSource("alsa_input.usb-mic", available)
	if err == nil {
		t.Fatal("Expected error for duplicate sources")
	}
	if !strings.Contains(err.Error(), "duplicate sources detected") {
		t.Errorf("Expected duplicate error, got: %v", err)
	}
}
