package emotion

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParse_RankedBreakdown(t *testing.T) {
	body := []byte(`{"dominant":"joy","probabilities":{"joy":0.8,"sadness":0.1,"anger":0.1}}`)

	r, err := Parse(body)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if r.Dominant() != "joy" {
		t.Errorf("Expected dominant joy, got %s", r.Dominant())
	}

	top := r.Top(TopN)
	want := []Score{{"joy", 0.8}, {"sadness", 0.1}, {"anger", 0.1}}
	if len(top) != len(want) {
		t.Fatalf("Expected %d scores, got %d", len(want), len(top))
	}
	for i := range want {
		if top[i] != want[i] {
			t.Errorf("Score %d: expected %+v, got %+v", i, want[i], top[i])
		}
	}
	if top[0].Percent() != 80.0 {
		t.Errorf("Expected 80.0%%, got %v", top[0].Percent())
	}
	if top[1].Percent() != 10.0 {
		t.Errorf("Expected 10.0%%, got %v", top[1].Percent())
	}
}

func TestTop_TruncatesAndKeepsTieOrder(t *testing.T) {
	body := []byte(`{"dominant":"neutral","probabilities":{
		"fear":0.05,"neutral":0.4,"surprise":0.1,"disgust":0.05,
		"joy":0.2,"anger":0.1,"sadness":0.1}}`)

	r, err := Parse(body)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	top := r.Top(TopN)
	want := []string{"neutral", "joy", "surprise", "anger", "sadness"}
	if len(top) != TopN {
		t.Fatalf("Expected %d scores, got %d", TopN, len(top))
	}
	for i, label := range want {
		if top[i].Label != label {
			t.Errorf("Position %d: expected %s, got %s", i, label, top[i].Label)
		}
	}
	for i := 1; i < len(top); i++ {
		if top[i].Probability > top[i-1].Probability {
			t.Errorf("Scores not descending at %d: %v > %v", i, top[i].Probability, top[i-1].Probability)
		}
	}
}

func TestParse_DerivesDominantWhenAbsent(t *testing.T) {
	r, err := Parse([]byte(`{"probabilities":{"calm":0.3,"Anger":0.35,"joy":0.35}}`))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if r.Dominant() != "anger" {
		t.Errorf("Expected first max label 'anger', got %s", r.Dominant())
	}
	if _, ok := r.Probability("ANGER"); !ok {
		t.Error("Expected case-insensitive probability lookup")
	}
}

func TestParse_KeepsServiceDominant(t *testing.T) {
	r, err := Parse([]byte(`{"dominant":"Joy","probabilities":{"joy":0.5,"sadness":0.5}}`))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if r.Dominant() != "joy" {
		t.Errorf("Expected lower-cased service dominant 'joy', got %s", r.Dominant())
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{"service error", `{"error":"model not loaded"}`, ErrServiceReported},
		{"empty object", `{}`, ErrEmptyResult},
		{"null probabilities", `{"probabilities":null}`, ErrEmptyResult},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.body))
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}

	if _, err := Parse([]byte(`{"probabilities":["joy"]}`)); err == nil {
		t.Error("Expected error for array probabilities")
	}
	if _, err := Parse([]byte(`<html>`)); err == nil {
		t.Error("Expected error for non-JSON body")
	}
}

func TestParse_ReportedMessage(t *testing.T) {
	_, err := Parse([]byte(`{"error":"model not loaded"}`))
	var reported *ReportedError
	if !errors.As(err, &reported) {
		t.Fatalf("Expected ReportedError, got %T: %v", err, err)
	}
	if reported.Message != "model not loaded" {
		t.Errorf("Expected service message, got %q", reported.Message)
	}
}

func TestParse_Warning(t *testing.T) {
	r, err := Parse([]byte(`{"dominant":"neutral","probabilities":{"neutral":1.0},"warning":"Audio model unavailable"}`))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if r.Warning() != "Audio model unavailable" {
		t.Errorf("Expected warning to be kept, got %q", r.Warning())
	}
}

func TestNew_DominantOnly(t *testing.T) {
	r := New("sadness")
	if r.Dominant() != "sadness" {
		t.Errorf("Expected dominant sadness, got %s", r.Dominant())
	}
	if len(r.Top(TopN)) != 0 {
		t.Errorf("Expected no scores, got %v", r.Top(TopN))
	}
	if r.Len() != 0 {
		t.Errorf("Expected no labels, got %d", r.Len())
	}
}

func TestScore_PercentRounding(t *testing.T) {
	tests := []struct {
		p    float64
		want float64
	}{
		{0.12345, 12.3},
		{0.12355, 12.4},
		{1, 100},
		{0, 0},
	}
	for _, tt := range tests {
		if got := (Score{Probability: tt.p}).Percent(); got != tt.want {
			t.Errorf("Percent(%v): expected %v, got %v", tt.p, tt.want, got)
		}
	}
}

func TestResult_MarshalJSON(t *testing.T) {
	r := New("", Score{"joy", 0.7}, Score{"anger", 0.3})

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	var out struct {
		Dominant string  `json:"dominant"`
		Top      []Score `json:"top"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Failed to decode marshaled result: %v", err)
	}
	if out.Dominant != "joy" {
		t.Errorf("Expected dominant joy, got %s", out.Dominant)
	}
	if len(out.Top) != 2 || out.Top[0].Label != "joy" {
		t.Errorf("Expected top scores to start with joy, got %+v", out.Top)
	}
}

func TestHistoryEntry_Time(t *testing.T) {
	h := HistoryEntry{Timestamp: "2024-03-01 12:30:45"}
	ts, ok := h.Time()
	if !ok {
		t.Fatal("Expected timestamp to parse")
	}
	if ts.Hour() != 12 || ts.Minute() != 30 {
		t.Errorf("Unexpected parsed time %v", ts)
	}

	if _, ok := (HistoryEntry{Timestamp: "yesterday"}).Time(); ok {
		t.Error("Expected unparseable timestamp to fail")
	}
}
