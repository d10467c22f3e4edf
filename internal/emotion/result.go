package emotion

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

// TopN is the number of scores shown for a result.
const TopN = 5

var (
	// ErrServiceReported matches the error Parse returns when the body
	// carries an error field.
	ErrServiceReported = errors.New("service reported an error")
	// ErrEmptyResult means the body had neither a dominant label nor probabilities.
	ErrEmptyResult = errors.New("result has no dominant emotion and no probabilities")
)

// ReportedError is the message the service sent instead of a result.
type ReportedError struct {
	Message string
}

func (e *ReportedError) Error() string {
	return fmt.Sprintf("%v: %s", ErrServiceReported, e.Message)
}

func (e *ReportedError) Is(target error) bool { return target == ErrServiceReported }

// Score is one label of a distribution.
type Score struct {
	Label       string  `json:"label"`
	Probability float64 `json:"probability"`
}

// Percent is the probability as a percentage rounded to one decimal.
func (s Score) Percent() float64 {
	return math.Round(s.Probability*1000) / 10
}

// Result is an analysis outcome. The zero value is an empty result.
type Result struct {
	dominant string
	labels   []string
	probs    map[string]float64
	warning  string
}

// New builds a Result from scores given in service order. An empty dominant
// is derived from the scores.
func New(dominant string, scores ...Score) Result {
	var d Distribution
	for _, s := range scores {
		d.add(s.Label, s.Probability)
	}
	return newResult(dominant, d, "")
}

func newResult(dominant string, d Distribution, warning string) Result {
	r := Result{
		dominant: strings.ToLower(strings.TrimSpace(dominant)),
		labels:   d.labels,
		probs:    d.values,
		warning:  warning,
	}
	if r.dominant == "" {
		r.dominant = r.argmax()
	}
	return r
}

// argmax returns the first label with the highest probability.
func (r Result) argmax() string {
	best := ""
	max := math.Inf(-1)
	for _, label := range r.labels {
		if p := r.probs[label]; p > max {
			best, max = label, p
		}
	}
	return best
}

func (r Result) Dominant() string { return r.dominant }

func (r Result) Warning() string { return r.warning }

func (r Result) Len() int { return len(r.labels) }

// Probability returns the probability of label, which is matched case-insensitively.
func (r Result) Probability(label string) (float64, bool) {
	p, ok := r.probs[strings.ToLower(label)]
	return p, ok
}

// Top returns up to n scores sorted by descending probability. Equal
// probabilities keep the service's order.
func (r Result) Top(n int) []Score {
	scores := make([]Score, 0, len(r.labels))
	for _, label := range r.labels {
		scores = append(scores, Score{Label: label, Probability: r.probs[label]})
	}
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Probability > scores[j].Probability
	})
	if n >= 0 && len(scores) > n {
		scores = scores[:n]
	}
	return scores
}

type resultJSON struct {
	Dominant      string             `json:"dominant"`
	Probabilities map[string]float64 `json:"probabilities"`
	Top           []Score            `json:"top"`
	Warning       string             `json:"warning,omitempty"`
}

func (r Result) MarshalJSON() ([]byte, error) {
	probs := make(map[string]float64, len(r.probs))
	for k, v := range r.probs {
		probs[k] = v
	}
	return json.Marshal(resultJSON{
		Dominant:      r.dominant,
		Probabilities: probs,
		Top:           r.Top(TopN),
		Warning:       r.warning,
	})
}

// envelope is the response body of both analyze endpoints.
type envelope struct {
	Dominant      string       `json:"dominant"`
	Probabilities Distribution `json:"probabilities"`
	Error         string       `json:"error"`
	Warning       string       `json:"warning"`
}

func (e envelope) result() (Result, error) {
	if strings.TrimSpace(e.Dominant) == "" && e.Probabilities.Len() == 0 {
		return Result{}, ErrEmptyResult
	}
	return newResult(e.Dominant, e.Probabilities, e.Warning), nil
}

// Parse decodes an analyze response body. A body with an error field
// yields a *ReportedError.
func Parse(body []byte) (Result, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Result{}, fmt.Errorf("decode result: %w", err)
	}
	if env.Error != "" {
		return Result{}, &ReportedError{Message: env.Error}
	}
	return env.result()
}

// Distribution is a label to probability object that remembers key order.
type Distribution struct {
	labels []string
	values map[string]float64
}

func (d Distribution) Len() int { return len(d.labels) }

func (d *Distribution) add(label string, p float64) {
	label = strings.ToLower(strings.TrimSpace(label))
	if d.values == nil {
		d.values = make(map[string]float64)
	}
	if _, seen := d.values[label]; !seen {
		d.labels = append(d.labels, label)
	}
	d.values[label] = p
}

func (d *Distribution) UnmarshalJSON(data []byte) error {
	*d = Distribution{}
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("probabilities: expected object, got %v", tok)
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		label, ok := tok.(string)
		if !ok {
			return fmt.Errorf("probabilities: expected key, got %v", tok)
		}
		var p float64
		if err := dec.Decode(&p); err != nil {
			return fmt.Errorf("probabilities[%s]: %w", label, err)
		}
		d.add(label, p)
	}

	_, err = dec.Token()
	return err
}
