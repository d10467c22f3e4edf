package emotion

import "time"

// HistoryEntry is one past analysis as recorded by the service.
type HistoryEntry struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Dominant  string `json:"dominant"`
	Type      string `json:"type,omitempty"`
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999",
}

// Time parses Timestamp. The service stores UTC without a zone suffix.
func (h HistoryEntry) Time() (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, h.Timestamp, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
