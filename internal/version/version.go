package version

import "fmt"

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// UserAgent is the default client identifier sent to the analysis service.
func UserAgent() string {
	return "moodcap-cli/" + Version
}

func Full() string {
	return fmt.Sprintf("moodcap %s, commit %s, built at %s", Version, Commit, Date)
}
