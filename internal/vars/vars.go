// Package vars holds build metadata injected with -ldflags "-X" and the
// identity gsdash presents to the monitoring API.
package vars

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// License of the project
const License = "AGPL-3.0"

// Set at link time.
var (
	Name    = "gsdash"
	Version = "dev"
	Commit  = "unknown"
	URL     = "https://github.com/woozymasta/gsdash"

	// strings because -X cannot set typed values
	revision  string
	buildTime string
)

// BuildInfo describes the running binary.
type BuildInfo struct {
	BuildTime   time.Time `json:"build_time,omitzero"`
	Name        string    `json:"name"`
	Version     string    `json:"version"`
	Commit      string    `json:"commit"`
	CommitShort string    `json:"commit_short,omitempty"`
	URL         string    `json:"url,omitempty"`
	License     string    `json:"license,omitempty"`
	Revision    int       `json:"revision,omitempty"`
}

// Info returns the build metadata of the running binary.
func Info() BuildInfo {
	info := BuildInfo{
		Name:        Name,
		Version:     Version,
		Commit:      Commit,
		CommitShort: CommitShort(),
		URL:         URL,
		License:     License,
	}

	if n, err := strconv.Atoi(revision); err == nil {
		info.Revision = n
	}
	if t, err := time.Parse(time.RFC3339, buildTime); err == nil {
		info.BuildTime = t.UTC()
	}

	return info
}

// Fprint writes the build metadata as aligned "key: value" lines.
func Fprint(w io.Writer) error {
	info := Info()

	built := "unknown"
	if !info.BuildTime.IsZero() {
		built = info.BuildTime.Format(time.RFC3339)
	}

	rows := [][2]string{
		{"name", info.Name},
		{"version", info.Version},
		{"commit", info.Commit},
		{"revision", strconv.Itoa(info.Revision)},
		{"built", built},
		{"url", info.URL},
		{"license", info.License},
	}

	var b strings.Builder
	for _, row := range rows {
		fmt.Fprintf(&b, "%-9s %s\n", row[0]+":", row[1])
	}
	_, err := io.WriteString(w, b.String())

	return err
}

// CommitShort returns the first 7 characters of the git commit hash.
func CommitShort() string {
	if len(Commit) > 7 {
		return Commit[:7]
	}

	return Commit
}

// UserAgent is the User-Agent header sent to the monitoring API,
// e.g. "gsdash/v1.2.3 (da15c17)".
func UserAgent() string {
	return fmt.Sprintf("%s/%s (%s)", Name, Version, CommitShort())
}
