package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// SummaryFile is the name of the summary written into every run directory.
const SummaryFile = "summary.txt"

// Summary is the outcome of one batch run.
type Summary struct {
	Timestamp  time.Time
	Dir        string
	Total      int
	Successful int
	Failed     int
	URLs       []string

	// Warnings carries driver fallbacks and version mismatches.
	Warnings []string
	// Interrupted is set when the run was cancelled.
	Interrupted bool
}

func (s Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Screenshot Run on %s\n", s.Timestamp.Format(TimestampLayout))
	fmt.Fprintf(&b, "Total URLs: %d\n", s.Total)
	fmt.Fprintf(&b, "Successful: %d\n", s.Successful)
	fmt.Fprintf(&b, "Failed: %d\n", s.Failed)
	if s.Interrupted {
		b.WriteString("Interrupted: yes\n")
	}

	if len(s.Warnings) > 0 {
		b.WriteString("\nWarnings:\n")
		for _, w := range s.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}

	b.WriteString("\nURLs processed:\n")
	for _, u := range s.URLs {
		fmt.Fprintf(&b, "- %s\n", u)
	}
	return b.String()
}

// Write stores the summary as dir/summary.txt and returns its path.
func (s Summary) Write(dir string) (string, error) {
	path := filepath.Join(dir, SummaryFile)
	if err := os.WriteFile(path, []byte(s.String()), 0o644); err != nil {
		return "", err
	}
	return path, nil
}
