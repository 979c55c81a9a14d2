package postprocess

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"sort"
)

// ErrNoRuns is returned when no timestamped run directory exists.
var ErrNoRuns = errors.New("no timestamped screenshot directories found")

var runDirPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}_\d{2}-\d{2}-\d{2}`)

// FindLatestDir returns the newest run directory directly under base. Run directories are
// named by timestamp, so the lexically greatest name is the newest.
func FindLatestDir(base string) (string, error) {
	entries, err := os.ReadDir(base)
	if err != nil {
		return "", err
	}

	var runs []string
	for _, e := range entries {
		if e.IsDir() && runDirPattern.MatchString(e.Name()) {
			runs = append(runs, e.Name())
		}
	}
	if len(runs) == 0 {
		return "", ErrNoRuns
	}

	sort.Sort(sort.Reverse(sort.StringSlice(runs)))
	return filepath.Join(base, runs[0]), nil
}

// LatestRun picks the most recently modified of the newest run directories under each base.
// Bases that do not exist or hold no runs are skipped.
func LatestRun(bases ...string) (string, error) {
	var (
		latest   string
		latestAt int64
	)
	for _, base := range bases {
		dir, err := FindLatestDir(base)
		if err != nil {
			continue
		}
		fi, err := os.Stat(dir)
		if err != nil {
			continue
		}
		if at := fi.ModTime().UnixNano(); latest == "" || at > latestAt {
			latest, latestAt = dir, at
		}
	}
	if latest == "" {
		return "", ErrNoRuns
	}
	return latest, nil
}
