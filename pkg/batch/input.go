package batch

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInputFile  = errors.New("cannot read URL list")
	ErrEmptyInput = errors.New("no valid URLs found in the file")

	// ErrInterrupted is returned alongside a written summary when the run was cancelled.
	ErrInterrupted = errors.New("run interrupted")
)

// TimestampLayout names run directories.
const TimestampLayout = "2006-01-02_15-04-05"

// ReadURLs returns the trimmed, non-empty lines of the file at path, in order.
func ReadURLs(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInputFile, err)
	}
	defer file.Close()

	var urls []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			urls = append(urls, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInputFile, err)
	}

	if len(urls) == 0 {
		return nil, ErrEmptyInput
	}
	return urls, nil
}

// CreateRunDir creates base/<timestamp> for now. If that directory already exists, a
// numeric suffix is appended: <timestamp>_1, <timestamp>_2, ...
func CreateRunDir(base string, now time.Time) (string, error) {
	if err := os.MkdirAll(base, 0o755); err != nil {
		return "", err
	}

	name := now.Format(TimestampLayout)
	dir := filepath.Join(base, name)
	for i := 1; ; i++ {
		err := os.Mkdir(dir, 0o755)
		if err == nil {
			return dir, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return "", err
		}
		dir = filepath.Join(base, name+"_"+strconv.Itoa(i))
	}
}
