package batch

import "github.com/root4loot/sitesnap/pkg/capture"

// EventKind identifies a progress event.
type EventKind int

const (
	// EventStart is sent once the run directory exists and the toolchain is ready.
	EventStart EventKind = iota
	// EventURLStart is sent before a URL is captured.
	EventURLStart
	// EventURLDone carries the capture result of a URL.
	EventURLDone
	// EventFinish carries the summary after it has been written.
	EventFinish
)

func (k EventKind) String() string {
	switch k {
	case EventStart:
		return "start"
	case EventURLStart:
		return "url-start"
	case EventURLDone:
		return "url-done"
	case EventFinish:
		return "finish"
	}
	return "unknown"
}

// Event reports batch progress.
type Event struct {
	Kind  EventKind
	Index int // zero-based position of URL in the list
	Total int
	URL   string
	Dir   string

	Result  *capture.Result
	Summary *Summary
}
