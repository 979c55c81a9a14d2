package session

import (
	"os"
	"slices"
	"strconv"

	"github.com/shirou/gopsutil/v3/process"
)

// driverProcess returns the child of this process started with --port=port, or nil.
func driverProcess(port int) *process.Process {
	self, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil
	}
	children, err := self.Children()
	if err != nil {
		return nil
	}
	flag := "--port=" + strconv.Itoa(port)
	for _, c := range children {
		if args, err := c.CmdlineSlice(); err == nil && slices.Contains(args, flag) {
			return c
		}
	}
	return nil
}

// descendants lists every process below p, deepest first.
func descendants(p *process.Process) []*process.Process {
	children, err := p.Children()
	if err != nil {
		return nil
	}
	var out []*process.Process
	for _, c := range children {
		out = append(out, descendants(c)...)
		out = append(out, c)
	}
	return out
}

// killTree kills p and every descendant, children first.
func killTree(p *process.Process) error {
	killRunning(descendants(p))
	return p.Kill()
}

func killRunning(procs []*process.Process) {
	for _, p := range procs {
		if running, err := p.IsRunning(); err == nil && running {
			_ = p.Kill()
		}
	}
}
