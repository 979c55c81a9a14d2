package capture

import (
	"fmt"
	"sort"
)

// MaxFullPageHeight caps the viewport height used for full-page captures.
const MaxFullPageHeight = 16384

// Profile is a capture layout: viewport size, output subdirectory and whether the whole
// document is captured.
type Profile struct {
	Name         string
	Width        int
	Height       int
	OutputSubdir string
	FullPage     bool
}

var (
	Regular     = Profile{Name: "regular", Width: 1920, Height: 1920, OutputSubdir: "screenshots"}
	Widescreen  = Profile{Name: "widescreen", Width: 1920, Height: 1080, OutputSubdir: "screenshots_widescreen"}
	FourByThree = Profile{Name: "fourbythree", Width: 1920, Height: 1440, OutputSubdir: "screenshots_fourbythree"}
	Full        = Profile{Name: "full", Width: 1920, Height: 1080, OutputSubdir: "screenshots_full", FullPage: true}
)

var profiles = map[string]Profile{
	Regular.Name:     Regular,
	Widescreen.Name:  Widescreen,
	FourByThree.Name: FourByThree,
	Full.Name:        Full,
}

// ProfileByName looks up a built-in profile.
func ProfileByName(name string) (Profile, error) {
	p, ok := profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("unknown capture profile %q", name)
	}
	return p, nil
}

// ProfileNames returns the built-in profile names, sorted.
func ProfileNames() []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// OutputSubdirs returns the output subdirectory of every built-in profile, sorted.
func OutputSubdirs() []string {
	dirs := make([]string, 0, len(profiles))
	for _, p := range profiles {
		dirs = append(dirs, p.OutputSubdir)
	}
	sort.Strings(dirs)
	return dirs
}
