package driver

import (
	"context"
	"fmt"

	"github.com/root4loot/goutils/log"
)

// Toolchain is everything a capture session needs, acquired once per run.
type Toolchain struct {
	Browser BrowserInfo
	Spec    Spec
	Driver  Installation
	// Warnings lists fallbacks and mismatches that may make the driver unable to drive the browser.
	Warnings []string
}

// Manager chains browser resolution, driver lookup and provisioning.
type Manager struct {
	Resolver    *Resolver
	Catalog     *Catalog
	Provisioner *Provisioner
}

// NewManager returns a Manager for the host that installs drivers into dir.
func NewManager(dir string) *Manager {
	return &Manager{
		Resolver:    NewResolver(),
		Catalog:     NewCatalog(),
		Provisioner: NewProvisioner(dir),
	}
}

// Acquire resolves the browser and provisions a driver for it. Browser and provisioning
// failures are returned; version lookups degrade to fallbacks recorded in Warnings.
func (m *Manager) Acquire(ctx context.Context) (*Toolchain, error) {
	browser, err := m.Resolver.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	log.Infof("Found browser at %s (version %s)", browser.ExecutablePath, browser.Version)

	spec, err := m.Catalog.BuildSpec(ctx, browser.Version)
	if err != nil {
		return nil, err
	}

	install, err := m.Provisioner.Provision(ctx, spec)
	if err != nil {
		return nil, err
	}

	tc := &Toolchain{Browser: browser, Spec: spec, Driver: install}
	tc.Warnings = warningsFor(browser, spec)
	for _, w := range tc.Warnings {
		log.Warnf("%s", w)
	}
	return tc, nil
}

func warningsFor(browser BrowserInfo, spec Spec) []string {
	var warnings []string
	if browser.VersionFallback {
		warnings = append(warnings, fmt.Sprintf("browser version could not be detected, assumed %s", browser.Version))
	}
	if spec.Fallback {
		warnings = append(warnings, fmt.Sprintf("driver version lookup failed, used fallback %s", spec.Version))
	}
	if !browser.VersionFallback && browser.Major() != spec.Major() {
		warnings = append(warnings, fmt.Sprintf("driver %s may not support browser %s (major version mismatch)", spec.Version, browser.Version))
	}
	return warnings
}
