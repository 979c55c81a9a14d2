package driver

import "errors"

var (
	// ErrBrowserNotFound is returned when no Chrome or Chromium binary could be located.
	ErrBrowserNotFound = errors.New("browser not found")

	// ErrVersionDetection is returned by a version probe that could not produce a version.
	ErrVersionDetection = errors.New("version detection failed")

	// ErrUnsupportedPlatform is returned for host OS/architecture pairs without a driver build.
	ErrUnsupportedPlatform = errors.New("unsupported platform")

	// ErrDriverDownload is returned when the driver archive could not be fetched.
	ErrDriverDownload = errors.New("driver download failed")

	// ErrDriverExtraction is returned when the driver archive could not be unpacked or installed.
	ErrDriverExtraction = errors.New("driver extraction failed")

	// ErrDriverNotFound is returned when the archive holds no file named like the driver executable.
	ErrDriverNotFound = errors.New("driver executable not found in archive")
)
