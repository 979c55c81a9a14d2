package driver

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/root4loot/goutils/log"
)

// Installation is a driver executable installed at a stable path.
type Installation struct {
	ExecutablePath string
}

// Provisioner downloads driver archives and installs the executable into Dir.
// Every call replaces the previous installation.
type Provisioner struct {
	Dir    string
	GOOS   string
	Client *http.Client
}

// NewProvisioner returns a Provisioner installing into dir for the host OS.
func NewProvisioner(dir string) *Provisioner {
	return &Provisioner{
		Dir:    dir,
		GOOS:   runtime.GOOS,
		Client: &http.Client{Timeout: 5 * time.Minute},
	}
}

// ExecutableName is the driver's file name on the provisioner's OS.
func (p *Provisioner) ExecutableName() string {
	if p.GOOS == "windows" {
		return "chromedriver.exe"
	}
	return "chromedriver"
}

// InstallPath is where the driver executable ends up.
func (p *Provisioner) InstallPath() string {
	return filepath.Join(p.Dir, p.ExecutableName())
}

// Provision downloads spec's archive, extracts the driver and installs it at InstallPath.
// The downloaded archive and any extraction directory are removed on every exit path.
func (p *Provisioner) Provision(ctx context.Context, spec Spec) (Installation, error) {
	if err := os.MkdirAll(p.Dir, 0o755); err != nil {
		return Installation{}, fmt.Errorf("%w: %v", ErrDriverDownload, err)
	}

	log.Infof("Downloading driver %s (%s)", spec.Version, spec.Platform)
	archive, err := p.download(ctx, spec.DownloadURL)
	if err != nil {
		return Installation{}, err
	}
	defer os.Remove(archive)

	if err := p.extract(archive); err != nil {
		return Installation{}, err
	}

	target := p.InstallPath()
	if p.GOOS != "windows" {
		if err := os.Chmod(target, 0o755); err != nil {
			return Installation{}, fmt.Errorf("%w: %v", ErrDriverExtraction, err)
		}
	}

	log.Infof("Driver installed at %s", target)
	return Installation{ExecutablePath: target}, nil
}

func (p *Provisioner) download(ctx context.Context, url string) (path string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDriverDownload, err)
	}

	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDriverDownload, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: GET %s: %s", ErrDriverDownload, url, resp.Status)
	}

	f, err := os.CreateTemp(p.Dir, "chromedriver-*.zip")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDriverDownload, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("%w: %v", ErrDriverDownload, cerr)
		}
		if err != nil {
			os.Remove(f.Name())
		}
	}()

	n, err := io.Copy(f, resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDriverDownload, err)
	}
	log.Debugf("Downloaded %d bytes from %s", n, url)

	return f.Name(), nil
}

// extract installs the driver from the archive. Newer releases nest the executable in a
// platform-named directory, older ones put it at the archive root.
func (p *Provisioner) extract(archive string) error {
	zr, err := zip.OpenReader(archive)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDriverExtraction, err)
	}
	defer zr.Close()

	if isNested(zr.File) {
		return p.extractNested(zr.File)
	}
	return p.extractFlat(zr.File)
}

func isNested(files []*zip.File) bool {
	for _, f := range files {
		if strings.Contains(f.Name, "/") {
			return true
		}
	}
	return false
}

func (p *Provisioner) extractNested(files []*zip.File) error {
	tmp, err := os.MkdirTemp(p.Dir, "extract-*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDriverExtraction, err)
	}
	defer os.RemoveAll(tmp)

	if err := unzipAll(files, tmp); err != nil {
		return err
	}

	found, err := p.findExecutable(tmp)
	if err != nil {
		return err
	}
	log.Debugf("Found driver at %s", found)

	return replaceFile(found, p.InstallPath())
}

func (p *Provisioner) extractFlat(files []*zip.File) error {
	name := p.ExecutableName()
	var exe *zip.File
	for _, f := range files {
		if f.Name == name {
			exe = f
			break
		}
	}
	if exe == nil {
		return fmt.Errorf("%w: %s", ErrDriverNotFound, name)
	}
	return unzipAll(files, p.Dir)
}

func (p *Provisioner) findExecutable(root string) (string, error) {
	name := p.ExecutableName()
	var found string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && d.Name() == name {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDriverExtraction, err)
	}
	if found == "" {
		return "", fmt.Errorf("%w: %s", ErrDriverNotFound, name)
	}
	return found, nil
}

func unzipAll(files []*zip.File, dir string) error {
	for _, f := range files {
		if err := unzipFile(f, dir); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrDriverExtraction, f.Name, err)
		}
	}
	return nil
}

func unzipFile(f *zip.File, dir string) error {
	name := filepath.FromSlash(f.Name)
	if !filepath.IsLocal(name) {
		return fmt.Errorf("illegal path %q", f.Name)
	}
	path := filepath.Join(dir, name)

	if f.FileInfo().IsDir() {
		return os.MkdirAll(path, 0o755)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	// Remove first so a running executable on the target path is replaced, not truncated.
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}

	out, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func replaceFile(src, dst string) error {
	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: %v", ErrDriverExtraction, err)
	}
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrDriverExtraction, err)
	}
	return nil
}
