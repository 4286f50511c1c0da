// Package mounts exposes the configured build sources to sandboxed commands.
package mounts

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go-dnf-installer/pkg/imageconfig"
	"go-dnf-installer/pkg/sandbox"

	"github.com/moby/sys/mountinfo"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// SourcesDir is where build sources appear inside the sandbox.
const SourcesDir = "/work/src"

// Provider acquires the mounts for a configuration's build sources. The returned
// SourceMounts must be closed once the command using them has finished.
type Provider interface {
	Acquire(config *imageconfig.Config, ephemeral bool) (*SourceMounts, error)
}

// SourceMounts holds the binds for one invocation and whatever backs them.
type SourceMounts struct {
	Mounts   []sandbox.Mount
	overlays []overlay
}

type overlay struct {
	dir    string
	merged string
}

// Close unmounts any ephemeral overlays and removes their scratch directories.
func (s *SourceMounts) Close() error {
	if s == nil {
		return nil
	}

	var errs []error
	for i := len(s.overlays) - 1; i >= 0; i-- {
		o := s.overlays[i]

		mounted, err := mountinfo.Mounted(o.merged)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to check mount %s: %w", o.merged, err))
		} else if mounted {
			if err := unix.Unmount(o.merged, 0); err != nil {
				errs = append(errs, fmt.Errorf("failed to unmount %s: %w", o.merged, err))
				continue
			}
		}

		if err := os.RemoveAll(o.dir); err != nil {
			errs = append(errs, fmt.Errorf("failed to remove %s: %w", o.dir, err))
		}
	}
	s.overlays = nil

	return errors.Join(errs...)
}

// HostProvider binds build sources straight from the host, or through a throwaway
// overlayfs when ephemeral sources are requested so writes never reach the host tree.
type HostProvider struct {
	// TempDir holds overlay scratch directories; os.TempDir() when empty.
	TempDir string
}

func NewHostProvider() *HostProvider {
	return &HostProvider{}
}

// Acquire implements Provider.
func (p *HostProvider) Acquire(config *imageconfig.Config, ephemeral bool) (*SourceMounts, error) {
	sources := append([]imageconfig.BuildSource(nil), config.BuildSources...)
	// Parents must be mounted before anything nested inside them
	sort.SliceStable(sources, func(i, j int) bool { return sources[i].Target < sources[j].Target })

	mounts := &SourceMounts{}
	for _, src := range sources {
		dest := filepath.Join(SourcesDir, src.Target)

		if !ephemeral {
			log.Debugf("Binding build source %s to %s", src.Source, dest)
			mounts.Mounts = append(mounts.Mounts, sandbox.Bind(src.Source, dest))
			continue
		}

		merged, err := p.mountOverlay(mounts, src.Source)
		if err != nil {
			if cleanupErr := mounts.Close(); cleanupErr != nil {
				log.Warnf("build source mount cleanup failed: %s", cleanupErr)
			}
			return nil, err
		}
		log.Debugf("Binding ephemeral build source %s (overlay %s) to %s", src.Source, merged, dest)
		mounts.Mounts = append(mounts.Mounts, sandbox.Bind(merged, dest))
	}

	return mounts, nil
}

func (p *HostProvider) mountOverlay(mounts *SourceMounts, source string) (string, error) {
	dir, err := os.MkdirTemp(p.TempDir, "build-source-")
	if err != nil {
		return "", fmt.Errorf("failed to create overlay directory: %w", err)
	}

	upper := filepath.Join(dir, "upper")
	work := filepath.Join(dir, "work")
	merged := filepath.Join(dir, "merged")
	for _, d := range []string{upper, work, merged} {
		if err := os.Mkdir(d, 0755); err != nil {
			os.RemoveAll(dir)
			return "", fmt.Errorf("failed to create overlay directory %s: %w", d, err)
		}
	}

	options := fmt.Sprintf("lowerdir=%s,upperdir=%s,workdir=%s",
		escapeOverlayPath(source), escapeOverlayPath(upper), escapeOverlayPath(work))
	if err := unix.Mount("overlay", merged, "overlay", 0, options); err != nil {
		os.RemoveAll(dir)
		return "", fmt.Errorf("failed to mount overlay for %s: %w", source, err)
	}

	mounts.overlays = append(mounts.overlays, overlay{dir: dir, merged: merged})
	return merged, nil
}

func escapeOverlayPath(path string) string {
	return strings.NewReplacer(`\`, `\\`, ",", `\,`, ":", `\:`).Replace(path)
}
