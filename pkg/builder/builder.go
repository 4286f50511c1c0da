package builder

import (
	"context"
	"fmt"
	"path/filepath"

	"go-dnf-installer/internal/pkgmgr"
	"go-dnf-installer/pkg/imageconfig"
	"go-dnf-installer/pkg/localrepo"

	log "github.com/sirupsen/logrus"
)

// Builder handles the package installation pipeline for one install root
type Builder struct {
	config *imageconfig.Config
	pm     pkgmgr.PackageManager
}

// NewBuilder creates a new Builder instance
func NewBuilder(config *imageconfig.Config, pm pkgmgr.PackageManager) *Builder {
	if pm == nil {
		pm = pkgmgr.NewDNF()
	}
	return &Builder{
		config: config,
		pm:     pm,
	}
}

// Build executes the package installation pipeline
func (b *Builder) Build(ctx context.Context) error {
	log.Info("Starting package installation")
	log.Debugf("Install root: %s", b.config.Root)
	log.Debugf("Using %s", pkgmgr.Executable(b.config))

	// 1. Write dnf configuration and repositories
	log.Info("Setting up repositories")
	log.Debugf("Adding %d repositories", len(b.config.Repositories))
	if err := b.pm.Setup(b.config, b.config.Repositories, true); err != nil {
		return fmt.Errorf("failed to set up package manager: %w", err)
	}

	// 2. Index locally built packages
	local, err := b.hasLocalPackages()
	if err != nil {
		return err
	}
	if local {
		log.Info("Creating local repository")
		if err := b.pm.CreateRepo(ctx, b.config); err != nil {
			return fmt.Errorf("failed to create local repository: %w", err)
		}
	}

	// 3. Refresh metadata
	sync, err := b.needsSync()
	if err != nil {
		return err
	}
	if sync {
		log.Info("Syncing repository metadata")
		if err := b.pm.Sync(ctx, b.config); err != nil {
			return fmt.Errorf("failed to sync repository metadata: %w", err)
		}
	} else {
		log.Infof("Using cached repository metadata (cache_only: %s)", b.config.CacheOnly)
	}

	// 4. Install packages
	log.Info("Installing packages")
	log.Debugf("Installing %d packages", len(b.config.Packages))
	if err := b.pm.Install(ctx, b.config, b.config.Packages); err != nil {
		return fmt.Errorf("failed to install packages: %w", err)
	}

	// 5. Remove packages
	if len(b.config.RemovePackages) > 0 {
		log.Info("Removing packages")
		log.Debugf("Removing %d packages", len(b.config.RemovePackages))
		if err := b.pm.Remove(ctx, b.config, b.config.RemovePackages); err != nil {
			return fmt.Errorf("failed to remove packages: %w", err)
		}
	}

	log.Info("Package installation completed successfully")
	return nil
}

// needsSync applies the cache policy: "always" and "metadata" never refresh, "none"
// always does and "auto" only when the package cache holds no repository yet.
func (b *Builder) needsSync() (bool, error) {
	switch b.config.CacheOnly {
	case imageconfig.CacheOnlyAlways, imageconfig.CacheOnlyMetadata:
		return false, nil
	case imageconfig.CacheOnlyNone:
		return true, nil
	}

	if b.config.PackageCacheDir == "" {
		return true, nil
	}
	cache := filepath.Join(b.config.PackageCacheDir, "cache", pkgmgr.Subdir(b.config))
	repos, err := pkgmgr.CacheSubdirs(cache)
	if err != nil {
		return false, fmt.Errorf("failed to inspect package cache: %w", err)
	}
	log.Debugf("Found %d cached repositories in %s", len(repos), cache)
	return len(repos) == 0, nil
}

func (b *Builder) hasLocalPackages() (bool, error) {
	if b.config.PackagesDir == "" {
		return false, nil
	}
	packages, err := localrepo.ListPackages(b.config.PackagesDir)
	if err != nil {
		return false, fmt.Errorf("failed to list local packages: %w", err)
	}
	return len(packages) > 0, nil
}
