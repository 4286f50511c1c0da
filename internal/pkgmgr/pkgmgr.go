package pkgmgr

import (
	"context"
	"io"

	"go-dnf-installer/pkg/imageconfig"
)

// PackageManager defines the interface for package management operations
type PackageManager interface {
	Setup(config *imageconfig.Config, repos []imageconfig.Repository, filelists bool) error
	Sync(ctx context.Context, config *imageconfig.Config, options ...string) error
	CreateRepo(ctx context.Context, config *imageconfig.Config) error
	Install(ctx context.Context, config *imageconfig.Config, packages []string) error
	Upgrade(ctx context.Context, config *imageconfig.Config, packages []string) error
	Remove(ctx context.Context, config *imageconfig.Config, packages []string) error
	Cmd(config *imageconfig.Config) []string
	Scripts(config *imageconfig.Config) map[string][]string
}

// InvokeOptions tune a single package manager invocation
type InvokeOptions struct {
	// APIVFS mounts /proc, /dev and friends inside the install root first
	APIVFS bool

	// Stdout receives the command's standard output instead of the log
	Stdout io.Writer
}
