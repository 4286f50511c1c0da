// Package sandbox runs commands inside a bubblewrap sandbox built from a declarative
// Spec: which host paths are bound where, whether the network namespace is shared and
// which directory the command starts in.
package sandbox

import (
	"context"
	"io"
	"time"
)

// MountMode selects between read-only and read-write binds.
type MountMode string

const (
	MountModeRW MountMode = "rw"
	MountModeRO MountMode = "ro"
)

// Mount is a single bind of Source (host path) onto Dest (sandbox path).
type Mount struct {
	Source string
	Dest   string
	Mode   MountMode

	// Optional mounts are skipped when Source does not exist.
	Optional bool
}

// Bind returns a read-write bind mount.
func Bind(source, dest string) Mount {
	return Mount{Source: source, Dest: dest, Mode: MountModeRW}
}

// ReadOnlyBind returns a read-only bind mount.
func ReadOnlyBind(source, dest string) Mount {
	return Mount{Source: source, Dest: dest, Mode: MountModeRO}
}

// Spec describes the sandbox a command runs in.
type Spec struct {
	// ToolsTree provides /usr inside the sandbox. Empty means the host ("/").
	ToolsTree string

	Mounts []Mount

	// Network shares the host network namespace when true.
	Network bool

	// Chdir is the working directory inside the sandbox. It is created if missing.
	Chdir string

	// APIVFS, when set, is a directory inside the sandbox that gets /proc, /dev, /run
	// and /tmp mounted below it before the command runs.
	APIVFS string
}

// Result describes a finished process.
type Result struct {
	Args     []string
	ExitCode int
	Duration time.Duration
}

// Executor runs cmdline, inside the sandbox described by spec when spec is non-nil.
// env is added on top of the caller's environment. When stdout is non-nil the command's
// standard output is written there instead of the log.
//
// A non-zero exit is reported as an error together with a non-nil Result.
type Executor interface {
	Run(ctx context.Context, cmdline []string, spec *Spec, env map[string]string, stdout io.Writer) (*Result, error)
}
