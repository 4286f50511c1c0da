package sandbox

import (
	"fmt"
	"os"
	"path/filepath"
)

// BwrapBuilder builds bubblewrap command-line arguments.
type BwrapBuilder struct {
	binary string
	args   []string
}

// NewBwrapBuilder creates a new builder. An empty binary means "bwrap".
func NewBwrapBuilder(binary string) *BwrapBuilder {
	if binary == "" {
		binary = "bwrap"
	}
	return &BwrapBuilder{binary: binary}
}

// Build constructs the full argv: bwrap options, the optional API VFS wrapper and cmdline.
func (b *BwrapBuilder) Build(spec *Spec, cmdline []string) ([]string, error) {
	if spec == nil {
		return nil, fmt.Errorf("sandbox spec is required")
	}
	if len(cmdline) == 0 {
		return nil, fmt.Errorf("command is required")
	}

	b.args = []string{b.binary}

	b.addSecurity(spec.Network)
	b.addToolsTree(spec.ToolsTree)
	b.addBaseMounts()
	b.addMounts(spec.Mounts)

	if spec.Chdir != "" {
		b.args = append(b.args, "--dir", spec.Chdir, "--chdir", spec.Chdir)
	}

	b.args = append(b.args, "--")

	if spec.APIVFS != "" {
		b.args = append(b.args, APIVFSCommand(b.binary, spec.APIVFS)...)
	}

	b.args = append(b.args, cmdline...)

	return b.args, nil
}

// addSecurity adds namespace and lifetime options.
func (b *BwrapBuilder) addSecurity(network bool) {
	b.args = append(b.args, "--die-with-parent", "--unshare-ipc")
	if !network {
		b.args = append(b.args, "--unshare-net")
	}
}

// addToolsTree exposes /usr of the tools tree along with the merged-usr symlinks.
func (b *BwrapBuilder) addToolsTree(tree string) {
	if tree == "" {
		tree = "/"
	}
	b.args = append(b.args, "--ro-bind", filepath.Join(tree, "usr"), "/usr")
	for _, dir := range []string{"bin", "sbin", "lib", "lib64"} {
		b.args = append(b.args, "--symlink", filepath.Join("usr", dir), "/"+dir)
	}
}

// addBaseMounts adds /proc, /dev, a private /tmp and /var/tmp, which the API VFS
// wrapper binds into the install root.
func (b *BwrapBuilder) addBaseMounts() {
	b.args = append(b.args, "--proc", "/proc", "--dev", "/dev", "--tmpfs", "/tmp", "--dir", "/var/tmp")
}

func (b *BwrapBuilder) addMounts(mounts []Mount) {
	for _, mount := range mounts {
		if mount.Optional {
			if _, err := os.Stat(mount.Source); os.IsNotExist(err) {
				continue
			}
		}

		if mount.Mode == MountModeRO {
			b.args = append(b.args, "--ro-bind", mount.Source, mount.Dest)
		} else {
			b.args = append(b.args, "--bind", mount.Source, mount.Dest)
		}
	}
}

// APIVFSCommand returns a nested bwrap invocation that mounts the API filesystems
// below root before executing the command that follows it.
func APIVFSCommand(binary, root string) []string {
	if binary == "" {
		binary = "bwrap"
	}
	at := func(p string) string { return filepath.Join(root, p) }

	return []string{
		binary,
		"--dev-bind", "/", "/",
		"--tmpfs", at("run"),
		"--tmpfs", at("tmp"),
		"--bind", "/var/tmp", at("var/tmp"),
		"--proc", at("proc"),
		"--dev", at("dev"),
		// Package scriptlets must not replace the image's machine-id.
		"--ro-bind-try", at("etc/machine-id"), at("etc/machine-id"),
		"--",
		"sh", "-c",
		fmt.Sprintf("chmod 1777 %s %s %s && chmod 755 %s && mkdir -m 755 -p %s && exec \"$0\" \"$@\"",
			at("tmp"), at("var/tmp"), at("dev/shm"), at("run"), at("run/host")),
	}
}
