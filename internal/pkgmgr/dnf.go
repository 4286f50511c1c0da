package pkgmgr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go-dnf-installer/pkg/imageconfig"
	"go-dnf-installer/pkg/localrepo"
	"go-dnf-installer/pkg/mounts"
	"go-dnf-installer/pkg/sandbox"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const tracerName = "go-dnf-installer/pkgmgr"

// localPackagesDir is where the packages directory appears inside the sandbox
const localPackagesDir = "/work/packages"

// logPrefixes match the log files dnf5, dnf, yum and libdnf's hawkey write
var logPrefixes = []string{"dnf", "hawkey", "yum"}

// DNF drives dnf5, dnf or yum against an install root.
type DNF struct {
	Executor sandbox.Executor
	Sources  mounts.Provider
}

// NewDNF returns a DNF that runs commands with bubblewrap and binds build sources
// from the host.
func NewDNF() *DNF {
	return &DNF{
		Executor: sandbox.NewBwrapExecutor(),
		Sources:  mounts.NewHostProvider(),
	}
}

// Setup writes dnf.conf and the repository file into the package manager tree. Each
// file is only written if it does not exist yet, so a second call leaves the first
// call's files untouched even when repos differ.
func (d *DNF) Setup(config *imageconfig.Config, repos []imageconfig.Repository, filelists bool) error {
	tree := config.PackageManagerTree
	log.Infof("Setting up dnf configuration in %s", tree)

	for _, dir := range []string{"etc/dnf/vars", "etc/yum.repos.d"} {
		if err := os.MkdirAll(filepath.Join(tree, dir), 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	// dnf5 stopped downloading filelists by default but dependency resolution on some
	// distributions still needs them (rhbz#2180842).
	conf := ""
	if VariantFor(Executable(config)).Filelists && filelists {
		conf = filelistsConfig
	}
	if err := writeFileIfAbsent(filepath.Join(tree, "etc/dnf/dnf.conf"), conf); err != nil {
		return fmt.Errorf("failed to write dnf.conf: %w", err)
	}

	log.Debugf("Writing %d repositories", len(repos))
	if err := writeFileIfAbsent(filepath.Join(tree, "etc/yum.repos.d", repoFileName), RenderRepositories(repos)); err != nil {
		return fmt.Errorf("failed to write repo file: %w", err)
	}

	return nil
}

// writeFileIfAbsent creates path with content unless it already exists. The check and
// the create are one exclusive open.
func writeFileIfAbsent(path, content string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if os.IsExist(err) {
		log.Debugf("Keeping existing %s", path)
		return nil
	}
	if err != nil {
		return err
	}

	if _, err := f.WriteString(content); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Invoke runs dnf <operation> <arguments...> in a sandbox with network access. Log
// files dnf leaves in the install root are removed afterwards, whatever the outcome.
func (d *DNF) Invoke(ctx context.Context, config *imageconfig.Config, operation string, arguments []string, opts InvokeOptions) (*sandbox.Result, error) {
	binary := Executable(config)

	ctx, span := otel.GetTracerProvider().Tracer(tracerName).Start(ctx, "dnf_invoke")
	span.SetAttributes(
		attribute.String("operation", operation),
		attribute.String("binary", binary),
		attribute.Bool("next_gen", VariantFor(binary).NextGen),
		attribute.Int("arguments_count", len(arguments)),
		attribute.Bool("apivfs", opts.APIVFS),
	)
	defer span.End()

	// dnf resolves logdir against the install root, so its logs end up in the image
	defer removeLogs(config.Root)

	if err := ensureCacheDirs(config); err != nil {
		return nil, err
	}

	ephemeral := os.Getuid() == 0 && config.BuildSourcesEphemeral
	sources, err := d.Sources.Acquire(config, ephemeral)
	if err != nil {
		return nil, fmt.Errorf("failed to mount build sources: %w", err)
	}
	defer func() {
		if err := sources.Close(); err != nil {
			log.Warnf("build source cleanup failed: %s", err)
		}
	}()

	cmdline := append(d.Cmd(config), operation)
	cmdline = append(cmdline, arguments...)

	spec := &sandbox.Spec{
		ToolsTree: config.ToolsTree,
		Network:   true,
		Chdir:     mounts.SourcesDir,
	}
	spec.Mounts = append(spec.Mounts, sandbox.Bind(config.Root, config.Root))
	spec.Mounts = append(spec.Mounts, d.Mounts(config)...)
	spec.Mounts = append(spec.Mounts, sources.Mounts...)
	if opts.APIVFS {
		spec.APIVFS = config.Root
	}

	log.Infof("Running %s %s %s", binary, operation, strings.Join(arguments, " "))
	result, err := d.Executor.Run(ctx, cmdline, spec, config.Environment, opts.Stdout)
	if err != nil {
		span.RecordError(err)
	}
	return result, err
}

// ensureCacheDirs creates the host side of the cache and state binds.
func ensureCacheDirs(config *imageconfig.Config) error {
	if config.PackageCacheDir == "" {
		return nil
	}
	subdir := Subdir(config)
	for _, kind := range []string{"cache", "lib"} {
		dir := filepath.Join(config.PackageCacheDir, kind, subdir)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create package cache directory %s: %w", dir, err)
		}
	}
	return nil
}

// removeLogs deletes dnf's log files from <root>/var/log. Failures are only logged.
func removeLogs(root string) {
	logDir := filepath.Join(root, "var/log")
	entries, err := os.ReadDir(logDir)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warnf("failed to read %s: %s", logDir, err)
		}
		return
	}

	for _, entry := range entries {
		if !hasAnyPrefix(entry.Name(), logPrefixes) {
			continue
		}
		path := filepath.Join(logDir, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			log.Warnf("failed to remove %s: %s", path, err)
		}
	}
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}

// Sync refreshes repository metadata. options are appended to makecache, typically to
// restrict which repositories are refreshed.
func (d *DNF) Sync(ctx context.Context, config *imageconfig.Config, options ...string) error {
	args := []string{"--refresh"}
	// A global cacheonly=metadata would otherwise turn the refresh into a no-op
	if VariantFor(Executable(config)).NextGen {
		args = append(args, "--setopt=cacheonly=none")
	}
	args = append(args, options...)

	_, err := d.Invoke(ctx, config, "makecache", args, InvokeOptions{})
	return err
}

// CreateRepo indexes the local packages directory, points the "mkosi" repository at it
// and refreshes only that repository.
func (d *DNF) CreateRepo(ctx context.Context, config *imageconfig.Config) error {
	packages := config.PackagesDir
	if packages == "" {
		return fmt.Errorf("packages directory is not configured")
	}

	ctx, span := otel.GetTracerProvider().Tracer(tracerName).Start(ctx, "dnf_createrepo")
	defer span.End()

	local, err := localrepo.ListPackages(packages)
	if err != nil {
		return fmt.Errorf("failed to list local packages: %w", err)
	}
	span.SetAttributes(attribute.Int("packages_count", len(local)))
	if len(local) == 0 {
		log.Warnf("No packages found in %s", packages)
	}
	for _, pkg := range local {
		log.Debugf("Local package: %s", pkg.NEVRA())
	}

	log.Infof("Creating local repository in %s", packages)
	spec := &sandbox.Spec{
		ToolsTree: config.ToolsTree,
		Mounts:    []sandbox.Mount{sandbox.Bind(packages, packages)},
	}
	if _, err := d.Executor.Run(ctx, []string{"createrepo_c", packages}, spec, nil, nil); err != nil {
		return err
	}

	repoDir := filepath.Join(config.PackageManagerTree, "etc/yum.repos.d")
	if err := os.MkdirAll(repoDir, 0755); err != nil {
		return fmt.Errorf("failed to create repo directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(repoDir, localRepoFileName), []byte(localRepoStanza), 0644); err != nil {
		return fmt.Errorf("failed to write local repo file: %w", err)
	}

	v := VariantFor(Executable(config))
	return d.Sync(ctx, config, v.DisableRepo+"=*", v.EnableRepo+"="+localRepoID)
}

// Install installs packages into the install root.
func (d *DNF) Install(ctx context.Context, config *imageconfig.Config, packages []string) error {
	return d.transaction(ctx, config, "install", packages)
}

// Upgrade upgrades packages, or everything when packages is empty.
func (d *DNF) Upgrade(ctx context.Context, config *imageconfig.Config, packages []string) error {
	_, err := d.Invoke(ctx, config, "upgrade", packages, InvokeOptions{APIVFS: true})
	return err
}

// Remove removes packages from the install root.
func (d *DNF) Remove(ctx context.Context, config *imageconfig.Config, packages []string) error {
	return d.transaction(ctx, config, "remove", packages)
}

// Reinstall reinstalls packages already present in the install root.
func (d *DNF) Reinstall(ctx context.Context, config *imageconfig.Config, packages []string) error {
	return d.transaction(ctx, config, "reinstall", packages)
}

// transaction runs a package transaction with the API filesystems mounted, since
// scriptlets expect /proc and /dev.
func (d *DNF) transaction(ctx context.Context, config *imageconfig.Config, operation string, packages []string) error {
	if len(packages) == 0 {
		log.Debugf("Nothing to %s", operation)
		return nil
	}
	_, err := d.Invoke(ctx, config, operation, packages, InvokeOptions{APIVFS: true})
	return err
}

// CacheSubdirs returns the package download directories dnf created inside cache, one
// per repository. The local "mkosi" repository is skipped.
func CacheSubdirs(cache string) ([]string, error) {
	entries, err := os.ReadDir(cache)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache directory %s: %w", cache, err)
	}

	var dirs []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() && strings.Contains(name, "-") && !strings.Contains(name, localRepoID) {
			dirs = append(dirs, filepath.Join(cache, name, "packages"))
		}
	}
	return dirs, nil
}
