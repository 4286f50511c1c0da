package cmd

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"go-dnf-installer/internal/pkgmgr"
	"go-dnf-installer/pkg/imageconfig"
	"go-dnf-installer/pkg/mounts"
	"go-dnf-installer/pkg/sandbox"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingExecutor struct {
	cmdlines [][]string
}

func (r *recordingExecutor) Run(ctx context.Context, cmdline []string, spec *sandbox.Spec, env map[string]string, stdout io.Writer) (*sandbox.Result, error) {
	r.cmdlines = append(r.cmdlines, cmdline)
	return &sandbox.Result{Args: cmdline}, nil
}

type noSources struct{}

func (noSources) Acquire(config *imageconfig.Config, ephemeral bool) (*mounts.SourceMounts, error) {
	return &mounts.SourceMounts{}, nil
}

func writeTestConfig(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	config := imageconfig.NewConfig()
	config.Distribution = imageconfig.Fedora
	config.Release = "40"
	config.Root = filepath.Join(dir, "root")
	config.PackageManagerTree = filepath.Join(dir, "pkgmngr")
	config.Environment["MKOSI_DNF"] = "dnf5"
	config.Repositories = []imageconfig.Repository{
		{ID: "fedora", URL: "baseurl=https://example.com/fedora", Enabled: true, GPGURLs: []string{"file:///key"}},
	}

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, imageconfig.WriteConfig(config, path))
	return path
}

func execute(t *testing.T, args ...string) (string, *recordingExecutor, error) {
	t.Helper()

	exec := &recordingExecutor{}
	orig := newPackageManager
	newPackageManager = func() *pkgmgr.DNF {
		return &pkgmgr.DNF{Executor: exec, Sources: noSources{}}
	}
	t.Cleanup(func() {
		newPackageManager = orig
		configFile, rootDir, toolsTree, debug, logLevel = "", "", "", false, "info"
		apivfs, showScripts, noFilelists = false, false, false
	})

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), exec, err
}

func TestLoadConfigOverrides(t *testing.T) {
	configFile = writeTestConfig(t)
	rootDir = "/override/root"
	toolsTree = "/override/tools"
	debug = true
	t.Cleanup(func() {
		configFile, rootDir, toolsTree, debug = "", "", "", false
	})

	config, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "/override/root", config.Root)
	assert.Equal(t, "/override/tools", config.ToolsTree)
	assert.True(t, config.Debug)
}

func TestLoadConfigRequiresFile(t *testing.T) {
	configFile = ""
	_, err := loadConfig()
	assert.Error(t, err)
}

func TestCmdlineCommand(t *testing.T) {
	path := writeTestConfig(t)

	out, _, err := execute(t, "--config", path, "cmdline", "--scripts")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Equal(t, "# dnf5 (cache subdirectory libdnf5)", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "env HOME=/ dnf5 --assumeyes"))
	assert.Contains(t, out, "mkosi-install: dnf install")
}

func TestRunCommand(t *testing.T) {
	path := writeTestConfig(t)

	_, exec, err := execute(t, "--config", path, "run", "--apivfs", "install", "bash", "--exclude=foo")
	require.NoError(t, err)
	require.Len(t, exec.cmdlines, 1)

	cmdline := exec.cmdlines[0]
	assert.Equal(t, []string{"install", "bash", "--exclude=foo"}, cmdline[len(cmdline)-3:])
}

func TestSetupAndReposCommands(t *testing.T) {
	path := writeTestConfig(t)

	_, _, err := execute(t, "--config", path, "setup")
	require.NoError(t, err)

	out, _, err := execute(t, "--config", path, "repos")
	require.NoError(t, err)
	assert.Contains(t, out, "mkosi.repo")
	assert.Contains(t, out, "fedora")
	assert.Contains(t, out, "baseurl=https://example.com/fedora")
}
