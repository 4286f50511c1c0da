package mounts

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go-dnf-installer/pkg/imageconfig"
	"go-dnf-installer/pkg/sandbox"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestAcquireBindsSourcesInTargetOrder(t *testing.T) {
	config := imageconfig.NewConfig()
	config.BuildSources = []imageconfig.BuildSource{
		{Source: "/host/nested", Target: "project/sub"},
		{Source: "/host/project", Target: "project"},
		{Source: "/host/top", Target: ""},
	}

	mounts, err := NewHostProvider().Acquire(config, false)
	require.NoError(t, err)
	defer mounts.Close()

	assert.Equal(t, []sandbox.Mount{
		sandbox.Bind("/host/top", "/work/src"),
		sandbox.Bind("/host/project", "/work/src/project"),
		sandbox.Bind("/host/nested", "/work/src/project/sub"),
	}, mounts.Mounts)
}

func TestAcquireWithoutSources(t *testing.T) {
	mounts, err := NewHostProvider().Acquire(imageconfig.NewConfig(), true)
	require.NoError(t, err)
	assert.Empty(t, mounts.Mounts)
	assert.NoError(t, mounts.Close())
}

func TestCloseNil(t *testing.T) {
	var mounts *SourceMounts
	assert.NoError(t, mounts.Close())
}

func TestAcquireEphemeralOverlay(t *testing.T) {
	if os.Getuid() != 0 {
		t.Skip("overlay mounts require root")
	}

	source := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(source, "file"), []byte("original"), 0644))

	config := imageconfig.NewConfig()
	config.BuildSources = []imageconfig.BuildSource{{Source: source, Target: "src"}}

	provider := &HostProvider{TempDir: t.TempDir()}
	mounts, err := provider.Acquire(config, true)
	if errors.Is(err, unix.EPERM) || errors.Is(err, unix.ENODEV) || errors.Is(err, unix.EINVAL) {
		t.Skipf("overlayfs unavailable: %v", err)
	}
	require.NoError(t, err)
	require.Len(t, mounts.Mounts, 1)

	merged := mounts.Mounts[0].Source
	assert.Equal(t, "/work/src/src", mounts.Mounts[0].Dest)
	require.NoError(t, os.WriteFile(filepath.Join(merged, "file"), []byte("changed"), 0644))

	require.NoError(t, mounts.Close())

	data, err := os.ReadFile(filepath.Join(source, "file"))
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))
	assert.NoDirExists(t, filepath.Dir(merged))
}

func TestEscapeOverlayPath(t *testing.T) {
	assert.Equal(t, `/a\,b\:c\\d`, escapeOverlayPath(`/a,b:c\d`))
}
