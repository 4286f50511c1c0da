package localrepo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListPackagesMissingDirectory(t *testing.T) {
	packages, err := ListPackages(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.Empty(t, packages)
}

func TestListPackagesSkipsOtherFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "repodata"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README"), []byte("not a package"), 0644))

	packages, err := ListPackages(dir)
	require.NoError(t, err)
	assert.Empty(t, packages)
}

func TestListPackagesRejectsCorruptRPM(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken-1.0-1.x86_64.rpm"), []byte("garbage"), 0644))

	_, err := ListPackages(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken-1.0-1.x86_64.rpm")
}

func TestNEVRA(t *testing.T) {
	pkg := Package{Name: "bash", Version: "5.2.26", Release: "3.fc40", Arch: "x86_64"}
	assert.Equal(t, "bash-5.2.26-3.fc40.x86_64", pkg.NEVRA())

	pkg.Epoch = "0"
	assert.Equal(t, "bash-5.2.26-3.fc40.x86_64", pkg.NEVRA())

	pkg.Epoch = "2"
	assert.Equal(t, "bash-2:5.2.26-3.fc40.x86_64", pkg.NEVRA())
}
