package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTool(t *testing.T, root, rel string, mode os.FileMode) string {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), mode))
	return path
}

func TestFindBinaryInTree(t *testing.T) {
	root := t.TempDir()
	want := writeTool(t, root, "usr/bin/dnf5", 0755)

	got, ok := FindBinary("dnf5", root)
	assert.True(t, ok)
	assert.Equal(t, want, got)
}

func TestFindBinarySbin(t *testing.T) {
	root := t.TempDir()
	want := writeTool(t, root, "usr/sbin/createrepo_c", 0755)

	got, ok := FindBinary("createrepo_c", root)
	assert.True(t, ok)
	assert.Equal(t, want, got)
}

func TestFindBinaryIgnoresNonExecutable(t *testing.T) {
	root := t.TempDir()
	writeTool(t, root, "usr/bin/dnf", 0644)

	_, ok := FindBinary("dnf", root)
	assert.False(t, ok)
}

func TestFindBinaryIgnoresDirectories(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "usr/bin/dnf"), 0755))

	_, ok := FindBinary("dnf", root)
	assert.False(t, ok)
}

func TestFindBinaryDoesNotConsultHostPath(t *testing.T) {
	// "sh" exists on every host but not in an empty tree
	_, ok := FindBinary("sh", t.TempDir())
	assert.False(t, ok)
}

func TestFindBinaryWithSlash(t *testing.T) {
	root := t.TempDir()
	want := writeTool(t, root, "opt/dnf/bin/dnf5", 0755)

	got, ok := FindBinary("/opt/dnf/bin/dnf5", root)
	assert.True(t, ok)
	assert.Equal(t, want, got)
}

func TestJoinRoot(t *testing.T) {
	assert.Equal(t, "/tree/var/log", JoinRoot("/tree", "/var/log"))
	assert.Equal(t, "/tree/var/log", JoinRoot("/tree", "var/log"))
}
