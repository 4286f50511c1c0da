package utils

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// FindBinary looks up name the way a shell would, but relative to root. For the host
// root ("/" or "") the regular PATH lookup is used; for any other tree only its
// usr/bin and usr/sbin directories are searched. The returned path is a host path.
func FindBinary(name, root string) (string, bool) {
	if root == "" || root == "/" {
		path, err := exec.LookPath(name)
		if err != nil {
			return "", false
		}
		return path, true
	}

	// A name with a slash is taken to be relative to the root itself
	if strings.Contains(name, "/") {
		candidate := JoinRoot(root, name)
		if isExecutable(candidate) {
			return candidate, true
		}
		return "", false
	}

	for _, dir := range []string{"usr/bin", "usr/sbin"} {
		candidate := filepath.Join(root, dir, name)
		if isExecutable(candidate) {
			return candidate, true
		}
	}

	return "", false
}

// JoinRoot joins an absolute in-tree path onto root
func JoinRoot(root, path string) string {
	return filepath.Join(root, strings.TrimPrefix(path, "/"))
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir() && info.Mode().Perm()&0111 != 0
}
