// Package localrepo inspects the directory of locally built packages that gets turned
// into the "mkosi" repository.
package localrepo

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sassoftware/go-rpmutils"
)

// Package identifies one RPM found in the local packages directory.
type Package struct {
	Name     string
	Epoch    string
	Version  string
	Release  string
	Arch     string
	Filename string
}

// NEVRA returns name-[epoch:]version-release.arch.
func (p Package) NEVRA() string {
	evr := p.Version + "-" + p.Release
	if p.Epoch != "" && p.Epoch != "0" {
		evr = p.Epoch + ":" + evr
	}
	return fmt.Sprintf("%s-%s.%s", p.Name, evr, p.Arch)
}

// ListPackages reads the header of every *.rpm directly inside dir, sorted by file name.
// A missing directory yields no packages.
func ListPackages(dir string) ([]Package, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read packages directory %s: %w", dir, err)
	}

	var packages []Package
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".rpm") {
			continue
		}

		pkg, err := ReadPackage(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		packages = append(packages, *pkg)
	}

	sort.Slice(packages, func(i, j int) bool { return packages[i].Filename < packages[j].Filename })
	return packages, nil
}

// ReadPackage parses the header of a single RPM file.
func ReadPackage(path string) (*Package, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rpm, err := rpmutils.ReadRpm(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read RPM %s: %w", path, err)
	}

	return &Package{
		Name:     getStringTag(rpm, rpmutils.NAME),
		Epoch:    getEpoch(rpm),
		Version:  getStringTag(rpm, rpmutils.VERSION),
		Release:  getStringTag(rpm, rpmutils.RELEASE),
		Arch:     getStringTag(rpm, rpmutils.ARCH),
		Filename: filepath.Base(path),
	}, nil
}

func getStringTag(rpm *rpmutils.Rpm, tag int) string {
	val, err := rpm.Header.Get(tag)
	if err != nil {
		return ""
	}

	switch v := val.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case []string:
		if len(v) > 0 {
			return v[0]
		}
	}
	return ""
}

func getEpoch(rpm *rpmutils.Rpm) string {
	val, err := rpm.Header.Get(rpmutils.EPOCH)
	if err != nil {
		return ""
	}

	switch v := val.(type) {
	case []int32:
		if len(v) > 0 {
			return fmt.Sprint(v[0])
		}
	case []uint32:
		if len(v) > 0 {
			return fmt.Sprint(v[0])
		}
	case []uint64:
		if len(v) > 0 {
			return fmt.Sprint(v[0])
		}
	}
	return ""
}
