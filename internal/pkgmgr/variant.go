package pkgmgr

import (
	"path/filepath"
	"strings"

	"go-dnf-installer/pkg/imageconfig"
	"go-dnf-installer/pkg/utils"
)

// binaryOverrideEnv names the environment variable that bypasses binary detection
const binaryOverrideEnv = "MKOSI_DNF"

// Variant captures everything that differs between dnf5 and dnf/yum: option spellings
// and which features the binary supports.
type Variant struct {
	// Name is the binary's basename as used on the command line
	Name    string
	NextGen bool

	// Subdir names the cache and state directories under /var/cache and /var/lib.
	// It differs per variant so that dnf5 and dnf never share on-disk state.
	Subdir string

	DisablePlugin string
	EnablePlugin  string
	EnableRepo    string
	DisableRepo   string
	NoDocs        string

	// HostConfig means the binary reads /etc/dnf and /etc/yum.repos.d from outside
	// the install root via --use-host-config. Without it the paths are passed explicitly.
	HostConfig bool

	// MetadataCacheOnly means --setopt=cacheonly=metadata is understood.
	MetadataCacheOnly bool

	// Filelists means filelists metadata must be requested in dnf.conf.
	Filelists bool
}

var (
	nextGenVariant = Variant{
		NextGen:           true,
		Subdir:            "libdnf5",
		DisablePlugin:     "--disable-plugin",
		EnablePlugin:      "--enable-plugin",
		EnableRepo:        "--enable-repo",
		DisableRepo:       "--disable-repo",
		NoDocs:            "--no-docs",
		HostConfig:        true,
		MetadataCacheOnly: true,
		Filelists:         true,
	}

	legacyVariant = Variant{
		Subdir:        "dnf",
		DisablePlugin: "--disableplugin",
		EnablePlugin:  "--enableplugin",
		EnableRepo:    "--enablerepo",
		DisableRepo:   "--disablerepo",
		NoDocs:        "--nodocs",
	}
)

// VariantFor returns the variant record for a binary basename.
func VariantFor(binary string) Variant {
	v := legacyVariant
	if strings.HasSuffix(binary, "dnf5") {
		v = nextGenVariant
	}
	v.Name = binary
	return v
}

// Executable returns the basename of the dnf binary to run: the MKOSI_DNF override if
// set, otherwise dnf5 or dnf from the tools tree, otherwise yum. yum is not looked up;
// if it is missing too, running it fails.
func Executable(config *imageconfig.Config) string {
	if dnf := config.Environment[binaryOverrideEnv]; dnf != "" {
		return filepath.Base(dnf)
	}

	for _, name := range []string{"dnf5", "dnf"} {
		if path, ok := utils.FindBinary(name, config.ToolsTree); ok {
			return filepath.Base(path)
		}
	}

	return "yum"
}

// Subdir returns the cache/state directory name for the binary Executable picks.
func Subdir(config *imageconfig.Config) string {
	return VariantFor(Executable(config)).Subdir
}
