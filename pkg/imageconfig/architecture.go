package imageconfig

import (
	"runtime"
)

// Architecture is the architecture name used in configuration files, independent of
// how any particular distribution spells it.
type Architecture string

const (
	ArchX86       Architecture = "x86"
	ArchX86_64    Architecture = "x86-64"
	ArchArm64     Architecture = "arm64"
	ArchArm       Architecture = "arm"
	ArchPPC64LE   Architecture = "ppc64-le"
	ArchS390X     Architecture = "s390x"
	ArchRISCV64   Architecture = "riscv64"
	ArchLoongArch Architecture = "loongarch64"
)

var goArchitectures = map[string]Architecture{
	"386":     ArchX86,
	"amd64":   ArchX86_64,
	"arm64":   ArchArm64,
	"arm":     ArchArm,
	"ppc64le": ArchPPC64LE,
	"s390x":   ArchS390X,
	"riscv64": ArchRISCV64,
	"loong64": ArchLoongArch,
}

// NativeArchitecture returns the architecture of the running host
func NativeArchitecture() Architecture {
	if arch, ok := goArchitectures[runtime.GOARCH]; ok {
		return arch
	}
	return Architecture(runtime.GOARCH)
}

func (a Architecture) IsNative() bool {
	return a == NativeArchitecture()
}

// Distribution identifies an RPM-based distribution managed through dnf
type Distribution string

const (
	Fedora       Distribution = "fedora"
	CentOS       Distribution = "centos"
	RHEL         Distribution = "rhel"
	RHELUBI      Distribution = "rhel-ubi"
	Alma         Distribution = "alma"
	Rocky        Distribution = "rocky"
	Mageia       Distribution = "mageia"
	OpenMandriva Distribution = "openmandriva"
)

// Distributions lists every distribution this tool knows how to drive
func Distributions() []Distribution {
	return []Distribution{Fedora, CentOS, RHEL, RHELUBI, Alma, Rocky, Mageia, OpenMandriva}
}

var rpmArchitectures = map[Architecture]string{
	ArchX86:       "i686",
	ArchX86_64:    "x86_64",
	ArchArm64:     "aarch64",
	ArchArm:       "armv7hl",
	ArchPPC64LE:   "ppc64le",
	ArchS390X:     "s390x",
	ArchRISCV64:   "riscv64",
	ArchLoongArch: "loongarch64",
}

var supportedArchitectures = map[Distribution][]Architecture{
	Fedora:       {ArchX86_64, ArchArm64, ArchPPC64LE, ArchS390X, ArchRISCV64, ArchLoongArch},
	CentOS:       {ArchX86_64, ArchArm64, ArchPPC64LE, ArchS390X},
	RHEL:         {ArchX86_64, ArchArm64, ArchPPC64LE, ArchS390X},
	RHELUBI:      {ArchX86_64, ArchArm64, ArchPPC64LE, ArchS390X},
	Alma:         {ArchX86_64, ArchArm64, ArchPPC64LE, ArchS390X},
	Rocky:        {ArchX86_64, ArchArm64, ArchPPC64LE, ArchS390X},
	Mageia:       {ArchX86_64, ArchArm64, ArchX86, ArchArm},
	OpenMandriva: {ArchX86_64, ArchArm64, ArchRISCV64},
}

// RPMName returns the RPM spelling of a, or a itself when it has none.
func (a Architecture) RPMName() string {
	if name, ok := rpmArchitectures[a]; ok {
		return name
	}
	return string(a)
}

// Architecture maps arch to the name the distribution's package manager expects for
// --forcearch. The second return value is false when the distribution does not ship
// the architecture.
func (d Distribution) Architecture(arch Architecture) (string, bool) {
	for _, a := range supportedArchitectures[d] {
		if a == arch {
			return rpmArchitectures[arch], true
		}
	}
	return "", false
}
