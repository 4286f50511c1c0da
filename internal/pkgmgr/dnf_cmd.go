package pkgmgr

import (
	"fmt"
	"path/filepath"

	"go-dnf-installer/pkg/imageconfig"
	"go-dnf-installer/pkg/sandbox"

	log "github.com/sirupsen/logrus"
)

// Cmd returns the part of the dnf command line shared by every operation. The
// operation and its arguments are appended by the caller.
func (d *DNF) Cmd(config *imageconfig.Config) []string {
	v := VariantFor(Executable(config))

	cmdline := []string{
		// Keep rpm away from ~/.rpmmacros and ~/.rpmrc
		"env", "HOME=/",
		v.Name,
		"--assumeyes",
		"--best",
		"--releasever=" + config.Release,
		"--installroot=" + config.Root,
		"--setopt=keepcache=1",
		"--setopt=logdir=/var/log",
		"--setopt=cachedir=/var/cache/" + v.Subdir,
		"--setopt=persistdir=/var/lib/" + v.Subdir,
		fmt.Sprintf("--setopt=install_weak_deps=%d", boolToInt(config.WithRecommends)),
		"--setopt=check_config_file_age=0",
		v.DisablePlugin + "=*",
		v.EnablePlugin + "=builddep",
	}

	if config.Debug {
		cmdline = append(cmdline, "--setopt=debuglevel=10")
	}

	if !config.RepositoryKeyCheck {
		cmdline = append(cmdline, "--nogpgcheck")
	}

	for _, repo := range config.EnableRepos {
		cmdline = append(cmdline, v.EnableRepo+"="+repo)
	}

	if config.CacheOnly == imageconfig.CacheOnlyAlways {
		cmdline = append(cmdline, "--cacheonly")
	} else {
		cmdline = append(cmdline, "--setopt=metadata_expire=never")
		if v.MetadataCacheOnly {
			cmdline = append(cmdline, "--setopt=cacheonly=metadata")
		}
	}

	if !config.Architecture.IsNative() {
		arch, ok := config.Distribution.Architecture(config.Architecture)
		if !ok {
			arch = config.Architecture.RPMName()
			log.Warnf("%s does not list architecture %s, passing --forcearch=%s", config.Distribution, config.Architecture, arch)
		}
		cmdline = append(cmdline, "--forcearch="+arch)
	}

	if !config.WithDocs {
		cmdline = append(cmdline, v.NoDocs)
	}

	if v.HostConfig {
		cmdline = append(cmdline, "--use-host-config")
	} else {
		cmdline = append(cmdline,
			"--config=/etc/dnf/dnf.conf",
			"--setopt=reposdir=/etc/yum.repos.d",
			"--setopt=varsdir=/etc/dnf/vars",
		)
	}

	return cmdline
}

// cryptoDirs are trust stores taken from the tools tree when present
var cryptoDirs = []string{
	"etc/pki",
	"etc/ssl",
	"etc/crypto-policies",
	"etc/ca-certificates",
	"var/lib/ca-certificates",
}

// Mounts returns the binds every dnf invocation needs besides the install root and
// the build sources.
func (d *DNF) Mounts(config *imageconfig.Config) []sandbox.Mount {
	var mounts []sandbox.Mount

	tools := config.ToolsTree
	if tools == "" {
		tools = "/"
	}
	for _, dir := range cryptoDirs {
		mounts = append(mounts, sandbox.Mount{
			Source:   filepath.Join(tools, dir),
			Dest:     "/" + dir,
			Mode:     sandbox.MountModeRO,
			Optional: true,
		})
	}

	if config.PackagesDir != "" {
		mounts = append(mounts, sandbox.Bind(config.PackagesDir, localPackagesDir))
	}

	if config.PackageCacheDir != "" {
		subdir := Subdir(config)
		for _, kind := range []string{"cache", "lib"} {
			mounts = append(mounts, sandbox.Bind(
				filepath.Join(config.PackageCacheDir, kind, subdir),
				filepath.Join("/var", kind, subdir),
			))
		}
	}

	for _, dir := range []string{"etc/dnf", "etc/yum.repos.d"} {
		mounts = append(mounts, sandbox.Mount{
			Source:   filepath.Join(config.PackageManagerTree, dir),
			Dest:     "/" + dir,
			Mode:     sandbox.MountModeRO,
			Optional: true,
		})
	}

	mounts = append(mounts, sandbox.Mount{
		Source:   "/etc/resolv.conf",
		Dest:     "/etc/resolv.conf",
		Mode:     sandbox.MountModeRO,
		Optional: true,
	})

	return mounts
}

// Scripts returns command lines that build scripts can use to drive the package
// manager against the image.
func (d *DNF) Scripts(config *imageconfig.Config) map[string][]string {
	scripts := map[string][]string{
		"dnf": append(sandbox.APIVFSCommand("", config.Root), d.Cmd(config)...),
		"rpm": append(sandbox.APIVFSCommand("", config.Root), rpmCmd(config)...),
	}
	for _, verb := range []string{"install", "upgrade", "remove", "reinstall"} {
		scripts["mkosi-"+verb] = []string{"dnf", verb}
	}
	return scripts
}

func rpmCmd(config *imageconfig.Config) []string {
	return []string{"env", "HOME=/", "rpm", "--root", config.Root}
}
