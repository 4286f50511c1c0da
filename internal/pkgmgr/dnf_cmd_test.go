package pkgmgr

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go-dnf-installer/pkg/imageconfig"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVariantSubdirs(t *testing.T) {
	next := VariantFor("dnf5")
	legacy := VariantFor("dnf")

	assert.NotEqual(t, next.Subdir, legacy.Subdir)
	assert.Equal(t, next.Subdir, VariantFor("dnf5").Subdir)
	assert.Equal(t, legacy.Subdir, VariantFor("yum").Subdir)
	assert.Equal(t, "libdnf5", next.Subdir)
	assert.Equal(t, "dnf", legacy.Subdir)
	assert.True(t, VariantFor("/opt/bin/dnf5").NextGen)
}

func TestExecutable(t *testing.T) {
	writeBinary := func(t *testing.T, tree, name string) {
		t.Helper()
		path := filepath.Join(tree, "usr/bin", name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0755))
	}

	tests := []struct {
		name     string
		binaries []string
		override string
		want     string
	}{
		{"next-gen preferred", []string{"dnf", "dnf5"}, "", "dnf5"},
		{"legacy", []string{"dnf"}, "", "dnf"},
		{"fallback without lookup", nil, "", "yum"},
		{"override wins", []string{"dnf5"}, "/somewhere/dnf-3", "dnf-3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := t.TempDir()
			for _, name := range tt.binaries {
				writeBinary(t, tree, name)
			}

			config := imageconfig.NewConfig()
			config.ToolsTree = tree
			if tt.override != "" {
				config.Environment[binaryOverrideEnv] = tt.override
			}

			assert.Equal(t, tt.want, Executable(config))
			// Resolution is repeatable
			assert.Equal(t, Executable(config), Executable(config))
		})
	}
}

func testCmdConfig(binary string) *imageconfig.Config {
	config := imageconfig.NewConfig()
	config.Distribution = imageconfig.Fedora
	config.Release = "40"
	config.Root = "/buildroot"
	config.Environment[binaryOverrideEnv] = binary
	return config
}

func TestCmdDefaults(t *testing.T) {
	d := &DNF{}
	cmdline := d.Cmd(testCmdConfig("dnf5"))

	assert.Equal(t, []string{
		"env", "HOME=/",
		"dnf5",
		"--assumeyes",
		"--best",
		"--releasever=40",
		"--installroot=/buildroot",
		"--setopt=keepcache=1",
		"--setopt=logdir=/var/log",
		"--setopt=cachedir=/var/cache/libdnf5",
		"--setopt=persistdir=/var/lib/libdnf5",
		"--setopt=install_weak_deps=0",
		"--setopt=check_config_file_age=0",
		"--disable-plugin=*",
		"--enable-plugin=builddep",
		"--setopt=metadata_expire=never",
		"--setopt=cacheonly=metadata",
		"--use-host-config",
	}, cmdline)
}

func TestCmdLegacy(t *testing.T) {
	config := testCmdConfig("dnf")
	config.WithDocs = false
	config.WithRecommends = true
	config.EnableRepos = []string{"fedora", "updates"}

	cmdline := (&DNF{}).Cmd(config)

	assert.Contains(t, cmdline, "--disableplugin=*")
	assert.Contains(t, cmdline, "--enableplugin=builddep")
	assert.Contains(t, cmdline, "--setopt=install_weak_deps=1")
	assert.Contains(t, cmdline, "--setopt=cachedir=/var/cache/dnf")
	assert.Contains(t, cmdline, "--nodocs")
	assert.NotContains(t, cmdline, "--setopt=cacheonly=metadata")
	assert.NotContains(t, cmdline, "--use-host-config")
	assert.Equal(t, []string{
		"--config=/etc/dnf/dnf.conf",
		"--setopt=reposdir=/etc/yum.repos.d",
		"--setopt=varsdir=/etc/dnf/vars",
	}, cmdline[len(cmdline)-3:])

	joined := strings.Join(cmdline, " ")
	assert.Contains(t, joined, "--enablerepo=fedora --enablerepo=updates")
}

func TestCmdCachePolicy(t *testing.T) {
	tests := []struct {
		policy      imageconfig.CacheOnly
		cacheOnly   bool
		neverExpire bool
	}{
		{imageconfig.CacheOnlyAlways, true, false},
		{imageconfig.CacheOnlyAuto, false, true},
		{imageconfig.CacheOnlyMetadata, false, true},
		{imageconfig.CacheOnlyNone, false, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			for _, binary := range []string{"dnf5", "dnf"} {
				config := testCmdConfig(binary)
				config.CacheOnly = tt.policy
				cmdline := (&DNF{}).Cmd(config)

				assert.Equal(t, tt.cacheOnly, contains(cmdline, "--cacheonly"), binary)
				assert.Equal(t, tt.neverExpire, contains(cmdline, "--setopt=metadata_expire=never"), binary)
			}
		})
	}
}

func TestCmdForceArch(t *testing.T) {
	config := testCmdConfig("dnf5")
	assert.False(t, hasPrefix((&DNF{}).Cmd(config), "--forcearch="))

	foreign := imageconfig.ArchS390X
	if imageconfig.NativeArchitecture() == foreign {
		foreign = imageconfig.ArchArm64
	}
	config.Architecture = foreign

	cmdline := (&DNF{}).Cmd(config)
	want, ok := imageconfig.Fedora.Architecture(foreign)
	require.True(t, ok)
	assert.Contains(t, cmdline, "--forcearch="+want)
}

func TestCmdDebugAndKeyCheck(t *testing.T) {
	config := testCmdConfig("dnf5")
	cmdline := (&DNF{}).Cmd(config)
	assert.NotContains(t, cmdline, "--setopt=debuglevel=10")
	assert.NotContains(t, cmdline, "--nogpgcheck")

	config.Debug = true
	config.RepositoryKeyCheck = false
	cmdline = (&DNF{}).Cmd(config)
	assert.Contains(t, cmdline, "--setopt=debuglevel=10")
	assert.Contains(t, cmdline, "--nogpgcheck")
}

func TestMountsPkgmngrTree(t *testing.T) {
	config := testCmdConfig("dnf5")
	config.PackageManagerTree = "/pkgmngr"

	var dests []string
	for _, m := range (&DNF{}).Mounts(config) {
		dests = append(dests, m.Dest)
		if m.Dest == "/etc/dnf" {
			assert.Equal(t, "/pkgmngr/etc/dnf", m.Source)
			assert.True(t, m.Optional)
		}
	}
	assert.Contains(t, dests, "/etc/pki")
	assert.Contains(t, dests, "/etc/yum.repos.d")
	assert.Contains(t, dests, "/etc/resolv.conf")
	assert.NotContains(t, dests, "/work/packages")
}

func TestScripts(t *testing.T) {
	d := &DNF{}
	config := testCmdConfig("dnf5")
	scripts := d.Scripts(config)

	base := d.Cmd(config)
	dnf := scripts["dnf"]
	assert.Equal(t, base, dnf[len(dnf)-len(base):])
	assert.Equal(t, "bwrap", dnf[0])

	rpm := scripts["rpm"]
	assert.Equal(t, []string{"env", "HOME=/", "rpm", "--root", "/buildroot"}, rpm[len(rpm)-5:])

	assert.Equal(t, []string{"dnf", "install"}, scripts["mkosi-install"])
	assert.Equal(t, []string{"dnf", "reinstall"}, scripts["mkosi-reinstall"])
}

func TestRenderRepositories(t *testing.T) {
	repos := []imageconfig.Repository{
		{
			ID:            "fedora",
			URL:           "metalink=https://mirrors.fedoraproject.org/metalink?repo=fedora-40&arch=x86_64",
			Enabled:       true,
			GPGURLs:       []string{"file:///a", "file:///b", "file:///c"},
			SSLCACert:     "/etc/ca.pem",
			SSLClientCert: "/etc/client.pem",
			SSLClientKey:  "/etc/client.key",
			Priority:      10,
		},
		{ID: "base", URL: "baseurl=file:///repo", Enabled: false, GPGURLs: []string{"file:///key"}},
	}

	got := RenderRepositories(repos)
	assert.Equal(t, got, RenderRepositories(repos))

	want := "[fedora]\n" +
		"name=fedora\n" +
		"metalink=https://mirrors.fedoraproject.org/metalink?repo=fedora-40&arch=x86_64\n" +
		"gpgcheck=1\n" +
		"enabled=1\n" +
		"sslcacert=/etc/ca.pem\n" +
		"sslclientcert=/etc/client.pem\n" +
		"sslclientkey=/etc/client.key\n" +
		"priority=10\n" +
		"gpgkey=file:///a\n" +
		"       file:///b\n" +
		"       file:///c\n" +
		"\n" +
		"[base]\n" +
		"name=base\n" +
		"baseurl=file:///repo\n" +
		"gpgcheck=1\n" +
		"enabled=0\n" +
		"gpgkey=file:///key\n" +
		"\n"
	assert.Equal(t, want, got)
	assert.Empty(t, RenderRepositories(nil))
}

func TestRenderGPGKeyLines(t *testing.T) {
	for n := 1; n <= 5; n++ {
		var urls []string
		for i := 0; i < n; i++ {
			urls = append(urls, "file:///key"+strings.Repeat("x", i))
		}
		out := RenderRepositories([]imageconfig.Repository{{ID: "r", URL: "baseurl=file:///r", Enabled: true, GPGURLs: urls}})

		lines := strings.Split(strings.TrimSuffix(out, "\n\n"), "\n")
		keyLines := lines[len(lines)-n:]
		assert.True(t, strings.HasPrefix(keyLines[0], "gpgkey="))
		for _, line := range keyLines[1:] {
			assert.True(t, strings.HasPrefix(line, "       file://"), line)
		}
	}
}

func TestReadRepositories(t *testing.T) {
	repos := []imageconfig.Repository{
		{ID: "fedora", URL: "mirrorlist=https://example.com/mirrors", Enabled: true, GPGURLs: []string{"file:///a", "file:///b"}, Priority: 5},
		{ID: "local", URL: "baseurl=file:///repo", Enabled: false, GPGURLs: []string{"file:///key"}, SSLCACert: "/ca.pem"},
	}

	path := filepath.Join(t.TempDir(), "mkosi.repo")
	require.NoError(t, os.WriteFile(path, []byte(RenderRepositories(repos)), 0644))

	got, err := ReadRepositories(path)
	require.NoError(t, err)
	assert.Equal(t, repos, got)

	_, err = ReadRepositories(filepath.Join(t.TempDir(), "missing.repo"))
	assert.Error(t, err)
}

func contains(s []string, v string) bool {
	for _, e := range s {
		if e == v {
			return true
		}
	}
	return false
}

func hasPrefix(s []string, prefix string) bool {
	for _, e := range s {
		if strings.HasPrefix(e, prefix) {
			return true
		}
	}
	return false
}

func TestCmdForceArchUnlistedArchitecture(t *testing.T) {
	if imageconfig.NativeArchitecture() == imageconfig.ArchX86 {
		t.Skip("x86 is the native architecture")
	}

	// Fedora no longer ships i686 but the flag still needs the RPM spelling
	config := testCmdConfig("dnf5")
	config.Architecture = imageconfig.ArchX86

	cmdline := (&DNF{}).Cmd(config)
	assert.Contains(t, cmdline, "--forcearch=i686")
	assert.NotContains(t, cmdline, "--forcearch=x86")
}
