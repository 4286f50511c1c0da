package pkgmgr

import (
	"fmt"
	"strings"

	"go-dnf-installer/pkg/imageconfig"

	"gopkg.in/ini.v1"
)

const (
	repoFileName      = "mkosi.repo"
	localRepoFileName = "mkosi-local.repo"
	localRepoID       = "mkosi"

	gpgKeyPrefix = "gpgkey="
)

const filelistsConfig = "[main]\noptional_metadata_types=filelists\n"

const localRepoStanza = `[mkosi]
name=mkosi
baseurl=file:///work/packages
gpgcheck=0
metadata_expire=never
priority=50
`

// urlKeys are the keys that can carry a repository's source line.
var urlKeys = []string{"baseurl", "mirrorlist", "metalink"}

// RenderRepositories formats repos as a yum.repos.d file. The output depends only on
// repos. Duplicate ids are written as duplicate stanzas.
func RenderRepositories(repos []imageconfig.Repository) string {
	var b strings.Builder

	for _, repo := range repos {
		fmt.Fprintf(&b, "[%s]\n", repo.ID)
		fmt.Fprintf(&b, "name=%s\n", repo.ID)
		fmt.Fprintf(&b, "%s\n", repo.URL)
		b.WriteString("gpgcheck=1\n")
		fmt.Fprintf(&b, "enabled=%d\n", boolToInt(repo.Enabled))

		if repo.SSLCACert != "" {
			fmt.Fprintf(&b, "sslcacert=%s\n", repo.SSLCACert)
		}
		if repo.SSLClientCert != "" {
			fmt.Fprintf(&b, "sslclientcert=%s\n", repo.SSLClientCert)
		}
		if repo.SSLClientKey != "" {
			fmt.Fprintf(&b, "sslclientkey=%s\n", repo.SSLClientKey)
		}
		if repo.Priority != 0 {
			fmt.Fprintf(&b, "priority=%d\n", repo.Priority)
		}

		// Further keys are continuation lines aligned under the first one
		for i, url := range repo.GPGURLs {
			if i == 0 {
				b.WriteString(gpgKeyPrefix)
			} else {
				b.WriteString(strings.Repeat(" ", len(gpgKeyPrefix)))
			}
			b.WriteString(url)
			b.WriteString("\n")
		}

		b.WriteString("\n")
	}

	return b.String()
}

// ReadRepositories parses a repository file written by RenderRepositories (or any
// yum.repos.d file) back into descriptors.
func ReadRepositories(path string) ([]imageconfig.Repository, error) {
	file, err := ini.LoadSources(ini.LoadOptions{
		AllowPythonMultilineValues: true,
		IgnoreInlineComment:        true,
		KeyValueDelimiters:         "=",
	}, path)
	if err != nil {
		return nil, fmt.Errorf("failed to load repository file (%s): %w", path, err)
	}

	var repos []imageconfig.Repository
	for _, section := range file.Sections() {
		if section.Name() == ini.DefaultSection {
			continue
		}

		repo := imageconfig.Repository{
			ID:            section.Name(),
			Enabled:       section.Key("enabled").MustBool(true),
			GPGURLs:       strings.Fields(section.Key("gpgkey").String()),
			SSLCACert:     section.Key("sslcacert").String(),
			SSLClientCert: section.Key("sslclientcert").String(),
			SSLClientKey:  section.Key("sslclientkey").String(),
			Priority:      section.Key("priority").MustInt(0),
		}
		for _, key := range urlKeys {
			if section.HasKey(key) {
				repo.URL = key + "=" + section.Key(key).String()
				break
			}
		}

		repos = append(repos, repo)
	}

	return repos, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
