package info

import (
	"runtime/debug"
	"strings"
)

// Contributor adds details to an info document.
type Contributor interface {
	Contribute(details map[string]any)
}

// BuildInfoFunc reads the build metadata embedded in the running binary.
type BuildInfoFunc func() (*debug.BuildInfo, bool)

// Collect runs every contributor against a fresh document.
func Collect(contributors ...Contributor) map[string]any {
	details := make(map[string]any)
	for _, c := range contributors {
		c.Contribute(details)
	}
	return details
}

// Contributors returns the build and git contributors configured by p.
func Contributors(p *Properties, read BuildInfoFunc) []Contributor {
	return []Contributor{
		&BuildContributor{Mode: p.BuildMode(), Read: read},
		&GitContributor{Mode: p.GitMode(), Read: read},
	}
}

// BuildContributor exposes module and toolchain metadata under "build".
type BuildContributor struct {
	Mode Mode
	// Read defaults to debug.ReadBuildInfo.
	Read BuildInfoFunc
}

func (c *BuildContributor) Contribute(details map[string]any) {
	if c.Mode == ModeOff {
		return
	}
	bi, ok := readBuildInfo(c.Read)
	if !ok {
		return
	}

	build := map[string]any{
		"path":    bi.Path,
		"version": bi.Main.Version,
		"go":      bi.GoVersion,
	}
	if c.Mode == ModeFull {
		build["module"] = bi.Main.Path
		build["sum"] = bi.Main.Sum
		build["dependencies"] = len(bi.Deps)

		settings := make(map[string]string)
		for _, s := range bi.Settings {
			if !strings.HasPrefix(s.Key, "vcs") {
				settings[s.Key] = s.Value
			}
		}
		build["settings"] = settings
	}
	details["build"] = build
}

// GitContributor exposes version control metadata under "git".
// Binaries built outside a repository contribute nothing.
type GitContributor struct {
	Mode Mode
	// Read defaults to debug.ReadBuildInfo.
	Read BuildInfoFunc
}

func (c *GitContributor) Contribute(details map[string]any) {
	if c.Mode == ModeOff {
		return
	}
	bi, ok := readBuildInfo(c.Read)
	if !ok {
		return
	}

	vcs := make(map[string]string)
	for _, s := range bi.Settings {
		if key, ok := strings.CutPrefix(s.Key, "vcs."); ok {
			vcs[key] = s.Value
		} else if s.Key == "vcs" {
			vcs["system"] = s.Value
		}
	}
	if vcs["system"] != "git" || vcs["revision"] == "" {
		return
	}

	commit := map[string]any{
		"id":   abbreviate(vcs["revision"]),
		"time": vcs["time"],
	}
	git := map[string]any{"commit": commit}
	if c.Mode == ModeFull {
		commit["id"] = vcs["revision"]
		commit["abbrev"] = abbreviate(vcs["revision"])
		git["dirty"] = vcs["modified"] == "true"
		git["system"] = vcs["system"]
	}
	details["git"] = git
}

func readBuildInfo(read BuildInfoFunc) (*debug.BuildInfo, bool) {
	if read == nil {
		read = debug.ReadBuildInfo
	}
	bi, ok := read()
	return bi, ok && bi != nil
}

func abbreviate(revision string) string {
	if len(revision) > 7 {
		return revision[:7]
	}
	return revision
}
