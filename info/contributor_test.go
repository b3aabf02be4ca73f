package info_test

import (
	"runtime/debug"
	"testing"

	"github.com/lixenwraith/autoconfig/info"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeBuildInfo(vcs bool) info.BuildInfoFunc {
	bi := &debug.BuildInfo{
		GoVersion: "go1.24.0",
		Path:      "github.com/example/app/cmd/app",
		Main:      debug.Module{Path: "github.com/example/app", Version: "v1.2.3", Sum: "h1:abc"},
		Deps:      []*debug.Module{{Path: "github.com/a/b"}, {Path: "github.com/c/d"}},
		Settings: []debug.BuildSetting{
			{Key: "GOOS", Value: "linux"},
			{Key: "CGO_ENABLED", Value: "0"},
		},
	}
	if vcs {
		bi.Settings = append(bi.Settings,
			debug.BuildSetting{Key: "vcs", Value: "git"},
			debug.BuildSetting{Key: "vcs.revision", Value: "0123456789abcdef"},
			debug.BuildSetting{Key: "vcs.time", Value: "2026-01-02T03:04:05Z"},
			debug.BuildSetting{Key: "vcs.modified", Value: "true"},
		)
	}
	return func() (*debug.BuildInfo, bool) { return bi, true }
}

func TestBuildContributor(t *testing.T) {
	read := fakeBuildInfo(true)

	t.Run("Simple", func(t *testing.T) {
		details := info.Collect(&info.BuildContributor{Mode: info.ModeSimple, Read: read})
		build := details["build"].(map[string]any)
		assert.Equal(t, "v1.2.3", build["version"])
		assert.Equal(t, "go1.24.0", build["go"])
		assert.NotContains(t, build, "settings")
	})

	t.Run("Full", func(t *testing.T) {
		details := info.Collect(&info.BuildContributor{Mode: info.ModeFull, Read: read})
		build := details["build"].(map[string]any)
		assert.Equal(t, 2, build["dependencies"])
		assert.Equal(t, map[string]string{"GOOS": "linux", "CGO_ENABLED": "0"}, build["settings"])
	})

	t.Run("Off", func(t *testing.T) {
		assert.Empty(t, info.Collect(&info.BuildContributor{Mode: info.ModeOff, Read: read}))
	})

	t.Run("Unavailable", func(t *testing.T) {
		none := func() (*debug.BuildInfo, bool) { return nil, false }
		assert.Empty(t, info.Collect(&info.BuildContributor{Read: none}))
	})
}

func TestGitContributor(t *testing.T) {
	t.Run("Simple", func(t *testing.T) {
		details := info.Collect(&info.GitContributor{Mode: info.ModeSimple, Read: fakeBuildInfo(true)})
		git := details["git"].(map[string]any)
		commit := git["commit"].(map[string]any)
		assert.Equal(t, "0123456", commit["id"])
		assert.Equal(t, "2026-01-02T03:04:05Z", commit["time"])
		assert.NotContains(t, git, "dirty")
		assert.NotContains(t, git, "system")
	})

	t.Run("Full", func(t *testing.T) {
		details := info.Collect(&info.GitContributor{Mode: info.ModeFull, Read: fakeBuildInfo(true)})
		git := details["git"].(map[string]any)
		commit := git["commit"].(map[string]any)
		assert.Equal(t, "0123456789abcdef", commit["id"])
		assert.Equal(t, "0123456", commit["abbrev"])
		assert.Equal(t, true, git["dirty"])
		assert.Equal(t, "git", git["system"])
	})

	t.Run("NoVCS", func(t *testing.T) {
		assert.Empty(t, info.Collect(&info.GitContributor{Read: fakeBuildInfo(false)}))
	})
}

func TestContributorsFromProperties(t *testing.T) {
	p := info.NewProperties()
	p.SetGitMode(info.ModeOff)

	details := info.Collect(info.Contributors(p, fakeBuildInfo(true))...)
	require.Contains(t, details, "build")
	assert.NotContains(t, details, "git")
}
