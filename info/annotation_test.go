package info_test

import (
	"testing"

	"github.com/lixenwraith/autoconfig/config"
	"github.com/lixenwraith/autoconfig/info"
	"github.com/lixenwraith/autoconfig/mapping"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsAnnotation(t *testing.T) {
	reg := mapping.NewRegistry()
	require.NoError(t, info.RegisterAnnotations(reg))

	base := mapping.NewClass("BaseTest", nil, info.Settings{Build: info.ModeOff, Git: info.ModeOff})
	class := mapping.NewClass("OrderTest", base, info.Settings{Build: info.ModeFull})

	src, err := mapping.NewSource(class, reg)
	require.NoError(t, err)
	assert.Equal(t, []string{"management.info.build.mode", "management.info.git.mode"}, src.PropertyNames())

	cfg := config.New()
	require.NoError(t, cfg.AddPropertySource(src))
	require.NoError(t, cfg.LoadCLI([]string{"--management.info.build.mode=off"}))

	props, err := info.Bind(cfg)
	require.NoError(t, err)
	assert.Equal(t, info.ModeFull, props.BuildMode(), "annotation outranks the command line")
	assert.Equal(t, info.ModeSimple, props.GitMode(), "the subclass value shadows the ancestor")
}
