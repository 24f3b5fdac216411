package config_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ramdl/engine/config"
)

func TestParseOverridesDefaults(t *testing.T) {
	c, err := config.Parse(`
[engine]
workers = 4
profile = true

[diagnostics]
path = "trace.log"
compress = true
`)
	require.NoError(t, err)
	require.Equal(t, 4, c.Engine.Workers)
	require.True(t, c.Engine.Profile)
	require.Equal(t, "trace.log", c.Diagnostics.Path)
	require.True(t, c.Diagnostics.Compress)
}

func TestParseEmptyKeepsDefaults(t *testing.T) {
	c, err := config.Parse("")
	require.NoError(t, err)
	require.Equal(t, config.Default(), c)
}
