package cliflags

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterBindsFlagsToViper(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	v := Register(cmd)

	require.NoError(t, cmd.Flags().Set("config", "/etc/unit-cooler.toml"))
	require.NoError(t, cmd.Flags().Set("port", "9999"))
	require.NoError(t, cmd.Flags().Set("dummy", "true"))

	assert.Equal(t, "/etc/unit-cooler.toml", v.GetString("config"))
	assert.Equal(t, 9999, v.GetInt("port"))
	assert.True(t, v.GetBool("dummy"))
}

func TestRegisterDefaultsAreZeroValued(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	v := Register(cmd)

	assert.Equal(t, 0, v.GetInt("port"))
	assert.Equal(t, 0, v.GetInt("msg-count"))
	assert.False(t, v.GetBool("debug"))
}
