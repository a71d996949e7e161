package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	assert.Equal(t, "restaurant-reservation dev (commit=none, built=unknown)\n", out.String())
}

func TestRootRegistersSubcommands(t *testing.T) {
	root := NewRootCmd()
	for _, name := range []string{"serve", "sweep", "migrate", "version"} {
		c, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, c.Name())
	}

	serve, _, err := root.Find([]string{"serve"})
	require.NoError(t, err)
	flag := serve.Flags().Lookup("migrate")
	require.NotNil(t, flag)
	assert.Equal(t, "true", flag.NoOptDefVal)
}
