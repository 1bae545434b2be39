package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandTree(t *testing.T) {
	root := NewRootCmd()

	tests := []struct {
		name    string
		args    []string
		command string
	}{
		{name: "deploy", args: []string{"deploy"}, command: "deploy"},
		{name: "list alias", args: []string{"ls"}, command: "list"},
		{name: "check with contract", args: []string{"check", "Marketplace"}, command: "check"},
		{name: "version", args: []string{"version"}, command: "version"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, _, err := root.Find(tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.command, cmd.Name())
		})
	}
}

func TestDeployFlagDefaults(t *testing.T) {
	root := NewRootCmd()
	deploy, _, err := root.Find([]string{"deploy"})
	require.NoError(t, err)

	tests := []struct {
		flag     string
		expected string
	}{
		{flag: "reset", expected: "true"},
		{flag: "no-reset", expected: "false"},
		{flag: "upgrade", expected: "false"},
		{flag: "dry-run", expected: "false"},
		{flag: "no-build", expected: "false"},
		{flag: "feature", expected: ""},
	}
	for _, tt := range tests {
		f := deploy.Flags().Lookup(tt.flag)
		require.NotNil(t, f, tt.flag)
		assert.Equal(t, tt.expected, f.DefValue, tt.flag)
	}

	network := root.PersistentFlags().Lookup("network")
	require.NotNil(t, network)
	assert.Equal(t, "devnet", network.DefValue)
	assert.Equal(t, "n", network.Shorthand)
}

func TestDeployRejectsPositionalArgs(t *testing.T) {
	root := NewRootCmd()
	root.SetArgs([]string{"deploy", "Marketplace"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command")
}

func TestVersionCommand(t *testing.T) {
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetArgs([]string{"version"})
	root.SetOut(&out)

	require.NoError(t, root.Execute())
	assert.Equal(t, "cofi-deploy version dev\n", out.String())
}
