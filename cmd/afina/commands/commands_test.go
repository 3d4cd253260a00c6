package commands_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/afina/cmd/afina/commands"
)

func TestRootCmdRegistersSubcommands(t *testing.T) {
	t.Parallel()

	root := commands.NewRootCmd("test")
	names := make([]string, 0, len(root.Commands()))
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"serve", "seed", "rechat"})
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
}

func TestCommandArgumentValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
	}{
		{name: "rechat to the same chat", args: []string{"rechat", "--from", "5", "--to", "5"}},
		{name: "rechat missing target", args: []string{"rechat", "--from", "5"}},
		{name: "seed missing file", args: []string{"seed", "--chat-id", "5"}},
		{name: "serve takes no args", args: []string{"serve", "extra"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			root := commands.NewRootCmd("test")
			var out bytes.Buffer
			root.SetOut(&out)
			root.SetErr(&out)
			root.SetArgs(tt.args)
			require.Error(t, root.Execute())
		})
	}
}
