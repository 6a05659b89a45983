package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

// testPlans holds a bare single-table plan and the named-subquery plan with
// table identifiers used throughout the command tests.
const testPlans = `
package test

plan: Simple: select: from: [{table: "Parent", alias: "p", hints: ["FULL"]}]

plan: TableID3: {
	order: "attachment"
	select: {
		hints: [{kind: "LEADING", params: [{table: "Pr"}, {table: "Ch"}]}]
		from: [
			{
				alias: "p"
				select: {
					name: "qn"
					from: [{
						alias: "p"
						select: from: [{table: "Parent", alias: "p", id: "Pr", hints: ["FULL"]}]
					}]
				}
			},
			{table: "Child", alias: "c", id: "Ch"},
		]
	}
}
`

// flattenedNamedPlan passes static validation but cannot be rendered.
const flattenedNamedPlan = `
package test

plan: Flattened: select: from: [{
	alias: "s"
	select: {
		name:        "inner"
		disposition: "flattened"
		from: [{table: "A", alias: "a", hints: ["FULL"]}]
	}
}]
`

func writePlans(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	return dir
}

// execute runs cmd with args and returns what it wrote to stdout.
func execute(cmd *cobra.Command, args ...string) (string, error) {
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}
