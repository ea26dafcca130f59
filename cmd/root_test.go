// cmd/root_test.go
package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandWiring(t *testing.T) {
	var names []string
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Contains(t, names, "run")
	assert.Contains(t, names, "probe")
	assert.Contains(t, names, "version")

	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("config"))
}

func TestRunCommandFlags(t *testing.T) {
	runCmd := newRunCmd()

	report := runCmd.Flags().Lookup("report")
	require.NotNil(t, report)
	assert.Equal(t, "stdout", report.DefValue)
	assert.Equal(t, "r", report.Shorthand)

	require.NotNil(t, runCmd.Flags().Lookup("with-probe"))

	err := runCmd.Args(runCmd, []string{})
	assert.Error(t, err, "run requires a scenario file argument")
	err = runCmd.Args(runCmd, []string{"scenarios/full-gameplay.yaml"})
	assert.NoError(t, err)
}

func TestProbeCommandArgs(t *testing.T) {
	probeCmd := newProbeCmd()
	assert.Error(t, probeCmd.Args(probeCmd, nil))
	assert.NoError(t, probeCmd.Args(probeCmd, []string{"scenarios/focus-probe.yaml"}))
}
