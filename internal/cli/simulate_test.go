package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shineon1903-bot/THE-CRUCIBLE-CORE/internal/store"
)

func TestSimulateRendersWills(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewSimulateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--steps", "3", "--seed", "7", "--dimension", "2"})

	err := cmd.Execute()
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "LIONCROW_WILL")
	assert.Contains(t, output, "purity")
	assert.Contains(t, output, "Synthesis complete: 3 step(s)")
}

func TestSimulateJSONOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewSimulateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--steps", "2", "--seed", "7", "--dimension", "2"})

	err := cmd.Execute()
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(2), data["steps"])
	assert.Equal(t, float64(2), data["dimension"])

	final, ok := data["final"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, final, "purity")
	assert.Contains(t, final, "atlantean_scar")
}

func TestSimulateRecordsDiagnostics(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewSimulateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--steps", "4", "--seed", "1", "--dimension", "2", "--record", dbPath})

	err := cmd.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Diagnostics recorded to")

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	rows, err := st.StepHistory(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, 0.05, rows[0].Dt)
	assert.Greater(t, rows[0].Purity, 0.0)
}

func TestSimulateRejectsBadFlags(t *testing.T) {
	cases := []struct {
		name string
		args []string
		want string
	}{
		{"zero steps", []string{"--steps", "0"}, "steps must be at least 1"},
		{"zero dt", []string{"--dt", "0"}, "dt must be positive"},
		{"negative dt", []string{"--dt", "-0.1"}, "dt must be positive"},
		{"zero dimension", []string{"--dimension", "0"}, "dimension must be between"},
		{"oversized dimension", []string{"--dimension", "64"}, "dimension must be between"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			rootOpts := &RootOptions{Format: "text"}
			cmd := NewSimulateCommand(rootOpts)
			cmd.SetOut(buf)
			cmd.SetArgs(tc.args)

			err := cmd.Execute()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
		})
	}
}

func TestSimulateBadRecordPath(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewSimulateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--steps", "1", "--record", "/nonexistent/path/test.db"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open database")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestSimulateHelpText(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewSimulateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--help"})

	err := cmd.Execute()
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "--steps")
	assert.Contains(t, output, "--record")
}
