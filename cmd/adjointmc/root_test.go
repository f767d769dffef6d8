package main

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestConfigCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "adjointmc.yaml")
	require.NoError(t, os.WriteFile(path, []byte("run:\n  events: 5\n  workers: 2\nlogger:\n  level: error\n"), 0o600))
	t.Setenv("ADJOINTMC_ADJOINT_EMAX", "2.5")

	out, err := execute(t, "config", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "events: 5")
	assert.Contains(t, out, "workers: 2")
	assert.Contains(t, out, "emax: 2.5")
}

func TestConfigCommandRejectsBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "adjointmc.yaml")
	require.NoError(t, os.WriteFile(path, []byte("adjoint:\n  spectrum: gaussian\n"), 0o600))
	_, err := execute(t, "config", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")

	_, err = execute(t, "config", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

var runIDRe = regexp.MustCompile(`run id\s+(\S+)`)

func TestRunAndRecords(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")

	out, err := execute(t, "run", "--events", "5", "--workers", "2", "--seed", "3", "--save", "--db", db, "--log-level", "error", "--spectra-out", filepath.Join(t.TempDir(), "s.raw"))
	require.NoError(t, err)
	assert.Contains(t, out, "events per type  5")
	assert.Contains(t, out, "PARTICLE")
	m := runIDRe.FindStringSubmatch(out)
	require.Len(t, m, 2, out)
	id := m[1]

	out, err = execute(t, "records", "--db", db, "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, id)
	assert.Contains(t, out, "[e- gamma]")

	out, err = execute(t, "records", id, "--db", db, "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "PARTICLE")

	_, err = execute(t, "records", "no-such-run", "--db", db, "--log-level", "error")
	assert.Error(t, err)
}

func TestRunRejectsArgs(t *testing.T) {
	_, err := execute(t, "run", "extra", "--log-level", "error")
	assert.Error(t, err)
}
