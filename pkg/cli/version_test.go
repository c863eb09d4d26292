package cli

import (
	"encoding/json"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w
	defer func() { os.Stdout = old }()

	fn()

	require.NoError(t, w.Close())
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(out)
}

func TestRunVersionJSON(t *testing.T) {
	versionJSON = true
	defer func() { versionJSON = false }()

	out := captureStdout(t, func() {
		require.NoError(t, runVersion(versionCmd, nil))
	})

	var decoded versionOutput
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	require.Equal(t, Version, decoded.Version)
}

func TestRunVersionText(t *testing.T) {
	versionJSON = false

	out := captureStdout(t, func() {
		require.NoError(t, runVersion(versionCmd, nil))
	})

	require.Contains(t, out, "mockman v")
}
