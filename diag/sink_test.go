package diag_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ramdl/engine/diag"
)

func TestSinkWithFileMirrorsEntries(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trace.log")

	s := diag.New(nil)
	s, err := s.WithFile(path, false)
	require.NoError(t, err)

	s.Trace("fixpoint", "iteration 1")
	s.Warn(diag.UserRuntime, "bad regex")
	s.Report("edge: 1 index(es)")
	require.NoError(t, s.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	require.Contains(t, text, "iteration 1")
	require.Contains(t, text, "bad regex")
	require.Contains(t, text, "index(es)")
}

func TestSinkCompressedClose(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trace.log")

	s := diag.New(nil)
	s, err := s.WithFile(path, true)
	require.NoError(t, err)
	s.Trace("x", "hello")
	require.NoError(t, s.Close())

	_, err = os.Stat(path + ".zst")
	require.NoError(t, err)
}

func TestIntegrityErrorMessage(t *testing.T) {
	err := &diag.IntegrityError{Msg: "unexpected node kind"}
	require.Contains(t, err.Error(), "unexpected node kind")
}
