package logging

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_ErrorFileOnlyGetsErrors(t *testing.T) {
	var console bytes.Buffer
	errPath := filepath.Join(t.TempDir(), "errors.log")

	log, err := New(Config{Level: "info", ErrorFile: errPath, Console: &console})
	require.NoError(t, err)

	log.Debug("hidden")
	log.Info("Load train data")
	log.Error("File not found", zap.Error(errors.New("train.csv")))
	require.NoError(t, log.Close())

	out := console.String()
	assert.Contains(t, out, "Load train data")
	assert.Contains(t, out, "File not found")
	assert.NotContains(t, out, "hidden")

	data, err := os.ReadFile(errPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "File not found")
	assert.NotContains(t, string(data), "Load train data")
}

func TestNew_JSONFormatAndDisabledFile(t *testing.T) {
	var console bytes.Buffer
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	log, err := New(Config{Level: "debug", Format: "json", ErrorFile: "-", Console: &console})
	require.NoError(t, err)
	log.Error("boom")
	require.NoError(t, log.Close())

	assert.Contains(t, console.String(), `"msg":"boom"`)
	_, err = os.Stat(filepath.Join(dir, DefaultErrorFile))
	assert.True(t, os.IsNotExist(err))
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New(Config{Level: "verbose", ErrorFile: "-", Console: &bytes.Buffer{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "verbose")
}

func TestNew_BadErrorFile(t *testing.T) {
	_, err := New(Config{ErrorFile: filepath.Join(t.TempDir(), "missing", "errors.log"), Console: &bytes.Buffer{}})
	require.Error(t, err)
}
