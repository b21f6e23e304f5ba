package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_DefaultsToStdoutInfo(t *testing.T) {
	logger, err := Setup(Options{})
	require.NoError(t, err)
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
	assert.Equal(t, os.Stdout, logger.Out)
}

func TestSetup_WritesToFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pipeline.log")

	logger, err := Setup(Options{FilePath: path, Console: false})
	require.NoError(t, err)
	logger.Info("hello from test")

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(contents), "hello from test")
}

func TestSetup_CustomFormatterApplies(t *testing.T) {
	var buf bytes.Buffer
	logger, err := Setup(Options{ConsoleFmt: &logrus.JSONFormatter{}})
	require.NoError(t, err)
	logger.SetOutput(&buf)
	logger.Info("json line")
	assert.Contains(t, buf.String(), `"msg":"json line"`)
}
