package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLevels(t *testing.T) {
	tests := []struct {
		level string
		want  logrus.Level
	}{
		{"debug", logrus.DebugLevel},
		{"warn", logrus.WarnLevel},
		{"", logrus.InfoLevel},
		{"loud", logrus.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			log, closer, err := New(Options{Level: tt.level})
			require.NoError(t, err)
			defer closer.Close()
			assert.Equal(t, tt.want, log.GetLevel())
		})
	}
}

func TestNewFormat(t *testing.T) {
	log, _, err := New(Options{Format: "json"})
	require.NoError(t, err)
	assert.IsType(t, &logrus.JSONFormatter{}, log.Formatter)

	log, _, err = New(Options{Format: "text"})
	require.NoError(t, err)
	assert.IsType(t, &logrus.TextFormatter{}, log.Formatter)
}

func TestNewWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agp.log")

	log, closer, err := New(Options{Level: "info", Format: "json", File: path})
	require.NoError(t, err)
	log.WithField("route", "analyze").Info("recorded")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"route":"analyze"`)
	assert.Contains(t, string(data), `"msg":"recorded"`)
}

func TestNewBadFile(t *testing.T) {
	_, _, err := New(Options{File: filepath.Join(t.TempDir(), "missing", "dir", "agp.log")})
	assert.Error(t, err)
}
