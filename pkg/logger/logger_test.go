package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(bytes.NewBuffer(nil))
		Init("info")
	})
	return &buf
}

func TestLevelFiltering(t *testing.T) {
	buf := capture(t)

	Init("warn")
	Debugf("hidden %d", 1)
	Infof("hidden %d", 2)
	Warnf("shown %d", 3)
	Errorf("shown %d", 4)

	out := buf.String()
	require.NotContains(t, out, "hidden")
	require.Contains(t, out, "[WARN] shown 3")
	require.Contains(t, out, "[ERROR] shown 4")
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, LevelDebug, ParseLevel("DEBUG"))
	require.Equal(t, LevelWarn, ParseLevel(" warning "))
	require.Equal(t, LevelInfo, ParseLevel(""))
	require.Equal(t, LevelInfo, ParseLevel("nonsense"))
	require.Equal(t, LevelFatal, ParseLevel("fatal"))
}

func TestLevelString(t *testing.T) {
	capture(t)
	Init("error")
	require.Equal(t, "error", LevelString())
}

func TestLinesCarryTimestampHeader(t *testing.T) {
	buf := capture(t)
	Init("info")
	Info("hello")

	line := strings.TrimSpace(buf.String())
	// RFC3339 timestamp then the level tag
	require.Regexp(t, `^\d{4}-\d{2}-\d{2}T`, line)
	require.Contains(t, line, "[INFO] hello")
}
