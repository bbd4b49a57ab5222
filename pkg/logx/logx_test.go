package logx

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFromFlags(t *testing.T) {
	assert.Equal(t, slog.LevelInfo, LevelFromFlags(false, false))
	assert.Equal(t, slog.LevelDebug, LevelFromFlags(true, false))
	assert.Equal(t, slog.LevelError, LevelFromFlags(false, true))
	assert.Equal(t, slog.LevelDebug, LevelFromFlags(true, true))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("chatty"))
}

func TestNewText(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, slog.LevelWarn, false)
	l.Info("hidden")
	l.Warn("inverted mesh", "file", "a.stl")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "inverted mesh")
	assert.Contains(t, out, "file=a.stl")
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, slog.LevelDebug, true)
	l.Debug("analysed", "triangles", 12)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "analysed", rec["msg"])
	assert.EqualValues(t, 12, rec["triangles"])
}

func TestLog(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	SetDefault(&buf, slog.LevelInfo, false)
	defer slog.SetDefault(prev)

	assert.NoError(t, Log(nil))
	err := errors.New("boom")
	assert.Equal(t, err, Log(err))
	assert.Equal(t, 1, strings.Count(buf.String(), "boom"))
}

func TestOr(t *testing.T) {
	assert.Equal(t, slog.Default(), Or(nil))
	l := New(&bytes.Buffer{}, slog.LevelInfo, false)
	assert.Same(t, l, Or(l))
}
