package log

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func capture(t *testing.T, level Level) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(level)
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		SetLevel(LevelInfo)
	})
	return &buf
}

func TestErrorIncludesErrAndPairs(t *testing.T) {
	buf := capture(t, LevelInfo)

	Error("event fetch failed", errors.New("boom"), "url", "http://x", "count", 3)

	line := buf.String()
	assert.Contains(t, line, "[ERROR] event fetch failed")
	assert.Contains(t, line, "err=boom")
	assert.Contains(t, line, "url=http://x")
	assert.Contains(t, line, "count=3")
}

func TestLevelFiltering(t *testing.T) {
	buf := capture(t, LevelError)

	Debug("hidden")
	Info("hidden too")
	Error("shown", nil)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Equal(t, 1, strings.Count(out, "\n"))
}

func TestValuesWithSpacesAreQuoted(t *testing.T) {
	buf := capture(t, LevelDebug)

	Debug("query", "q", "social welfare", "empty", "")

	assert.Contains(t, buf.String(), `q="social welfare"`)
	assert.Contains(t, buf.String(), `empty=""`)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, LevelError, ParseLevel(" error "))
	assert.Equal(t, LevelInfo, ParseLevel("verbose"))
}
