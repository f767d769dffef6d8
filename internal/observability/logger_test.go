package observability

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/lukaszgryglicki/adjointmc/internal/config"
)

// syncBuffer is a WriteSyncer over a buffer.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}
func (s *syncBuffer) Sync() error { return nil }
func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

var _ zapcore.WriteSyncer = (*syncBuffer)(nil)

func TestInitializeConsole(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)
	out := &syncBuffer{}
	Initialize(config.LoggerConfig{
		Level: "debug", Format: "console", ServiceName: "adjointmc",
		Colors: config.ColorConfig{Info: "green"},
	}, out)

	GetLogger().Named("adjoint").Info("adjoint run started")
	Sync()

	s := out.String()
	assert.Contains(t, s, colorGreen+"INFO"+colorReset)
	assert.Contains(t, s, "adjointmc.adjoint.")
	assert.Contains(t, s, "adjoint run started")
}

func TestInitializeJSONAndLevel(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)
	out := &syncBuffer{}
	Initialize(config.LoggerConfig{Level: "warn", Format: "json"}, out)

	l := GetLogger()
	l.Info("dropped")
	l.Warn("kept")

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 1)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "kept", entry["msg"])
}

func TestInitializeOnce(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)
	first, second := &syncBuffer{}, &syncBuffer{}
	Initialize(config.LoggerConfig{Level: "info", Format: "json"}, first)
	Initialize(config.LoggerConfig{Level: "info", Format: "json"}, second)
	GetLogger().Info("hello")
	assert.Contains(t, first.String(), "hello")
	assert.Empty(t, second.String())
}

func TestInitializeLogFile(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)
	path := filepath.Join(t.TempDir(), "adjointmc.log")
	Initialize(config.LoggerConfig{Level: "info", Format: "console", LogFile: path, MaxSize: 1}, &syncBuffer{})
	GetLogger().Info("to file")
	Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"to file"`)
}

func TestGetLoggerFallback(t *testing.T) {
	ResetForTest()
	l := GetLogger()
	require.NotNil(t, l)
	assert.Equal(t, "fallback", l.Name())
}
