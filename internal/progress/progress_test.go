package progress

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriter_WriteJSONMessage_Disabled(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf, false)

	require.NoError(t, w.WriteJSONMessage(map[string]any{"kind": "progress"}))
	require.Empty(t, buf.String())
}

func TestWriter_WriteJSONMessage_Enabled(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf, true)

	require.NoError(t, w.WriteJSONMessage(map[string]any{"kind": "progress", "n": 1}))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Equal(t, "progress", got["kind"])
	require.Equal(t, float64(1), got["n"])
	require.True(t, strings.HasSuffix(buf.String(), "\n"))
}

func TestWriter_WriteJSONMessage_OneLinePerCall(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf, true)

	require.NoError(t, w.WriteJSONMessage(map[string]any{"n": 1}))
	require.NoError(t, w.WriteJSONMessage(map[string]any{"n": 2}))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
}

func TestWriter_WriteJSONMessage_SerializesConcurrentWriters(t *testing.T) {
	var buf bytes.Buffer
	var mu sync.Mutex
	w := New(&mockMutexWriter{buf: &buf, mu: &mu}, true)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = w.WriteJSONMessage(map[string]any{"n": i})
		}()
	}
	wg.Wait()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 20)
	for _, line := range lines {
		var got map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &got))
	}
}

// mockMutexWriter guards buf with its own lock, independent of Writer's
// internal mutex, so the concurrent Write calls never race on the
// bytes.Buffer; since each message reaches it as one Write call, the test
// checks that every recorded line is a complete JSON message.
type mockMutexWriter struct {
	buf *bytes.Buffer
	mu  *sync.Mutex
}

func (m *mockMutexWriter) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.buf.Write(p)
}
