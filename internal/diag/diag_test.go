package diag

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/standardbeagle/zlsd/internal/docstore"
	"github.com/stretchr/testify/require"
)

func TestPublisher_Publish_EmptyBatchWritesNothing(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf)

	p.Publish()

	require.Empty(t, buf.String())
}

func TestPublisher_Publish_BatchesBuildAndDocumentPushes(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf)

	p.PushErrorBundle("build:abc", 3, "/proj", &docstore.ErrorBundle{Tag: "build:abc", Message: "boom"})
	p.PushSingleDocument("cimport", "file:///x.zig", &docstore.ErrorBundle{Tag: "cimport:1", Message: "bad header"})
	p.Publish()

	var got batch
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got.Build, 1)
	require.Equal(t, "build:abc", got.Build[0].Tag)
	require.Equal(t, uint64(3), got.Build[0].Version)
	require.Equal(t, "/proj", got.Build[0].Cwd)
	require.Equal(t, "boom", got.Build[0].Message)

	require.Len(t, got.Documents, 1)
	require.Equal(t, "cimport", got.Documents[0].Kind)
	require.Equal(t, "file:///x.zig", got.Documents[0].URI)
	require.Equal(t, "cimport:1", got.Documents[0].Tag)
	require.Equal(t, "bad header", got.Documents[0].Message)
}

func TestPublisher_Publish_ResetsAccumulatorAfterFlush(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf)

	p.PushErrorBundle("build:1", 1, "/a", &docstore.ErrorBundle{Message: "x"})
	p.Publish()
	buf.Reset()

	p.Publish()
	require.Empty(t, buf.String())
}

func TestPublisher_PushErrorBundle_NilBundleIgnored(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf)

	p.PushErrorBundle("build:1", 1, "/a", nil)
	p.PushSingleDocument("kind", "uri", nil)
	p.Publish()

	require.Empty(t, buf.String())
}

func TestPublisher_Publish_OneJSONLinePerCall(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf)

	p.PushErrorBundle("build:1", 1, "/a", &docstore.ErrorBundle{Message: "one"})
	p.Publish()
	p.PushErrorBundle("build:2", 1, "/a", &docstore.ErrorBundle{Message: "two"})
	p.Publish()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
}

func TestNew_NilWriterDefaultsToStdout(t *testing.T) {
	p := New(nil)
	require.NotNil(t, p.w)
}
