package buildrun

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveRelative_JoinsAgainstBuildFileDir(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("path assertions assume a POSIX-style absolute path")
	}
	uri, err := resolveRelative("/home/proj", "src/main.zig")
	require.NoError(t, err)
	require.Equal(t, "file:///home/proj/src/main.zig", uri)
}

func TestResolveRelative_AbsolutePathIgnoresBuildFileDir(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("path assertions assume a POSIX-style absolute path")
	}
	uri, err := resolveRelative("/home/proj", "/opt/zig-lib/std/std.zig")
	require.NoError(t, err)
	require.Equal(t, "file:///opt/zig-lib/std/std.zig", uri)
}

func TestCappedBuffer_WritesUnderLimitPassThrough(t *testing.T) {
	var c cappedBuffer
	c.limit = 10

	n, err := c.Write([]byte("hello"))
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, "hello", c.String())
}

func TestCappedBuffer_DropsBytesPastLimit(t *testing.T) {
	var c cappedBuffer
	c.limit = 5

	n, err := c.Write([]byte("hello world"))
	require.NoError(t, err)
	require.Equal(t, 11, n, "Write must report the full length even when truncating")
	require.Equal(t, "hello", c.String())
}

func TestCappedBuffer_SilentlyDropsOnceAtLimit(t *testing.T) {
	var c cappedBuffer
	c.limit = 5

	_, err := c.Write([]byte("hello"))
	require.NoError(t, err)
	n, err := c.Write([]byte(" world"))
	require.NoError(t, err)
	require.Equal(t, 6, n)
	require.Equal(t, "hello", c.String())
}

func TestCappedBuffer_AccumulatesAcrossMultipleWrites(t *testing.T) {
	var c cappedBuffer
	c.limit = 100

	_, _ = c.Write([]byte("foo"))
	_, _ = c.Write([]byte("bar"))
	require.Equal(t, "foobar", c.String())
	require.Equal(t, []byte("foobar"), c.Bytes())
}
