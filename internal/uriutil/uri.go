// Package uriutil converts between filesystem paths and the document URIs
// the store keys everything by. Conversion is intentionally narrow: only
// the "file" scheme is supported, matching the store's single-process,
// local-filesystem scope.
//
// Grounded on a familiar absolute/relative path conversion idiom, adapted
// from relative-path display to URI<->path identity.
package uriutil

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

const fileScheme = "file"

// FromPath converts an absolute filesystem path to a "file://" URI. Returns
// an error if path is not absolute — loading a document from a non-absolute
// path is treated as a failure upstream.
func FromPath(path string) (string, error) {
	if !filepath.IsAbs(path) {
		return "", fmt.Errorf("uriutil: path %q is not absolute", path)
	}
	clean := filepath.ToSlash(filepath.Clean(path))
	if !strings.HasPrefix(clean, "/") {
		// Windows drive-letter paths ("C:/foo") need a leading slash in
		// the URI's path component.
		clean = "/" + clean
	}
	u := url.URL{Scheme: fileScheme, Path: clean}
	return u.String(), nil
}

// ToPath converts a "file://" URI back to a native filesystem path.
func ToPath(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("uriutil: parsing uri %q: %w", uri, err)
	}
	if u.Scheme != "" && u.Scheme != fileScheme {
		return "", fmt.Errorf("uriutil: unsupported scheme %q in %q", u.Scheme, uri)
	}

	path := u.Path
	if path == "" {
		path = u.Opaque
	}
	// Strip the extra leading slash produced for Windows drive letters
	// ("/C:/foo" -> "C:/foo"); POSIX paths keep their leading slash.
	if len(path) >= 3 && path[0] == '/' && path[2] == ':' {
		path = path[1:]
	}
	return filepath.FromSlash(path), nil
}

// Join resolves a relative reference against the directory containing
// baseURI and returns the result as a URI. Used by import resolution for
// relative source-file imports.
func Join(baseURI, rel string) (string, error) {
	basePath, err := ToPath(baseURI)
	if err != nil {
		return "", err
	}
	dir := filepath.Dir(basePath)
	joined := filepath.Join(dir, filepath.FromSlash(rel))
	return FromPath(joined)
}

// JoinDir resolves rel against dir (a plain filesystem directory, not a
// URI) and returns the result as a URI. Used for std-lib and builtin
// lookups which are anchored at a configured directory rather than a
// document's own location.
func JoinDir(dir, rel string) (string, error) {
	joined := filepath.Join(dir, filepath.FromSlash(rel))
	return FromPath(joined)
}

// Dir returns the directory portion of a document URI, as a URI.
func Dir(uri string) (string, error) {
	p, err := ToPath(uri)
	if err != nil {
		return "", err
	}
	return FromPath(filepath.Dir(p))
}

// HasSuffix reports whether the path component of uri ends with suffix,
// used for the `/build.zig` and `/builtin.zig` identity tests.
func HasSuffix(uri, suffix string) bool {
	return strings.HasSuffix(uri, suffix)
}

// Contains reports whether the path component of uri contains substr, used
// for the `/std/` standard-library identity test.
func Contains(uri, substr string) bool {
	return strings.Contains(uri, substr)
}

// Ext returns the lowercase file extension (including the leading dot) of
// the URI's path component, used for dialect/grammar dispatch.
func Ext(uri string) string {
	p, err := ToPath(uri)
	if err != nil {
		return ""
	}
	return strings.ToLower(filepath.Ext(p))
}
