// Package decoder turns raw activity files into canonical laps and points.
package decoder

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/lucasjlepore/techjournal/canonical"
)

// Decoder reads one activity file format.
type Decoder interface {
	Format() string
	Decode(r io.Reader) (*canonical.Decoded, error)
}

type entry struct {
	decoder Decoder
	gzipped bool
}

// Registry maps compound file extensions such as ".tcx.gz" to decoders. It is
// safe for concurrent use once populated.
type Registry struct {
	entries map[string]entry
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// DefaultRegistry returns a registry with every built-in format.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(".fit", FIT{}, false)
	r.Register(".fit.gz", FIT{}, true)
	r.Register(".tcx", TCX{}, false)
	r.Register(".tcx.gz", TCX{}, true)
	r.Register(".gpx", GPX{}, false)
	r.Register(".gpx.gz", GPX{}, true)
	return r
}

// Register binds a normalized extension key to a decoder. When gzipped is
// set the input is decompressed before it reaches the decoder.
func (r *Registry) Register(key string, d Decoder, gzipped bool) {
	r.entries[strings.ToLower(key)] = entry{decoder: d, gzipped: gzipped}
}

// Keys lists registered extension keys in sorted order.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.entries))
	for k := range r.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Supports reports whether a file name has a registered extension.
func (r *Registry) Supports(name string) bool {
	_, ok := r.entries[FormatKey(name)]
	return ok
}

// Decode picks the decoder for name and runs it over r.
func (r *Registry) Decode(name string, in io.Reader) (*canonical.Decoded, string, error) {
	key := FormatKey(name)
	e, ok := r.entries[key]
	if !ok {
		return nil, key, fmt.Errorf("%w: %q", canonical.ErrUnsupportedFormat, key)
	}

	if e.gzipped {
		zr, err := gzip.NewReader(in)
		if err != nil {
			return nil, key, fmt.Errorf("%w: open gzip: %v", canonical.ErrDecompression, err)
		}
		defer zr.Close()
		in = &gzipErrReader{r: zr}
	}

	decoded, err := e.decoder.Decode(in)
	if err != nil {
		return nil, key, fmt.Errorf("decode %s: %w", e.decoder.Format(), err)
	}
	canonical.Normalize(decoded)
	return decoded, key, nil
}

// FormatKey returns the lower-case compound extension of a file name:
// ".fit", ".fit.gz", ".tcx.gz" and so on. Only a trailing ".gz" is treated as
// a wrapper; other dots in the base name are ignored.
func FormatKey(name string) string {
	base := strings.ToLower(filepath.Base(name))
	suffix := ""
	if strings.HasSuffix(base, ".gz") {
		base = strings.TrimSuffix(base, ".gz")
		suffix = ".gz"
	}
	ext := filepath.Ext(base)
	if ext == "" || ext == base {
		return suffix
	}
	return ext + suffix
}

// gzipErrReader tags read failures from the gzip stream so callers can tell
// corrupt compression apart from malformed content.
type gzipErrReader struct {
	r io.Reader
}

func (g *gzipErrReader) Read(p []byte) (int, error) {
	n, err := g.r.Read(p)
	if err != nil && err != io.EOF {
		return n, fmt.Errorf("%w: %v", canonical.ErrDecompression, err)
	}
	return n, err
}
