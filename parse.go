// Package techjournal reads FIT, TCX and GPX activity files into a single
// canonical shape: one Activity summary, its Laps and its TrackPoints.
package techjournal

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/lucasjlepore/techjournal/canonical"
	"github.com/lucasjlepore/techjournal/decoder"
)

// Result is the canonical triple produced for one source file.
type Result struct {
	Activity canonical.Activity     `json:"activity"`
	Laps     []canonical.Lap        `json:"laps"`
	Points   []canonical.TrackPoint `json:"points"`
	Warnings []string               `json:"warnings,omitempty"`
}

// Parser dispatches files to decoders by extension. The zero value is not
// usable; call NewParser.
type Parser struct {
	registry *decoder.Registry
}

// NewParser returns a Parser over reg, or over the default registry when reg
// is nil.
func NewParser(reg *decoder.Registry) *Parser {
	if reg == nil {
		reg = decoder.DefaultRegistry()
	}
	return &Parser{registry: reg}
}

// Registry exposes the decoder registry, e.g. to filter directory listings.
func (p *Parser) Registry() *decoder.Registry {
	return p.registry
}

var defaultParser = NewParser(nil)

// ParseFile reads and parses the file at path with the built-in decoders.
func ParseFile(path string) (*Result, error) {
	return defaultParser.ParseFile(path)
}

// ParseBytes parses an in-memory file. name supplies the extension.
func ParseBytes(name string, data []byte) (*Result, error) {
	return defaultParser.ParseBytes(name, "", data)
}

// Parse reads r to the end and parses it. name supplies the extension.
func Parse(name string, r io.Reader) (*Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return defaultParser.ParseBytes(name, "", data)
}

func (p *Parser) ParseFile(path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open activity file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read activity file: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return p.ParseBytes(filepath.Base(path), abs, data)
}

// ParseBytes decodes data and assembles the result. sourcePath is recorded on
// the Activity as-is and may be empty.
func (p *Parser) ParseBytes(name, sourcePath string, data []byte) (*Result, error) {
	decoded, key, err := p.registry.Decode(name, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}

	sum := sha256.Sum256(data)
	res, err := Assemble(Source{
		Path:   sourcePath,
		Name:   filepath.Base(name),
		Format: key,
		SHA256: hex.EncodeToString(sum[:]),
	}, decoded)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	return res, nil
}

// Canonical error kinds, re-exported for callers that only import this
// package.
var (
	ErrUnsupportedFormat = canonical.ErrUnsupportedFormat
	ErrMalformedLap      = canonical.ErrMalformedLap
	ErrMalformedPoint    = canonical.ErrMalformedPoint
	ErrNoLocationData    = canonical.ErrNoLocationData
	ErrDecompression     = canonical.ErrDecompression
)
