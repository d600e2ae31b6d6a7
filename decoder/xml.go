package decoder

import (
	"fmt"
	"io"
	"strings"

	"github.com/beevik/etree"

	"github.com/lucasjlepore/techjournal/canonical"
)

// readDocument buffers r fully so read errors from a gzip wrapper surface
// with their wrapping intact, then parses the XML tree.
func readDocument(r io.Reader, format string) (*etree.Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", format, err)
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("parse %s xml: %w", format, err)
	}
	if doc.Root() == nil {
		return nil, fmt.Errorf("parse %s xml: document has no root element", format)
	}
	return doc, nil
}

func elementText(el *etree.Element) string {
	if el == nil {
		return ""
	}
	return strings.TrimSpace(el.Text())
}

// optionalFloat reads a decimal child element. A missing element is absent;
// text that does not parse is absent and recorded as a warning.
func optionalFloat(parent *etree.Element, path string, d *canonical.Decoded) *float64 {
	el := parent.FindElement(path)
	if el == nil {
		return nil
	}
	text := elementText(el)
	if text == "" {
		return nil
	}
	v, err := canonical.ParseFloat(text)
	if err != nil {
		d.Warnf("ignored %s %q: %v", path, text, err)
		return nil
	}
	return canonical.Float(v)
}

func optionalInt(parent *etree.Element, path string, d *canonical.Decoded) *int {
	el := parent.FindElement(path)
	if el == nil {
		return nil
	}
	text := elementText(el)
	if text == "" {
		return nil
	}
	v, err := canonical.ParseInt(text)
	if err != nil {
		d.Warnf("ignored %s %q: %v", path, text, err)
		return nil
	}
	return canonical.Int(v)
}
