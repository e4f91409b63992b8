package reader

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/metcalfc/readaloud/internal/document"
)

// Hard import failures. Anything else that goes wrong inside a single content
// item is skipped, not returned.
var (
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrCorruptArchive    = errors.New("corrupt archive")
	ErrEmptyDocument     = errors.New("document has no readable words")
)

// ProgressFunc receives advisory status text while a document is parsed.
type ProgressFunc func(status string)

// Options tune a single parse.
type Options struct {
	OnProgress ProgressFunc

	// Pages supplies page text for paginated formats. When nil the PDF
	// format extracts text itself.
	Pages PageSource

	// ChapterEvery is the page stride for paginated chapter anchors.
	ChapterEvery int
}

func (o Options) progress(format string, args ...any) {
	if o.OnProgress != nil {
		o.OnProgress(fmt.Sprintf(format, args...))
	}
}

// Result is the output of a successful parse.
type Result struct {
	Title    string
	Author   string
	Blocks   []document.Block
	Chapters []document.Chapter
}

// Format defines a file format parser.
type Format interface {
	Tag() document.Format
	Name() string
	Extensions() []string
	Parse(data []byte, opts Options) (*Result, error)
}

var registry []Format

// Register adds a format parser to the registry.
func Register(f Format) {
	registry = append(registry, f)
}

// Lookup returns the registered format for a tag.
func Lookup(tag document.Format) (Format, bool) {
	for _, f := range registry {
		if f.Tag() == tag {
			return f, true
		}
	}
	return nil, false
}

// Detect picks a format tag from a file name, falling back to plain text.
func Detect(filename string) document.Format {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, f := range registry {
		for _, e := range f.Extensions() {
			if ext == e {
				return f.Tag()
			}
		}
	}
	return document.FormatText
}

// Parse converts raw bytes of the tagged format into blocks and chapters.
func Parse(data []byte, tag document.Format, opts Options) (*Result, error) {
	f, ok := Lookup(tag)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, tag)
	}
	opts.progress("Reading %s", f.Name())
	res, err := f.Parse(data, opts)
	if err != nil {
		return nil, err
	}
	return finish(res)
}

// SupportedFormats returns registered format names with their extensions.
func SupportedFormats() []string {
	var out []string
	for _, f := range registry {
		out = append(out, f.Name()+" ("+strings.Join(f.Extensions(), ", ")+")")
	}
	return out
}

// UserMessage renders an import error for display.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, ErrUnsupportedFormat):
		return "This file type isn't supported."
	case errors.Is(err, ErrCorruptArchive):
		return "The file looks damaged and couldn't be opened."
	case errors.Is(err, ErrEmptyDocument):
		return "No readable text was found in this file."
	default:
		return fmt.Sprintf("Import failed: %v", err)
	}
}
