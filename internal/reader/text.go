package reader

import (
	"strings"

	"github.com/metcalfc/readaloud/internal/document"
)

// TextFormat implements Format for plain text. The whole input is one block.
type TextFormat struct{}

func init() {
	Register(&TextFormat{})
}

func (f *TextFormat) Tag() document.Format { return document.FormatText }
func (f *TextFormat) Name() string         { return "Text" }
func (f *TextFormat) Extensions() []string { return []string{".txt"} }

func (f *TextFormat) Parse(data []byte, opts Options) (*Result, error) {
	text := strings.ToValidUTF8(string(data), "")
	var b blockBuilder
	b.add(document.Tokenize(text))
	return &Result{Blocks: b.blocks}, nil
}
