// Package document defines the word-addressable document model shared by the
// parser, the indexes and the playback controller.
package document

import (
	"strings"
	"time"
)

// Format tags a document's source format.
type Format string

const (
	FormatEPUB     Format = "epub"
	FormatPDF      Format = "pdf"
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
)

// Block is a contiguous, non-empty run of words. Start is the global word
// offset of the first word.
type Block struct {
	Words []string `json:"words"`
	Start int      `json:"start"`
}

// Count returns the number of words in the block.
func (b Block) Count() int { return len(b.Words) }

// End returns the global offset one past the block's last word.
func (b Block) End() int { return b.Start + len(b.Words) }

// Contains reports whether the global index falls inside the block.
func (b Block) Contains(i int) bool { return i >= b.Start && i < b.End() }

// Chapter is a named position in the document. Page is zero when the source
// format has no pages.
type Chapter struct {
	Title string `json:"title"`
	Start int    `json:"start"`
	Page  int    `json:"page,omitempty"`
}

// Bookmark marks a word index. Bookmarks are never edited, only removed.
type Bookmark struct {
	ID        string    `json:"id"`
	Index     int       `json:"index"`
	Label     string    `json:"label"`
	CreatedAt time.Time `json:"created_at"`
}

// Document is an imported book with its block and chapter tables.
type Document struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Author     string     `json:"author,omitempty"`
	Format     Format     `json:"format"`
	Blocks     []Block    `json:"blocks"`
	Chapters   []Chapter  `json:"chapters"`
	Raw        []byte     `json:"-"`
	Cursor     int        `json:"cursor"`
	Bookmarks  []Bookmark `json:"bookmarks,omitempty"`
	ImportedAt time.Time  `json:"imported_at"`
}

// TotalWords returns the number of addressable words.
func (d *Document) TotalWords() int {
	if len(d.Blocks) == 0 {
		return 0
	}
	return d.Blocks[len(d.Blocks)-1].End()
}

// Summary is the listing form of a stored document.
type Summary struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Author     string    `json:"author,omitempty"`
	Format     Format    `json:"format"`
	Cursor     int       `json:"cursor"`
	TotalWords int       `json:"total_words"`
	ImportedAt time.Time `json:"imported_at"`
}

// Summarize returns the listing form of d.
func (d *Document) Summarize() Summary {
	return Summary{
		ID:         d.ID,
		Title:      d.Title,
		Author:     d.Author,
		Format:     d.Format,
		Cursor:     d.Cursor,
		TotalWords: d.TotalWords(),
		ImportedAt: d.ImportedAt,
	}
}

// Tokenize splits text into whitespace-free words.
func Tokenize(text string) []string {
	return strings.Fields(text)
}

// Snippet returns up to n words of the document starting at index, joined
// with spaces. Snippets never cross into the following block.
func (d *Document) Snippet(index, n int) string {
	for _, b := range d.Blocks {
		if !b.Contains(index) {
			continue
		}
		words := b.Words[index-b.Start:]
		if len(words) > n {
			return strings.Join(words[:n], " ") + "…"
		}
		return strings.Join(words, " ")
	}
	return ""
}
