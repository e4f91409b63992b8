package reader

import (
	"errors"
	"fmt"
	"testing"

	"github.com/metcalfc/readaloud/internal/document"
)

type fakePages struct {
	pages []string
	fail  map[int]bool
}

func (f *fakePages) PageCount() int { return len(f.pages) }

func (f *fakePages) PageText(page int) (string, error) {
	if f.fail[page] {
		return "", fmt.Errorf("page %d: render failed", page)
	}
	return f.pages[page-1], nil
}

func TestPDFParsePages(t *testing.T) {
	src := &fakePages{fail: map[int]bool{4: true}}
	for i := 1; i <= 12; i++ {
		text := fmt.Sprintf("page %d words", i)
		if i == 3 {
			text = "   "
		}
		src.pages = append(src.pages, text)
	}

	res, err := Parse(nil, document.FormatPDF, Options{Pages: src})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	// Pages 3 (blank) and 4 (failed) contribute no block.
	if len(res.Blocks) != 10 {
		t.Fatalf("got %d blocks, want 10", len(res.Blocks))
	}
	if res.Blocks[2].Words[1] != "5" {
		t.Errorf("third block = %v, want page 5", res.Blocks[2].Words)
	}

	if len(res.Chapters) != 2 {
		t.Fatalf("got %d chapters, want 2", len(res.Chapters))
	}
	if res.Chapters[0] != (document.Chapter{Title: "Page 1", Start: 0, Page: 1}) {
		t.Errorf("chapter 0 = %+v", res.Chapters[0])
	}
	// Eight pages with three words each precede page 11.
	if res.Chapters[1] != (document.Chapter{Title: "Page 11", Start: 24, Page: 11}) {
		t.Errorf("chapter 1 = %+v", res.Chapters[1])
	}
}

func TestPDFChapterStride(t *testing.T) {
	src := &fakePages{pages: []string{"a", "b", "c", "d", "e"}}
	res, err := Parse(nil, document.FormatPDF, Options{Pages: src, ChapterEvery: 2})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	var pages []int
	for _, ch := range res.Chapters {
		pages = append(pages, ch.Page)
	}
	if fmt.Sprint(pages) != "[1 3 5]" {
		t.Errorf("chapter pages = %v, want [1 3 5]", pages)
	}
}

func TestPDFNoText(t *testing.T) {
	src := &fakePages{pages: []string{"", " "}}
	_, err := Parse(nil, document.FormatPDF, Options{Pages: src})
	if !errors.Is(err, ErrEmptyDocument) {
		t.Fatalf("err = %v, want ErrEmptyDocument", err)
	}
}

func TestPDFCorrupt(t *testing.T) {
	_, err := Parse([]byte("not a pdf"), document.FormatPDF, Options{})
	if !errors.Is(err, ErrCorruptArchive) {
		t.Fatalf("err = %v, want ErrCorruptArchive", err)
	}
}
