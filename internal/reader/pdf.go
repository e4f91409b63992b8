package reader

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/ledongthuc/pdf"
	"github.com/metcalfc/readaloud/internal/document"
)

// DefaultChapterEvery is the page stride for paginated chapter anchors.
const DefaultChapterEvery = 10

// PageSource is the host rendering service for paginated documents. Pages are
// numbered from 1.
type PageSource interface {
	PageCount() int
	PageText(page int) (string, error)
}

// PDFFormat implements Format for PDF files. Each page with text becomes one
// block.
type PDFFormat struct{}

func init() {
	Register(&PDFFormat{})
}

func (f *PDFFormat) Tag() document.Format { return document.FormatPDF }
func (f *PDFFormat) Name() string         { return "PDF" }
func (f *PDFFormat) Extensions() []string { return []string{".pdf"} }

func (f *PDFFormat) Parse(data []byte, opts Options) (*Result, error) {
	pages := opts.Pages
	if pages == nil {
		src, err := OpenPDF(data)
		if err != nil {
			return nil, err
		}
		pages = src
	}
	every := opts.ChapterEvery
	if every <= 0 {
		every = DefaultChapterEvery
	}

	var (
		b        blockBuilder
		chapters []document.Chapter
	)
	n := pages.PageCount()
	for page := 1; page <= n; page++ {
		if (page-1)%every == 0 {
			chapters = append(chapters, document.Chapter{
				Title: "Page " + strconv.Itoa(page),
				Start: b.total,
				Page:  page,
			})
			opts.progress("Reading page %d of %d", page, n)
		}
		text, err := pages.PageText(page)
		if err != nil {
			continue
		}
		b.add(document.Tokenize(text))
	}

	return &Result{Blocks: b.blocks, Chapters: chapters}, nil
}

// PDFPages extracts page text with the pure Go PDF reader.
type PDFPages struct {
	r *pdf.Reader
}

// OpenPDF opens an in-memory PDF.
func OpenPDF(data []byte) (*PDFPages, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: open pdf: %v", ErrCorruptArchive, err)
	}
	return &PDFPages{r: r}, nil
}

func (p *PDFPages) PageCount() int { return p.r.NumPage() }

// PageText returns the plain text of a page. The PDF library panics on some
// malformed content streams; those pages come back as errors.
func (p *PDFPages) PageText(n int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("page %d: %v", n, r)
		}
	}()
	page := p.r.Page(n)
	if page.V.IsNull() {
		return "", fmt.Errorf("page %d: missing", n)
	}
	return page.GetPlainText(nil)
}
