package reader

import (
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/metcalfc/readaloud/internal/document"
	"github.com/taylorskalyo/goreader/epub"
	"golang.org/x/net/html"
)

// EPUBFormat implements Format for EPUB files.
type EPUBFormat struct{}

func init() {
	Register(&EPUBFormat{})
}

func (f *EPUBFormat) Tag() document.Format { return document.FormatEPUB }
func (f *EPUBFormat) Name() string         { return "EPUB" }
func (f *EPUBFormat) Extensions() []string { return []string{".epub"} }

// Parse walks the spine in reading order. Each non-empty paragraph of each
// content item becomes a block; TOC entries become chapters at the offset of
// the item or of the anchor they point at.
func (f *EPUBFormat) Parse(data []byte, opts Options) (*Result, error) {
	rc, err := epub.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: open epub: %v", ErrCorruptArchive, err)
	}
	if len(rc.Rootfiles) == 0 {
		return nil, fmt.Errorf("%w: no rootfiles found in epub", ErrCorruptArchive)
	}
	book := rc.Rootfiles[0]

	arc, err := openArchive(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptArchive, err)
	}
	toc := readTOC(arc, book.FullPath)
	byTarget := make(map[string][]TOCEntry)
	for _, e := range toc {
		byTarget[e.Target] = append(byTarget[e.Target], e)
	}
	opfDir := path.Dir(book.FullPath)

	res := &Result{
		Title:  strings.TrimSpace(book.Metadata.Title),
		Author: strings.TrimSpace(book.Metadata.Creator),
	}
	var b blockBuilder
	total := len(book.Spine.Itemrefs)

	for i, ref := range book.Spine.Itemrefs {
		opts.progress("Reading section %d of %d", i+1, total)
		if ref.Item == nil {
			continue
		}
		content, err := readItem(ref.Item)
		if err != nil {
			continue
		}
		sec, err := parseSection(content)
		if err != nil {
			continue
		}

		itemStart := b.total
		for _, p := range sec.paragraphs {
			b.add(p)
		}

		entries := byTarget[itemKey(opfDir, ref.Item.HREF)]
		for _, e := range entries {
			start := itemStart
			if e.Fragment != "" {
				if off, ok := sec.anchors[e.Fragment]; ok {
					start += off
				}
			}
			res.Chapters = append(res.Chapters, document.Chapter{Title: e.Title, Start: start})
		}

		if len(toc) == 0 && sec.words > 0 {
			title := sec.heading
			if title == "" {
				title = fmt.Sprintf("Section %d", i+1)
			}
			res.Chapters = append(res.Chapters, document.Chapter{Title: title, Start: itemStart})
		}
	}

	res.Blocks = b.blocks
	return res, nil
}

func readItem(item *epub.Item) ([]byte, error) {
	r, err := item.Open()
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// Subtrees that never contain narratable text.
var skipElements = map[string]bool{
	"script":   true,
	"style":    true,
	"head":     true,
	"svg":      true,
	"noscript": true,
}

// Elements whose close ends a paragraph.
var blockElements = map[string]bool{
	"p":          true,
	"div":        true,
	"h1":         true,
	"h2":         true,
	"h3":         true,
	"h4":         true,
	"h5":         true,
	"h6":         true,
	"li":         true,
	"br":         true,
	"tr":         true,
	"blockquote": true,
}

var headingElements = map[string]bool{
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

// section is one parsed content item.
type section struct {
	paragraphs [][]string
	anchors    map[string]int // element id -> words emitted before it
	words      int
	heading    string
}

func parseSection(data []byte) (*section, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	sec := &section{anchors: make(map[string]int)}
	var para []string
	flush := func() {
		if len(para) > 0 {
			sec.paragraphs = append(sec.paragraphs, para)
			para = nil
		}
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			if skipElements[n.Data] {
				return
			}
			for _, a := range n.Attr {
				if a.Key == "id" || (a.Key == "name" && n.Data == "a") {
					if _, seen := sec.anchors[a.Val]; !seen {
						sec.anchors[a.Val] = sec.words
					}
				}
			}
		case html.TextNode:
			words := document.Tokenize(n.Data)
			para = append(para, words...)
			sec.words += len(words)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && blockElements[n.Data] {
			if sec.heading == "" && headingElements[n.Data] {
				sec.heading = strings.Join(strings.Fields(textContent(n)), " ")
			}
			flush()
		}
	}
	walk(doc)
	flush()
	return sec, nil
}
