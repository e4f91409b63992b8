package reader

import (
	"bufio"
	"bytes"
	"regexp"
	"strings"

	"github.com/metcalfc/readaloud/internal/document"
)

// MarkdownFormat implements Format for Markdown files.
type MarkdownFormat struct{}

func init() {
	Register(&MarkdownFormat{})
}

func (f *MarkdownFormat) Tag() document.Format { return document.FormatMarkdown }
func (f *MarkdownFormat) Name() string         { return "Markdown" }
func (f *MarkdownFormat) Extensions() []string { return []string{".md", ".markdown"} }

// headerRegex matches markdown headers (# to ######)
var headerRegex = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)

// Parse emits one block per blank-line separated paragraph. A header line is
// a block of its own and opens a chapter.
func (f *MarkdownFormat) Parse(data []byte, opts Options) (*Result, error) {
	var (
		b        blockBuilder
		chapters []document.Chapter
		para     []string
	)
	flush := func() {
		b.add(para)
		para = nil
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.ToValidUTF8(scanner.Text(), "")

		if match := headerRegex.FindStringSubmatch(line); match != nil {
			flush()
			title := strings.TrimSpace(strings.TrimRight(match[2], "#"))
			if title == "" {
				continue
			}
			chapters = append(chapters, document.Chapter{Title: title, Start: b.total})
			b.add(document.Tokenize(title))
			continue
		}

		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		para = append(para, document.Tokenize(line)...)
	}
	flush()
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return &Result{Blocks: b.blocks, Chapters: chapters}, nil
}
