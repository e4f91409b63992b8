package reader

import (
	"sort"

	"github.com/metcalfc/readaloud/internal/document"
)

// blockBuilder appends blocks while keeping offsets contiguous.
type blockBuilder struct {
	blocks []document.Block
	total  int
}

// add appends words as one block. Empty input is ignored.
func (b *blockBuilder) add(words []string) {
	if len(words) == 0 {
		return
	}
	b.blocks = append(b.blocks, document.Block{Words: words, Start: b.total})
	b.total += len(words)
}

// finish checks a parse result has at least one word and normalizes its
// chapter table.
func finish(res *Result) (*Result, error) {
	if len(res.Blocks) == 0 {
		return nil, ErrEmptyDocument
	}
	total := res.Blocks[len(res.Blocks)-1].End()
	if total == 0 {
		return nil, ErrEmptyDocument
	}
	res.Chapters = normalizeChapters(res.Chapters, total)
	return res, nil
}

func normalizeChapters(chapters []document.Chapter, total int) []document.Chapter {
	if len(chapters) == 0 {
		return nil
	}
	out := make([]document.Chapter, len(chapters))
	copy(out, chapters)
	for i := range out {
		if out[i].Start < 0 {
			out[i].Start = 0
		}
		if out[i].Start >= total {
			out[i].Start = total - 1
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })

	deduped := out[:1]
	for _, ch := range out[1:] {
		if ch.Start == deduped[len(deduped)-1].Start {
			continue
		}
		deduped = append(deduped, ch)
	}
	return deduped
}
