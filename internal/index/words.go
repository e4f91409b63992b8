// Package index provides binary-searchable lookups over a document's block
// and chapter tables.
package index

import (
	"sort"

	"github.com/metcalfc/readaloud/internal/document"
)

// Words maps global word offsets to the block that contains them.
type Words struct {
	blocks []document.Block
}

// NewWords builds a word index. Blocks must already be contiguous.
func NewWords(blocks []document.Block) *Words {
	return &Words{blocks: blocks}
}

// Find returns the position of the block containing i. Offsets past the end
// clamp to the last block and negative offsets to the first. ok is false only
// when there are no blocks.
func (w *Words) Find(i int) (k int, ok bool) {
	n := len(w.blocks)
	if n == 0 {
		return 0, false
	}
	if i >= w.Total() {
		return n - 1, true
	}
	k = sort.Search(n, func(j int) bool { return w.blocks[j].Start > i }) - 1
	if k < 0 {
		k = 0
	}
	return k, true
}

// Block returns the k-th block.
func (w *Words) Block(k int) document.Block {
	return w.blocks[k]
}

// Len returns the number of blocks.
func (w *Words) Len() int { return len(w.blocks) }

// Total returns the number of addressable words.
func (w *Words) Total() int {
	if len(w.blocks) == 0 {
		return 0
	}
	return w.blocks[len(w.blocks)-1].End()
}

// Clamp limits i to [0, Total()-1]. An empty index clamps to 0.
func (w *Words) Clamp(i int) int {
	if last := w.Total() - 1; i > last {
		i = last
	}
	if i < 0 {
		i = 0
	}
	return i
}

// Unit returns the narration unit starting at i: the suffix of i's block
// from the in-block offset of i. offset is the in-block offset.
func (w *Words) Unit(i int) (k, offset int, words []string, ok bool) {
	k, ok = w.Find(i)
	if !ok {
		return 0, 0, nil, false
	}
	b := w.blocks[k]
	offset = i - b.Start
	if offset < 0 {
		offset = 0
	}
	if offset >= b.Count() {
		offset = b.Count() - 1
	}
	return k, offset, b.Words[offset:], true
}
