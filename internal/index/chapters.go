package index

import (
	"sort"

	"github.com/metcalfc/readaloud/internal/document"
)

// Default slack values for chapter navigation.
const (
	DefaultNextSlack = 1
	DefaultPrevSlack = 5
)

// Chapters answers current/next/previous chapter queries.
//
// nextSlack absorbs the boundary word that just moved the cursor into a
// chapter. prevSlack keeps Previous from reselecting the chapter the cursor
// has only just entered.
type Chapters struct {
	list      []document.Chapter
	nextSlack int
	prevSlack int
}

// NewChapters builds a chapter index. The list is copied, sorted by start and
// stripped of duplicate starts, so callers need not pre-normalize it.
func NewChapters(list []document.Chapter, nextSlack, prevSlack int) *Chapters {
	sorted := make([]document.Chapter, len(list))
	copy(sorted, list)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	out := sorted[:0]
	for _, ch := range sorted {
		if len(out) > 0 && out[len(out)-1].Start == ch.Start {
			continue
		}
		out = append(out, ch)
	}
	return &Chapters{list: out, nextSlack: nextSlack, prevSlack: prevSlack}
}

// Len returns the number of chapters.
func (c *Chapters) Len() int { return len(c.list) }

// At returns the k-th chapter.
func (c *Chapters) At(k int) document.Chapter { return c.list[k] }

// List returns the chapters in order. The slice must not be modified.
func (c *Chapters) List() []document.Chapter { return c.list }

// Current returns the position of the chapter with the greatest start <= i,
// or the first chapter when i precedes them all.
func (c *Chapters) Current(i int) (int, bool) {
	if len(c.list) == 0 {
		return 0, false
	}
	k := sort.Search(len(c.list), func(j int) bool { return c.list[j].Start > i }) - 1
	if k < 0 {
		k = 0
	}
	return k, true
}

// Next returns the first chapter starting after i + nextSlack.
func (c *Chapters) Next(i int) (int, bool) {
	limit := i + c.nextSlack
	k := sort.Search(len(c.list), func(j int) bool { return c.list[j].Start > limit })
	if k >= len(c.list) {
		return 0, false
	}
	return k, true
}

// Previous returns the last chapter starting before i - prevSlack.
func (c *Chapters) Previous(i int) (int, bool) {
	limit := i - c.prevSlack
	k := sort.Search(len(c.list), func(j int) bool { return c.list[j].Start >= limit }) - 1
	if k < 0 {
		return 0, false
	}
	return k, true
}
