package tui

import (
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
)

var (
	orpStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF0000"))

	wordStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF"))

	contextStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Padding(0, 1)

	pausedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFAA00")).
			Bold(true)

	fallbackStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F87"))

	completeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF00")).
			Bold(true)
)

// ORPPosition returns the rune index of the optimal recognition point.
func ORPPosition(word string) int {
	length := utf8.RuneCountInString(word)
	if length <= 1 {
		return 0
	} else if length <= 5 {
		return 1
	}
	return length / 3
}

// formatWord renders word with its recognition point highlighted.
func formatWord(word string) string {
	runes := []rune(word)
	if len(runes) == 0 {
		return ""
	}
	orp := ORPPosition(word)
	return wordStyle.Render(string(runes[:orp])) +
		orpStyle.Render(string(runes[orp])) +
		wordStyle.Render(string(runes[orp+1:]))
}

// anchorORP pads text so the recognition point of word sits mid-screen.
func anchorORP(text, word string, width int) string {
	pad := width/2 - ORPPosition(word)
	if pad < 0 {
		pad = 0
	}
	return strings.Repeat(" ", pad) + text
}

// around returns up to n words either side of position i in words.
func around(words []string, i, n int) (before, after string) {
	lo := i - n
	if lo < 0 {
		lo = 0
	}
	hi := i + 1 + n
	if hi > len(words) {
		hi = len(words)
	}
	if i > len(words) {
		i = len(words)
	}
	before = strings.Join(words[lo:i], " ")
	if i+1 <= hi {
		after = strings.Join(words[i+1:hi], " ")
	}
	return before, after
}
