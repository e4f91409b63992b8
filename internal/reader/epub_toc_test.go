package reader

import (
	"testing"
)

func TestNormalizeHref(t *testing.T) {
	tests := []struct {
		base, href       string
		target, fragment string
	}{
		{"OEBPS", "Text/Ch1.xhtml", "oebps/text/ch1.xhtml", ""},
		{"OEBPS", "Text/ch1.xhtml#sec-2", "oebps/text/ch1.xhtml", "sec-2"},
		{"OEBPS/nav", "../Text/ch1.xhtml?v=3#top", "oebps/text/ch1.xhtml", "top"},
		{"OEBPS", "./Text/My%20Chapter.xhtml", "oebps/text/my chapter.xhtml", ""},
		{".", "chapter.html", "chapter.html", ""},
		{"OEBPS", "#only-fragment", "", "only-fragment"},
	}

	for _, tt := range tests {
		target, fragment := normalizeHref(tt.base, tt.href)
		if target != tt.target || fragment != tt.fragment {
			t.Errorf("normalizeHref(%q, %q) = (%q, %q), want (%q, %q)",
				tt.base, tt.href, target, fragment, tt.target, tt.fragment)
		}
	}
}

func TestFlattenNavPoints(t *testing.T) {
	points := []navPoint{
		{
			Label:   navLabel{Text: " Part One "},
			Content: navContent{Src: "part1.xhtml"},
			Children: []navPoint{
				{Label: navLabel{Text: "Chapter 1"}, Content: navContent{Src: "part1.xhtml#c1"}},
				{Label: navLabel{Text: "Chapter 2"}, Content: navContent{Src: "c2.xhtml"}},
			},
		},
		{Label: navLabel{Text: "Broken"}, Content: navContent{Src: ""}},
		{Label: navLabel{Text: "Epilogue"}, Content: navContent{Src: "end.xhtml"}},
	}

	entries := flattenNavPoints(points, "oebps", 0)

	expected := []TOCEntry{
		{Title: "Part One", Target: "oebps/part1.xhtml", Level: 0},
		{Title: "Chapter 1", Target: "oebps/part1.xhtml", Fragment: "c1", Level: 1},
		{Title: "Chapter 2", Target: "oebps/c2.xhtml", Level: 1},
		{Title: "Epilogue", Target: "oebps/end.xhtml", Level: 0},
	}
	if len(entries) != len(expected) {
		t.Fatalf("got %d entries %+v, want %d", len(entries), entries, len(expected))
	}
	for i := range expected {
		if entries[i] != expected[i] {
			t.Errorf("entry %d = %+v, want %+v", i, entries[i], expected[i])
		}
	}
}

func TestReadTOCPrefersNav(t *testing.T) {
	opf := `<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0">
  <manifest>
    <item id="ncx" href="toc.ncx" media-type="application/x-dtbncx+xml"/>
    <item id="nav" href="nav.xhtml" media-type="application/xhtml+xml" properties="scripted nav"/>
  </manifest>
  <spine toc="ncx"/>
</package>`
	nav := `<html><body><nav epub:type="toc"><ol><li><a href="a.xhtml">From Nav</a></li></ol></nav></body></html>`

	a, err := openArchive(buildEPUB(t, map[string]string{
		"OEBPS/content.opf": opf,
		"OEBPS/toc.ncx":     tocNCX,
		"OEBPS/nav.xhtml":   nav,
	}))
	if err != nil {
		t.Fatalf("openArchive: %v", err)
	}

	entries := readTOC(a, "OEBPS/content.opf")
	if len(entries) != 1 || entries[0].Title != "From Nav" || entries[0].Target != "oebps/a.xhtml" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestReadTOCFallsBackToNCX(t *testing.T) {
	a, err := openArchive(buildEPUB(t, map[string]string{
		"OEBPS/content.opf": contentOPF,
		"OEBPS/toc.ncx":     tocNCX,
	}))
	if err != nil {
		t.Fatalf("openArchive: %v", err)
	}

	entries := readTOC(a, "OEBPS/content.opf")
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	if entries[1].Level != 1 || entries[1].Fragment != "middle" {
		t.Errorf("nested entry = %+v", entries[1])
	}
}

func TestReadTOCMissing(t *testing.T) {
	a, err := openArchive(buildEPUB(t, map[string]string{}))
	if err != nil {
		t.Fatalf("openArchive: %v", err)
	}
	if entries := readTOC(a, "OEBPS/content.opf"); entries != nil {
		t.Errorf("entries = %+v, want nil", entries)
	}
}
