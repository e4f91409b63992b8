package reader

import (
	"archive/zip"
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/metcalfc/readaloud/internal/document"
)

// buildEPUB assembles a minimal EPUB archive from name -> content pairs.
func buildEPUB(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	w, err := zw.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
	if err != nil {
		t.Fatalf("create mimetype: %v", err)
	}
	w.Write([]byte("application/epub+zip"))

	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		w.Write([]byte(content))
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

const containerXML = `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

const contentOPF = `<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="2.0" unique-identifier="id">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>A Study in Words</dc:title>
    <dc:creator>Jane Author</dc:creator>
  </metadata>
  <manifest>
    <item id="ncx" href="toc.ncx" media-type="application/x-dtbncx+xml"/>
    <item id="ch1" href="Text/Chapter1.xhtml" media-type="application/xhtml+xml"/>
    <item id="ch2" href="Text/chapter2.xhtml" media-type="application/xhtml+xml"/>
  </manifest>
  <spine toc="ncx">
    <itemref idref="ch1"/>
    <itemref idref="ch2"/>
  </spine>
</package>`

const tocNCX = `<?xml version="1.0" encoding="UTF-8"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">
  <navMap>
    <navPoint id="n1" playOrder="1">
      <navLabel><text>Chapter One</text></navLabel>
      <content src="Text/chapter1.xhtml"/>
      <navPoint id="n2" playOrder="2">
        <navLabel><text>The Middle</text></navLabel>
        <content src="Text/./chapter1.xhtml?x=1#middle"/>
      </navPoint>
    </navPoint>
    <navPoint id="n3" playOrder="3">
      <navLabel><text>Chapter Two</text></navLabel>
      <content src="Text/chapter2.xhtml"/>
    </navPoint>
  </navMap>
</ncx>`

const chapter1 = `<html><head><title>Ignored Title</title><style>p { color: red; }</style></head>
<body>
  <h1>Chapter One</h1>
  <p>This is the <b>first</b> paragraph.</p>
  <script>var notNarrated = 1;</script>
  <p id="middle">Second paragraph here.</p>
  <div>Some <span>nested</span> text.<br/>After break.</div>
</body></html>`

const chapter2 = `<html><body>
  <h2>Chapter Two</h2>
  <ul><li>One item</li><li>Two item</li></ul>
  <svg><text>vector text</text></svg>
</body></html>`

func testEPUB(t *testing.T) []byte {
	return buildEPUB(t, map[string]string{
		"META-INF/container.xml":    containerXML,
		"OEBPS/content.opf":         contentOPF,
		"OEBPS/toc.ncx":             tocNCX,
		"OEBPS/Text/Chapter1.xhtml": chapter1,
		"OEBPS/Text/chapter2.xhtml": chapter2,
	})
}

func TestParseSection(t *testing.T) {
	sec, err := parseSection([]byte(chapter1))
	if err != nil {
		t.Fatalf("parseSection: %v", err)
	}

	expected := [][]string{
		{"Chapter", "One"},
		{"This", "is", "the", "first", "paragraph."},
		{"Second", "paragraph", "here."},
		{"Some", "nested", "text."},
		{"After", "break."},
	}
	if len(sec.paragraphs) != len(expected) {
		t.Fatalf("got %d paragraphs %v, want %d", len(sec.paragraphs), sec.paragraphs, len(expected))
	}
	for i, p := range sec.paragraphs {
		if strings.Join(p, " ") != strings.Join(expected[i], " ") {
			t.Errorf("paragraph %d = %q, want %q", i, p, expected[i])
		}
	}
	if off := sec.anchors["middle"]; off != 7 {
		t.Errorf("anchor offset = %d, want 7", off)
	}
	if sec.heading != "Chapter One" {
		t.Errorf("heading = %q", sec.heading)
	}
}

func TestEPUBParse(t *testing.T) {
	var progress []string
	res, err := Parse(testEPUB(t), document.FormatEPUB, Options{
		OnProgress: func(s string) { progress = append(progress, s) },
	})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if res.Title != "A Study in Words" || res.Author != "Jane Author" {
		t.Errorf("metadata = %q / %q", res.Title, res.Author)
	}
	if len(progress) == 0 {
		t.Error("expected progress callbacks")
	}

	// chapter1: 5 paragraphs (2+5+3+3+2 = 15 words); chapter2: 3 paragraphs (2+2+2).
	if len(res.Blocks) != 8 {
		t.Fatalf("got %d blocks, want 8", len(res.Blocks))
	}
	for k := 1; k < len(res.Blocks); k++ {
		prev := res.Blocks[k-1]
		if res.Blocks[k].Start != prev.Start+prev.Count() {
			t.Errorf("gap between block %d and %d", k-1, k)
		}
	}
	if res.Blocks[5].Start != 15 {
		t.Errorf("second item starts at %d, want 15", res.Blocks[5].Start)
	}

	want := []document.Chapter{
		{Title: "Chapter One", Start: 0},
		{Title: "The Middle", Start: 7},
		{Title: "Chapter Two", Start: 15},
	}
	if len(res.Chapters) != len(want) {
		t.Fatalf("chapters = %+v", res.Chapters)
	}
	for i := range want {
		if res.Chapters[i] != want[i] {
			t.Errorf("chapter %d = %+v, want %+v", i, res.Chapters[i], want[i])
		}
	}
}

func TestEPUBNavDocument(t *testing.T) {
	opf := `<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/"><dc:title>Nav Book</dc:title></metadata>
  <manifest>
    <item id="nav" href="nav/nav.xhtml" media-type="application/xhtml+xml" properties="nav"/>
    <item id="c1" href="c1.xhtml" media-type="application/xhtml+xml"/>
  </manifest>
  <spine><itemref idref="c1"/></spine>
</package>`
	nav := `<html xmlns:epub="http://www.idpf.org/2007/ops"><body>
<nav epub:type="landmarks"><ol><li><a href="../c1.xhtml">Start</a></li></ol></nav>
<nav epub:type="toc"><ol>
  <li><a href="../c1.xhtml">Opening</a>
    <ol><li><a href="../C1.xhtml#later">Later On</a></li></ol>
  </li>
</ol></nav></body></html>`
	c1 := `<html><body><p>one two three</p><p><a name="later"></a>four five</p></body></html>`

	data := buildEPUB(t, map[string]string{
		"META-INF/container.xml": containerXML,
		"OEBPS/content.opf":      opf,
		"OEBPS/nav/nav.xhtml":    nav,
		"OEBPS/c1.xhtml":         c1,
	})

	res, err := Parse(data, document.FormatEPUB, Options{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(res.Chapters) != 2 {
		t.Fatalf("chapters = %+v", res.Chapters)
	}
	if res.Chapters[0].Title != "Opening" || res.Chapters[1].Title != "Later On" || res.Chapters[1].Start != 3 {
		t.Errorf("chapters = %+v", res.Chapters)
	}
}

func TestEPUBWithoutTOC(t *testing.T) {
	opf := `<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" version="2.0">
  <metadata/>
  <manifest>
    <item id="a" href="a.xhtml" media-type="application/xhtml+xml"/>
    <item id="b" href="b.xhtml" media-type="application/xhtml+xml"/>
  </manifest>
  <spine><itemref idref="a"/><itemref idref="b"/></spine>
</package>`
	data := buildEPUB(t, map[string]string{
		"META-INF/container.xml": containerXML,
		"OEBPS/content.opf":      opf,
		"OEBPS/a.xhtml":          `<html><body><h1>Opening</h1><p>alpha beta</p></body></html>`,
		"OEBPS/b.xhtml":          `<html><body><p>gamma delta</p></body></html>`,
	})

	res, err := Parse(data, document.FormatEPUB, Options{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []document.Chapter{{Title: "Opening", Start: 0}, {Title: "Section 2", Start: 3}}
	if len(res.Chapters) != 2 || res.Chapters[0] != want[0] || res.Chapters[1] != want[1] {
		t.Errorf("chapters = %+v, want %+v", res.Chapters, want)
	}
}

func TestEPUBCorrupt(t *testing.T) {
	_, err := Parse([]byte("definitely not a zip"), document.FormatEPUB, Options{})
	if !errors.Is(err, ErrCorruptArchive) {
		t.Fatalf("err = %v, want ErrCorruptArchive", err)
	}
}
