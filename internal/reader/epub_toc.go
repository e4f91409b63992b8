package reader

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strings"

	"golang.org/x/net/html"
)

// NCX XML structures for parsing toc.ncx
type ncx struct {
	NavMap navMap `xml:"navMap"`
}

type navMap struct {
	NavPoints []navPoint `xml:"navPoint"`
}

type navPoint struct {
	ID        string     `xml:"id,attr"`
	PlayOrder int        `xml:"playOrder,attr"`
	Label     navLabel   `xml:"navLabel"`
	Content   navContent `xml:"content"`
	Children  []navPoint `xml:"navPoint"`
}

type navLabel struct {
	Text string `xml:"text"`
}

type navContent struct {
	Src string `xml:"src,attr"`
}

// opfManifest is the slice of the package document the epub library does not
// expose: item properties and the spine's NCX reference.
type opfManifest struct {
	Items []struct {
		ID         string `xml:"id,attr"`
		Href       string `xml:"href,attr"`
		MediaType  string `xml:"media-type,attr"`
		Properties string `xml:"properties,attr"`
	} `xml:"manifest>item"`
	Spine struct {
		TOC string `xml:"toc,attr"`
	} `xml:"spine"`
}

// archive is a case-insensitive view of the EPUB zip.
type archive struct {
	files map[string]*zip.File
}

func openArchive(data []byte) (*archive, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	a := &archive{files: make(map[string]*zip.File, len(zr.File))}
	for _, f := range zr.File {
		a.files[strings.ToLower(f.Name)] = f
	}
	return a, nil
}

func (a *archive) read(name string) ([]byte, error) {
	f, ok := a.files[strings.ToLower(strings.TrimPrefix(name, "/"))]
	if !ok {
		return nil, fmt.Errorf("%s not found in archive", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// readTOC returns the flattened table of contents, preferring the EPUB 3
// navigation document and falling back to the NCX. A missing or unreadable
// TOC yields no entries.
func readTOC(a *archive, opfPath string) []TOCEntry {
	data, err := a.read(opfPath)
	if err != nil {
		return nil
	}
	var pkg opfManifest
	if err := xml.Unmarshal(data, &pkg); err != nil {
		return nil
	}
	opfDir := path.Dir(opfPath)

	var navHref, ncxHref string
	for _, item := range pkg.Items {
		if navHref == "" && hasProperty(item.Properties, "nav") {
			navHref = item.Href
		}
		if ncxHref == "" && (item.MediaType == "application/x-dtbncx+xml" || (pkg.Spine.TOC != "" && item.ID == pkg.Spine.TOC)) {
			ncxHref = item.Href
		}
	}

	if navHref != "" {
		navPath, _ := normalizeHref(opfDir, navHref)
		if entries := readNavDocument(a, navPath); len(entries) > 0 {
			return entries
		}
	}
	if ncxHref != "" {
		ncxPath, _ := normalizeHref(opfDir, ncxHref)
		return readNCX(a, ncxPath)
	}
	return nil
}

func hasProperty(props, want string) bool {
	for _, p := range strings.Fields(props) {
		if p == want {
			return true
		}
	}
	return false
}

func readNCX(a *archive, ncxPath string) []TOCEntry {
	data, err := a.read(ncxPath)
	if err != nil {
		return nil
	}
	var toc ncx
	if err := xml.Unmarshal(data, &toc); err != nil {
		return nil
	}
	return flattenNavPoints(toc.NavMap.NavPoints, path.Dir(ncxPath), 0)
}

func flattenNavPoints(points []navPoint, base string, level int) []TOCEntry {
	var entries []TOCEntry

	for _, np := range points {
		target, fragment := normalizeHref(base, np.Content.Src)
		if target != "" {
			entries = append(entries, TOCEntry{
				Title:    strings.TrimSpace(np.Label.Text),
				Target:   target,
				Fragment: fragment,
				Level:    level,
			})
		}
		if len(np.Children) > 0 {
			entries = append(entries, flattenNavPoints(np.Children, base, level+1)...)
		}
	}

	return entries
}

func readNavDocument(a *archive, navPath string) []TOCEntry {
	data, err := a.read(navPath)
	if err != nil {
		return nil
	}
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil
	}

	var navs []*html.Node
	var find func(*html.Node)
	find = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "nav" {
			navs = append(navs, n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			find(c)
		}
	}
	find(doc)
	if len(navs) == 0 {
		return nil
	}

	toc := navs[0]
	for _, n := range navs {
		if isTOCNav(n) {
			toc = n
			break
		}
	}

	base := path.Dir(navPath)
	var entries []TOCEntry
	var walk func(n *html.Node, level int)
	walk = func(n *html.Node, level int) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "ol":
				level++
			case "a":
				if href := attr(n, "href"); href != "" {
					target, fragment := normalizeHref(base, href)
					if target != "" {
						entries = append(entries, TOCEntry{
							Title:    strings.Join(strings.Fields(textContent(n)), " "),
							Target:   target,
							Fragment: fragment,
							Level:    level - 1,
						})
					}
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, level)
		}
	}
	walk(toc, 0)
	return entries
}

func isTOCNav(n *html.Node) bool {
	for _, a := range n.Attr {
		if (a.Key == "epub:type" || (a.Namespace == "epub" && a.Key == "type")) && hasProperty(a.Val, "toc") {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
