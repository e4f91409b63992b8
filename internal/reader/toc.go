package reader

import (
	"net/url"
	"path"
	"strings"
)

// TOCEntry is one table-of-contents entry resolved to an archive path.
type TOCEntry struct {
	Title    string
	Target   string // normalized archive path of the content item
	Fragment string // in-document anchor id, if any
	Level    int
}

// normalizeHref resolves href against base (the directory of the document
// that contains it), strips query and fragment and folds case. The result is
// comparable with normalized item paths.
func normalizeHref(base, href string) (target, fragment string) {
	if i := strings.Index(href, "#"); i != -1 {
		fragment = href[i+1:]
		href = href[:i]
	}
	if i := strings.Index(href, "?"); i != -1 {
		href = href[:i]
	}
	if u, err := url.PathUnescape(href); err == nil {
		href = u
	}
	if frag, err := url.PathUnescape(fragment); err == nil {
		fragment = frag
	}
	if href == "" {
		return "", fragment
	}
	p := path.Clean(path.Join(base, href))
	p = strings.TrimPrefix(p, "/")
	return strings.ToLower(p), fragment
}

// itemKey normalizes a manifest href relative to the package directory.
func itemKey(opfDir, href string) string {
	key, _ := normalizeHref(opfDir, href)
	return key
}
