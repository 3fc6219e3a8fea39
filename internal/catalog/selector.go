package catalog

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// text returns the trimmed text of the first node matching selector within sel.
func text(sel *goquery.Selection, selector string) string {
	found := sel.Find(selector).First()
	if found.Length() == 0 {
		return ""
	}
	return strings.TrimSpace(found.Text())
}

// attr returns the trimmed attribute of the first node matching selector within sel.
func attr(sel *goquery.Selection, selector, name string) string {
	found := sel
	if selector != "" {
		found = sel.Find(selector).First()
	}
	if found.Length() == 0 {
		return ""
	}
	val, _ := found.Attr(name)
	return strings.TrimSpace(val)
}

// joinHost prefixes a site-relative path with host. Absolute URLs pass through.
func joinHost(host, path string) string {
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimRight(host, "/") + path
}
