package collector

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// plainText strips markup from a feed summary and collapses whitespace.
// Input that is not valid HTML is returned with whitespace collapsed only.
func plainText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.Join(strings.Fields(s), " ")
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.Join(strings.Fields(s), " ")
	}

	doc.Find("script, style").Remove()
	return strings.Join(strings.Fields(doc.Text()), " ")
}
