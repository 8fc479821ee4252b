package challenge

import (
	"strings"

	"github.com/antchfx/htmlquery"
)

// TokenXPath locates the Turnstile response input
const TokenXPath = `//input[@name='cf-turnstile-response']`

// HarvestToken returns the Turnstile response value embedded in html, or an
// empty string when there is none.
func HarvestToken(html string) string {
	doc, err := htmlquery.Parse(strings.NewReader(html))
	if err != nil {
		return ""
	}
	node := htmlquery.FindOne(doc, TokenXPath)
	if node == nil {
		return ""
	}
	return htmlquery.SelectAttr(node, "value")
}
