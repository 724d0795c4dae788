package service

import (
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

const htmlFlags = html.SkipHTML | html.Safelink | html.NofollowLinks | html.NoreferrerLinks | html.HrefTargetBlank

// MarkdownToHTML renders an assistant answer for the browser. Raw HTML in
// the source is dropped and only safe link protocols are kept.
func MarkdownToHTML(source string) string {
	if source == "" {
		return ""
	}
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	r := html.NewRenderer(html.RendererOptions{Flags: htmlFlags})
	return string(markdown.ToHTML([]byte(source), p, r))
}
