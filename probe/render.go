package probe

import (
	"fmt"
	nurl "net/url"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	readability "github.com/go-shiori/go-readability"
)

// Readable is the readability summary of a page.
type Readable struct {
	Title    string
	SiteName string
	Excerpt  string
	TextLen  int
}

// ReadableSummary runs Mozilla Readability over the page. Cart pages are
// rarely article-shaped, so an error here is informational.
func ReadableSummary(rawHTML, sourceURL string) (Readable, error) {
	parsedURL, err := nurl.Parse(sourceURL)
	if err != nil {
		return Readable{}, fmt.Errorf("probe: parse url: %w", err)
	}
	article, err := readability.FromReader(strings.NewReader(rawHTML), parsedURL)
	if err != nil {
		return Readable{}, fmt.Errorf("probe: readability: %w", err)
	}
	return Readable{
		Title:    article.Title,
		SiteName: article.SiteName,
		Excerpt:  article.Excerpt,
		TextLen:  len(strings.TrimSpace(article.TextContent)),
	}, nil
}

// newMarkdownConverter strips script, style and head noise and keeps tables.
func newMarkdownConverter() *converter.Converter {
	return converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(
				table.WithCellPaddingBehavior(table.CellPaddingBehaviorMinimal),
			),
		),
	)
}

// ToMarkdown renders the page as Markdown, resolving relative links against
// the page's host.
func ToMarkdown(rawHTML, sourceURL string) (string, error) {
	domain := ""
	if u, err := nurl.Parse(sourceURL); err == nil && u.Host != "" {
		domain = u.Scheme + "://" + u.Host
	}
	return newMarkdownConverter().ConvertString(rawHTML, converter.WithDomain(domain))
}
