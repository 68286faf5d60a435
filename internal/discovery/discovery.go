package discovery

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"
)

var xlsxRe = regexp.MustCompile(`(?i)\.xlsx?$`)

// FileLink is one downloadable timetable file found on the listing page.
type FileLink struct {
	URL      string
	Filename string
}

// fetcher fetches bytes over HTTP; satisfied by pkg/fetch.Client.
type fetcher interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// Discovery locates timetable files on the university's schedule page.
type Discovery struct {
	listURL string
	fetcher fetcher
	logger  *zap.Logger
}

// New builds a Discovery for the given listing URL.
func New(listURL string, f fetcher, logger *zap.Logger) *Discovery {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Discovery{listURL: listURL, fetcher: f, logger: logger}
}

// ListFiles fetches the listing page and returns every anchor whose href
// ends in .xls/.xlsx, with relative links resolved against the listing URL.
func (d *Discovery) ListFiles(ctx context.Context) ([]FileLink, error) {
	body, err := d.fetcher.Get(ctx, d.listURL)
	if err != nil {
		return nil, fmt.Errorf("fetch listing page: %w", err)
	}

	links, err := ExtractLinks(body, d.listURL)
	if err != nil {
		return nil, err
	}
	d.logger.Info("discovered timetable links", zap.Int("count", len(links)), zap.String("page", d.listURL))
	return links, nil
}

// ExtractLinks walks the HTML and collects spreadsheet hrefs.
func ExtractLinks(page []byte, baseURL string) ([]FileLink, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	doc, err := html.Parse(strings.NewReader(string(page)))
	if err != nil {
		return nil, fmt.Errorf("parse listing html: %w", err)
	}

	var links []FileLink
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key != "href" || !xlsxRe.MatchString(attr.Val) {
					continue
				}
				ref, err := url.Parse(attr.Val)
				if err != nil {
					continue
				}
				abs := base.ResolveReference(ref)
				links = append(links, FileLink{
					URL:      abs.String(),
					Filename: path.Base(abs.Path),
				})
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return links, nil
}
