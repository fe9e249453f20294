// Package fetch downloads a rankings page and reduces it to plain text the
// extraction oracle can read.
package fetch

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	maxBody   = 8 << 20
)

var defaultClient = &http.Client{Timeout: 30 * time.Second}

// Fetcher downloads pages. The zero value uses a client with a 30s timeout.
type Fetcher struct {
	Client *http.Client
}

// PageText fetches url with the default Fetcher.
func PageText(ctx context.Context, url string) (string, error) {
	return Fetcher{}.PageText(ctx, url)
}

// PageText fetches url and returns its readable text. HTML tables come out
// one row per line with tab-separated cells; scripts and styles are
// dropped. Non-HTML bodies are returned as-is.
func (f Fetcher) PageText(ctx context.Context, url string) (string, error) {
	client := f.Client
	if client == nil {
		client = defaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: status %s", url, resp.Status)
	}

	body := io.LimitReader(resp.Body, maxBody)
	if mt, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type")); mt != "" && mt != "text/html" && mt != "application/xhtml+xml" {
		b, err := io.ReadAll(body)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", url, err)
		}
		return strings.TrimSpace(string(b)), nil
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", url, err)
	}
	return HTMLText(doc), nil
}

// HTMLText renders a parsed document as text.
func HTMLText(doc *goquery.Document) string {
	doc.Find("script, style, noscript, template, svg").Remove()

	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}
	var b strings.Builder
	render(&b, root)
	return tidy(b.String())
}

var blocks = map[string]bool{
	"p": true, "div": true, "li": true, "ul": true, "ol": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"section": true, "article": true, "header": true, "footer": true,
	"main": true, "nav": true, "aside": true, "pre": true, "dl": true, "dt": true, "dd": true,
}

func render(b *strings.Builder, s *goquery.Selection) {
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		switch name := goquery.NodeName(c); {
		case name == "#text":
			b.WriteString(strings.NewReplacer("\n", " ", "\r", " ", "\t", " ").Replace(c.Text()))
		case name == "#comment":
		case name == "br":
			b.WriteByte('\n')
		case name == "table":
			b.WriteByte('\n')
			renderTable(b, c)
			b.WriteByte('\n')
		case blocks[name]:
			b.WriteByte('\n')
			render(b, c)
			b.WriteByte('\n')
		default:
			render(b, c)
		}
	})
}

func renderTable(b *strings.Builder, table *goquery.Selection) {
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var cells []string
		tr.Children().Filter("th, td").Each(func(_ int, td *goquery.Selection) {
			cells = append(cells, strings.Join(strings.Fields(td.Text()), " "))
		})
		if strings.TrimSpace(strings.Join(cells, "")) == "" {
			return
		}
		b.WriteString(strings.Join(cells, "\t"))
		b.WriteByte('\n')
	})
}

// tidy collapses runs of spaces outside table rows and drops blank lines.
func tidy(s string) string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if strings.Contains(line, "\t") {
			out = append(out, strings.TrimSpace(line))
			continue
		}
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
