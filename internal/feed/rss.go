// Package feed fetches RSS feeds and maps their entries to raw articles.
package feed

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"horse.fit/finwire/internal/model"
)

// DefaultFeeds are the Indian financial news feeds polled when no feed list
// is configured.
var DefaultFeeds = []string{
	"https://www.moneycontrol.com/rss/MCtopnews.xml",
	"https://economictimes.indiatimes.com/rssfeedsdefault.cms",
	"https://www.livemint.com/rss/markets",
}

const (
	// MaxEntriesPerFeed caps how many entries one feed contributes per
	// fetch.
	MaxEntriesPerFeed = 50

	defaultFetchTimeout = 15 * time.Second
	defaultUserAgent    = "FinwireFeed/1.0 (+https://horse.fit/finwire)"
	maxFeedBodyBytes    = 8 * 1024 * 1024
)

type rssDocument struct {
	XMLName xml.Name   `xml:"rss"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title string    `xml:"title"`
	Items []rssItem `xml:"item"`
}

type rssItem struct {
	GUID        string `xml:"guid"`
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
	Updated     string `xml:"updated"`
}

// ParseRSS decodes an RSS 2.0 document and maps up to MaxEntriesPerFeed
// entries to raw articles. feedURL doubles as the source fallback when the
// channel carries no title.
func ParseRSS(raw []byte, feedURL string) ([]model.Article, error) {
	var doc rssDocument
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode rss feed: %w", err)
	}

	source := strings.TrimSpace(doc.Channel.Title)
	if source == "" {
		source = feedURL
	}

	items := doc.Channel.Items
	if len(items) > MaxEntriesPerFeed {
		items = items[:MaxEntriesPerFeed]
	}

	articles := make([]model.Article, 0, len(items))
	for _, item := range items {
		id := strings.TrimSpace(item.GUID)
		if id == "" {
			id = strings.TrimSpace(item.Link)
		}
		if id == "" {
			id = strings.TrimSpace(item.Title)
		}
		if id == "" {
			continue
		}

		link := strings.TrimSpace(item.Link)
		if link == "" {
			link = feedURL
		}

		publishedAt := strings.TrimSpace(item.PubDate)
		if publishedAt == "" {
			publishedAt = strings.TrimSpace(item.Updated)
		}

		articles = append(articles, model.Article{
			ID:          id,
			Title:       strings.TrimSpace(item.Title),
			Content:     StripHTML(item.Description),
			Source:      source,
			PublishedAt: publishedAt,
			URL:         link,
		})
	}
	return articles, nil
}

// StripHTML reduces an RSS description to its visible text.
func StripHTML(fragment string) string {
	trimmed := strings.TrimSpace(fragment)
	if trimmed == "" {
		return ""
	}
	if !strings.Contains(trimmed, "<") {
		return trimmed
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(trimmed))
	if err != nil {
		return trimmed
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func fetchFeedBody(ctx context.Context, client *http.Client, feedURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build feed request: %w", err)
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Accept", "application/rss+xml,application/xml,text/xml;q=0.9,*/*;q=0.8")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch feed status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read feed body: %w", err)
	}
	return body, nil
}
