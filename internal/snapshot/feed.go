package snapshot

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/seenimoa/marketlens/pkg/models"
	"github.com/seenimoa/marketlens/pkg/utils"
)

// FetchFeed parses one RSS/Atom feed into unscored news records.
func (l *Loader) FetchFeed(ctx context.Context, feedURL string) ([]models.NewsRecord, error) {
	parser := gofeed.NewParser()
	parser.Client = l.client

	feed, err := parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", feedURL, err)
	}

	source := strings.TrimSpace(feed.Title)
	records := make([]models.NewsRecord, 0, len(feed.Items))
	for _, item := range feed.Items {
		title := strings.TrimSpace(item.Title)
		if title == "" {
			continue
		}
		r := models.NewsRecord{
			Title:   title,
			URL:     item.Link,
			Source:  source,
			Content: cleanHTML(firstNonEmpty(item.Description, item.Content)),
		}
		if item.PublishedParsed != nil {
			r.PublishTime = item.PublishedParsed.In(utils.CST).Format("2006-01-02 15:04:05")
		} else {
			r.PublishTime = item.Published
		}
		r.ID = firstNonEmpty(item.GUID, RecordID(r.Title, r.PublishTime))
		records = append(records, r)
	}
	return records, nil
}

// Feeds fetches every configured feed. Failed feeds are logged and skipped.
func (l *Loader) Feeds(ctx context.Context) []models.NewsRecord {
	var all []models.NewsRecord
	for _, u := range l.endpoints.Feeds {
		records, err := l.FetchFeed(ctx, u)
		if err != nil {
			l.logger.Warn("feed fetch failed", "url", u, "error", err)
			continue
		}
		all = append(all, records...)
	}
	return all
}

// MergeNews appends extra records to base, dropping duplicates by ID and by
// title. Base records win.
func MergeNews(base, extra []models.NewsRecord) []models.NewsRecord {
	out := make([]models.NewsRecord, 0, len(base)+len(extra))
	seenID := make(map[string]bool, len(base)+len(extra))
	seenTitle := make(map[string]bool, len(base)+len(extra))
	for _, group := range [][]models.NewsRecord{base, extra} {
		for _, r := range group {
			if seenID[r.ID] || seenTitle[r.Title] {
				continue
			}
			seenID[r.ID] = true
			seenTitle[r.Title] = true
			out = append(out, r)
		}
	}
	return out
}

// SortedSources returns the distinct sources of records, sorted.
func SortedSources(records []models.NewsRecord) []string {
	set := make(map[string]struct{})
	for _, r := range records {
		if r.Source != "" {
			set[r.Source] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// cleanHTML strips HTML tags from a string using goquery.
func cleanHTML(s string) string {
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + s + "</body>"))
	if err != nil {
		return s
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
