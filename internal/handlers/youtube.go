package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"

	"github.com/PuerkitoBio/goquery"
)

const youtubeBase = "https://www.youtube.com"

var ErrNoResults = errors.New("no results")

var videoIDRe = regexp.MustCompile(`watch\?v=([A-Za-z0-9_-]{11})`)

func youtubeSearchURL(query string) string {
	return youtubeBase + "/results?search_query=" + url.QueryEscape(query)
}

// YouTube resolves a query to the first video on the search results page.
type YouTube struct {
	client *http.Client
	base   string
}

func NewYouTube(client *http.Client) *YouTube {
	if client == nil {
		client = http.DefaultClient
	}
	return &YouTube{client: client, base: youtubeBase}
}

func (y *YouTube) Resolve(ctx context.Context, query string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, y.base+"/results?search_query="+url.QueryEscape(query), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept-Language", "en")

	resp, err := y.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("youtube search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("youtube search: %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("youtube search: %w", err)
	}

	id := firstVideoID(doc)
	if id == "" {
		return "", fmt.Errorf("youtube search %q: %w", query, ErrNoResults)
	}

	return youtubeBase + "/watch?v=" + id, nil
}

// firstVideoID looks at result links first. The results page is mostly
// rendered from an inline script, so it falls back to scanning those.
func firstVideoID(doc *goquery.Document) string {
	var id string

	doc.Find(`a[href*="watch?v="]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		if m := videoIDRe.FindStringSubmatch(href); m != nil {
			id = m[1]
			return false
		}
		return true
	})
	if id != "" {
		return id
	}

	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if m := videoIDRe.FindStringSubmatch(s.Text()); m != nil {
			id = m[1]
			return false
		}
		return true
	})

	return id
}
