package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/tidwall/gjson"
)

const wikipediaBase = "https://en.wikipedia.org/api/rest_v1/page/summary/"

var ErrNotFound = errors.New("not found")

// Wikipedia reads out the first sentences of a page summary.
type Wikipedia struct {
	voice  Voice
	client *http.Client
	base   string
}

func NewWikipedia(voice Voice, client *http.Client) *Wikipedia {
	if client == nil {
		client = http.DefaultClient
	}
	return &Wikipedia{voice: voice, client: client, base: wikipediaBase}
}

func (*Wikipedia) Name() string { return "wikipedia" }

func (*Wikipedia) CanHandle(cmd string) bool {
	return strings.Contains(cmd, "wikipedia") ||
		strings.HasPrefix(cmd, "who is ") ||
		strings.HasPrefix(cmd, "what is ")
}

func (w *Wikipedia) Handle(ctx context.Context, cmd string) error {
	topic := wikiTopic(cmd)
	if topic == "" {
		return w.voice.Speak(ctx, "What should I look up, sir?")
	}

	summary, err := w.Summary(ctx, topic)
	switch {
	case errors.Is(err, ErrNotFound):
		return w.voice.Speak(ctx, fmt.Sprintf("I'm sorry, sir. Wikipedia has nothing on %s.", topic))
	case err != nil:
		return err
	}

	return w.voice.Speak(ctx, "According to Wikipedia, "+summary)
}

// Summary returns the first two sentences of the page about topic.
func (w *Wikipedia) Summary(ctx context.Context, topic string) (string, error) {
	title := url.PathEscape(pageTitle(topic))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.base+title, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "jarvis-assistant/1.0")

	resp, err := w.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("wikipedia: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", fmt.Errorf("wikipedia %q: %w", topic, ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("wikipedia: %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("wikipedia: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return "", errors.New("wikipedia: malformed response")
	}

	extract := strings.TrimSpace(gjson.GetBytes(body, "extract").String())
	if extract == "" {
		return "", fmt.Errorf("wikipedia %q: %w", topic, ErrNotFound)
	}

	return firstSentences(extract, 2), nil
}

func wikiTopic(cmd string) string {
	t := cmd
	for _, p := range []string{"according to wikipedia", "on wikipedia", "from wikipedia", "wikipedia"} {
		t = strings.ReplaceAll(t, p, " ")
	}
	t = strings.Join(strings.Fields(t), " ")

	for _, p := range []string{"search for ", "search ", "look up ", "tell me about ", "who is ", "who was ", "what is ", "what are "} {
		t = strings.TrimPrefix(t, p)
	}

	return strings.TrimSpace(t)
}

// pageTitle capitalizes every word, which resolves directly or through a
// redirect for most spoken topics.
func pageTitle(topic string) string {
	words := strings.Fields(topic)
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, "_")
}

// firstSentences cuts text after n sentence terminators that are followed
// by a space or the end of text.
func firstSentences(text string, n int) string {
	count := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '.', '!', '?':
			if i+1 == len(text) || text[i+1] == ' ' {
				count++
				if count == n {
					return text[:i+1]
				}
			}
		}
	}
	return text
}
