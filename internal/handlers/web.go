package handlers

import (
	"context"
	"net/url"
	"strings"
	"sync"
)

type Site struct {
	Name string
	URL  string
}

var DefaultSites = []Site{
	{Name: "moodle", URL: "https://cet.iitp.ac.in"},
	{Name: "youtube", URL: "https://youtube.com"},
	{Name: "github", URL: "https://github.com"},
}

// Web opens known sites by name and sends everything else with "search" in
// it to Google. It is the most general handler and goes last.
type Web struct {
	voice    Voice
	launcher Launcher

	mu    sync.RWMutex
	sites []Site
}

func NewWeb(voice Voice, launcher Launcher, sites []Site) *Web {
	w := &Web{voice: voice, launcher: launcher}
	w.SetSites(sites)
	return w
}

// SetSites replaces the site table. Safe to call while commands are served.
func (w *Web) SetSites(sites []Site) {
	if sites == nil {
		sites = DefaultSites
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.sites = append([]Site(nil), sites...)
}

func (*Web) Name() string { return "web" }

func (w *Web) CanHandle(cmd string) bool {
	_, ok := w.site(cmd)
	return ok || hasWord(cmd, "search")
}

func (w *Web) Handle(ctx context.Context, cmd string) error {
	if s, ok := w.site(cmd); ok {
		if err := w.launcher.OpenURL(ctx, s.URL); err != nil {
			return err
		}
		return w.voice.Speak(ctx, "Opening "+s.Name)
	}

	if err := w.voice.Speak(ctx, "Searching Google."); err != nil {
		return err
	}

	query := removeWords(cmd, "search", "for")
	if query == "" {
		query = cmd
	}
	return w.launcher.OpenURL(ctx, "https://www.google.com/search?q="+url.QueryEscape(query))
}

func (w *Web) site(cmd string) (Site, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	for _, s := range w.sites {
		if strings.Contains(cmd, s.Name) {
			return s, true
		}
	}
	return Site{}, false
}
