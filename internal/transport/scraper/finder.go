// Package scraper finds product illustrations by scraping a configured
// HTML source. Best effort by contract: no matches is an empty slice,
// and callers treat errors as a degraded listing, not a failed one.
package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"
)

const (
	DefaultMaxImages = 5
	DefaultTimeout   = 20 * time.Second
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Finder scrapes <img> tags from a search page.
type Finder struct {
	client    *http.Client
	searchURL string
	userAgent string
	maxImages int
	logger    *zap.Logger
}

// Config holds the scraper settings. SearchURL must contain a single
// %s verb for the escaped query.
type Config struct {
	SearchURL string
	UserAgent string
	MaxImages int
	Timeout   time.Duration
	Logger    *zap.Logger
}

// NewFinder creates an image finder over the configured source.
func NewFinder(cfg *Config) *Finder {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	maxImages := cfg.MaxImages
	if maxImages <= 0 {
		maxImages = DefaultMaxImages
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	return &Finder{
		client:    &http.Client{Timeout: timeout},
		searchURL: cfg.SearchURL,
		userAgent: userAgent,
		maxImages: maxImages,
		logger:    cfg.Logger,
	}
}

// FindImages implements domain.ImageFinder.
func (f *Finder) FindImages(ctx context.Context, query string) ([]string, error) {
	pageURL := fmt.Sprintf(f.searchURL, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", pageURL, resp.StatusCode)
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}

	urls := collectImages(base, resp.Body, f.maxImages)
	f.logger.Debug("Image scrape finished",
		zap.String("query", query),
		zap.Int("found", len(urls)),
	)
	return urls, nil
}

// collectImages walks the token stream and keeps plausible product shots.
func collectImages(base *url.URL, body io.Reader, max int) []string {
	z := html.NewTokenizer(body)
	seen := make(map[string]struct{})
	out := []string{}

	for len(out) < max {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}

		name, hasAttr := z.TagName()
		if string(name) != "img" || !hasAttr {
			continue
		}

		attrs := tagAttrs(z)
		src := pickSrc(attrs)
		if src == "" || looksJunk(src) || tooSmall(attrs) {
			continue
		}

		abs := resolve(base, src)
		if abs == "" {
			continue
		}
		if _, dup := seen[abs]; dup {
			continue
		}
		seen[abs] = struct{}{}
		out = append(out, abs)
	}

	return out
}

func tagAttrs(z *html.Tokenizer) map[string]string {
	attrs := make(map[string]string)
	for {
		key, val, more := z.TagAttr()
		attrs[string(key)] = string(val)
		if !more {
			break
		}
	}
	return attrs
}

// pickSrc mirrors lazy-loading attribute conventions.
func pickSrc(attrs map[string]string) string {
	for _, key := range []string{"src", "data-src", "data-lazy-src", "data-original"} {
		if v := strings.TrimSpace(attrs[key]); v != "" {
			return v
		}
	}
	if set := attrs["srcset"]; set != "" {
		first := strings.Split(set, ",")[0]
		if fields := strings.Fields(first); len(fields) > 0 {
			return fields[0]
		}
	}
	return ""
}

var junkWords = []string{
	"icon", "logo", "banner", "sprite", "badge", "arrow", "button",
	"thumb", "avatar", "pixel", "1x1", "spacer", "placeholder",
}

func looksJunk(src string) bool {
	lower := strings.ToLower(src)
	for _, w := range junkWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// tooSmall drops images whose declared dimensions are below 100px.
func tooSmall(attrs map[string]string) bool {
	for _, key := range []string{"width", "height"} {
		v := strings.TrimSpace(attrs[key])
		if v == "" {
			continue
		}
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n < 100 {
			return true
		}
	}
	return false
}

// resolve absolutizes src against the page and drops non-HTTP schemes
// (data: URLs in particular).
func resolve(base *url.URL, src string) string {
	ref, err := url.Parse(strings.TrimSpace(src))
	if err != nil {
		return ""
	}
	abs := base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return ""
	}
	return abs.String()
}
