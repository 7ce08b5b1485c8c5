// Package fetch extracts page title and description by downloading the page
// and running it through a readability parser, for setups where the
// extension cannot read page content itself.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"

	"github.com/haukened/siteblock/internal/block/common/urlnorm"
	"github.com/haukened/siteblock/internal/block/domain"
)

const (
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	maxBodyBytes     = 4 << 20
	// maxDescription bounds the fallback description cut from the body text.
	maxDescription = 300
)

// ErrUnsupportedURL is returned for anything but http(s) URLs.
var ErrUnsupportedURL = errors.New("fetch: unsupported url")

// Accessor implements the engine's content accessor over HTTP.
type Accessor struct {
	client    *http.Client
	userAgent string
}

type Options struct {
	Timeout   time.Duration
	Client    *http.Client
	UserAgent string
}

func New(opts Options) *Accessor {
	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	return &Accessor{client: client, userAgent: ua}
}

// PageContent downloads pageURL and returns its title and a short
// description. The tab id is not used.
func (a *Accessor) PageContent(ctx context.Context, _ int, pageURL string) (domain.PageContent, error) {
	if !urlnorm.IsWebURL(pageURL) {
		return domain.PageContent{}, fmt.Errorf("%w: %s", ErrUnsupportedURL, pageURL)
	}
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return domain.PageContent{}, fmt.Errorf("%w: %s", ErrUnsupportedURL, pageURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return domain.PageContent{}, fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	req.Header.Set("User-Agent", a.userAgent)
	resp, err := a.client.Do(req)
	if err != nil {
		return domain.PageContent{}, fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return domain.PageContent{}, fmt.Errorf("fetch %s: HTTP %d", pageURL, resp.StatusCode)
	}

	article, err := readability.FromReader(io.LimitReader(resp.Body, maxBodyBytes), parsed)
	if err != nil {
		return domain.PageContent{}, fmt.Errorf("extract content from %s: %w", pageURL, err)
	}

	desc := strings.TrimSpace(article.Excerpt)
	if desc == "" {
		desc = truncate(strings.Join(strings.Fields(article.TextContent), " "), maxDescription)
	}
	return domain.PageContent{Title: strings.TrimSpace(article.Title), Description: desc}, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
