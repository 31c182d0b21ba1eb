package collector

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/rs/zerolog"
)

// HTTPSource downloads bhavcopies from a URL pattern with optional proxy support.
type HTTPSource struct {
	URLPattern string
	UserAgent  string
	Client     *http.Client
	log        zerolog.Logger
}

// NewHTTPSource creates a source. proxyURL may be empty.
func NewHTTPSource(urlPattern, proxyURL string, timeout time.Duration, log zerolog.Logger) *HTTPSource {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPSource{
		URLPattern: urlPattern,
		UserAgent:  "Mozilla/5.0",
		Client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		log: log.With().Str("component", "collector").Logger(),
	}
}

func (s *HTTPSource) Name() string { return "http:" + s.URLPattern }

// Open issues one GET. 404 maps to ErrNotPublished; other 4xx responses are
// permanent and 5xx responses are retryable.
func (s *HTTPSource) Open(ctx context.Context, session time.Time) (io.ReadCloser, string, error) {
	u := Expand(s.URLPattern, session)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, "", Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("User-Agent", s.UserAgent)

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch %s: %w", u, err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		err := fmt.Errorf("fetch %s: status %d, body: %s", u, resp.StatusCode, string(body))
		switch {
		case resp.StatusCode == http.StatusNotFound:
			return nil, "", fmt.Errorf("%s: %w", u, ErrNotPublished)
		case resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests:
			return nil, "", Permanent(err)
		}
		return nil, "", err
	}

	name := path.Base(req.URL.Path)
	s.log.Debug().Str("url", u).Int64("bytes", resp.ContentLength).Msg("bhavcopy downloaded")
	return unwrapZip(name, resp.Body)
}
