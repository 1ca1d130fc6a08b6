// Package artifact downloads and unpacks the STT runtime archive.
package artifact

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
)

const (
	// MaxRedirects bounds the number of 3xx hops followed by Download.
	MaxRedirects = 5
	chunkSize    = 32 << 10
)

// Fetcher downloads archives over HTTP(S) and extracts them locally.
type Fetcher struct {
	client    *http.Client
	userAgent string
}

// NewFetcher returns a Fetcher. A nil client gets a default one; redirects are
// always handled by Download itself.
func NewFetcher(client *http.Client, userAgent string) *Fetcher {
	c := &http.Client{}
	if client != nil {
		cp := *client
		c = &cp
	}
	c.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }
	if userAgent == "" {
		userAgent = "sttd"
	}
	return &Fetcher{client: c, userAgent: userAgent}
}

// Download fetches rawURL into dest. onProgress receives received/total after
// every chunk, but only when the server announced Content-Length. dest is
// removed on failure.
func (f *Fetcher) Download(ctx context.Context, rawURL, dest string, onProgress func(float64)) error {
	resp, err := f.follow(ctx, rawURL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create download dir: %w", err)
	}
	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	if err := copyWithProgress(out, resp.Body, resp.ContentLength, onProgress); err != nil {
		_ = out.Close()
		_ = os.Remove(dest)
		return fmt.Errorf("download body: %w", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dest)
		return fmt.Errorf("close %s: %w", dest, err)
	}
	return nil
}

// follow walks the redirect chain and returns the terminal 200 response.
func (f *Fetcher) follow(ctx context.Context, rawURL string) (*http.Response, error) {
	current := rawURL
	for hop := 0; ; hop++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, current, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", f.userAgent)
		req.Header.Set("Accept", "application/octet-stream, */*")
		resp, err := f.client.Do(req)
		if err != nil {
			return nil, err
		}
		if isRedirect(resp.StatusCode) {
			loc := resp.Header.Get("Location")
			resp.Body.Close()
			if loc == "" {
				return nil, &DownloadError{URL: current, StatusCode: resp.StatusCode}
			}
			if hop >= MaxRedirects {
				return nil, ErrTooManyRedirects
			}
			next, err := resolveLocation(current, loc)
			if err != nil {
				return nil, fmt.Errorf("bad redirect location %q: %w", loc, err)
			}
			current = next
			continue
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, &DownloadError{URL: current, StatusCode: resp.StatusCode}
		}
		return resp, nil
	}
}

func isRedirect(code int) bool {
	switch code {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

func resolveLocation(base, loc string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	l, err := url.Parse(loc)
	if err != nil {
		return "", err
	}
	return b.ResolveReference(l).String(), nil
}

func copyWithProgress(dst io.Writer, src io.Reader, total int64, onProgress func(float64)) error {
	buf := make([]byte, chunkSize)
	var received int64
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return werr
			}
			received += int64(n)
			if total > 0 && onProgress != nil {
				p := float64(received) / float64(total)
				if p > 1 {
					p = 1
				}
				onProgress(p)
			}
		}
		if rerr == io.EOF {
			return nil
		}
		if rerr != nil {
			return rerr
		}
	}
}
