// Package collector fetches the daily bhavcopy from disk or over HTTP.
package collector

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

// ErrNotPublished means the source has no file for the requested session,
// typically a market holiday. It is never retried.
var ErrNotPublished = errors.New("bhavcopy not published")

// Source opens the bhavcopy for one trading session.
type Source interface {
	// Open returns the CSV stream and a display name for the file.
	Open(ctx context.Context, session time.Time) (io.ReadCloser, string, error)
	Name() string
}

// Expand substitutes session placeholders in a path or URL pattern:
// {date} 15OCT2026, {dd} 15, {MON} OCT, {mm} 10, {yyyy} 2026, {iso} 2026-10-15.
func Expand(pattern string, session time.Time) string {
	r := strings.NewReplacer(
		"{date}", strings.ToUpper(session.Format("02Jan2006")),
		"{dd}", session.Format("02"),
		"{MON}", strings.ToUpper(session.Format("Jan")),
		"{mm}", session.Format("01"),
		"{yyyy}", session.Format("2006"),
		"{iso}", session.Format("2006-01-02"),
	)
	return r.Replace(pattern)
}

// unwrapZip returns the first CSV entry of a zip archive. Other names pass through.
func unwrapZip(name string, body io.ReadCloser) (io.ReadCloser, string, error) {
	if !strings.EqualFold(path.Ext(name), ".zip") {
		return body, name, nil
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", name, err)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, "", fmt.Errorf("open zip %s: %w", name, err)
	}
	for _, f := range zr.File {
		if !strings.EqualFold(path.Ext(f.Name), ".csv") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, "", fmt.Errorf("open %s in %s: %w", f.Name, name, err)
		}
		return rc, path.Base(f.Name), nil
	}
	return nil, "", fmt.Errorf("zip %s: no csv entry", name)
}
