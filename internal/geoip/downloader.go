// Package geoip downloads the MaxMind GeoLite2 country database and resolves
// game server addresses to ISO country codes for the detail view.
package geoip

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/gsdash/internal/vars"
)

// EnsureDB checks if the database exists at path and is younger than maxAge.
// If the file is missing or outdated, a new copy is downloaded from url.
func EnsureDB(ctx context.Context, path, url string, maxAge time.Duration) error {
	info, err := os.Stat(path)

	switch {
	case err == nil:
		if time.Since(info.ModTime()) < maxAge {
			log.Debug().Str("path", path).Msg("GeoIP database is up to date")
			return nil
		}
		log.Info().Str("path", path).Msg("GeoIP database is outdated, updating...")
	case os.IsNotExist(err):
		log.Info().Str("path", path).Msg("GeoIP database missing, downloading...")
	default:
		return err
	}

	return downloadFile(ctx, path, url)
}

// maxDBSize bounds the download, the country database is a few MB.
const maxDBSize = 128 << 20

// downloadFile writes url to a temporary file next to path and renames it
// over path once complete.
func downloadFile(ctx context.Context, path, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", vars.UserAgent())

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download GeoIP DB: HTTP %d", resp.StatusCode)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	n, err := io.Copy(tmp, io.LimitReader(resp.Body, maxDBSize+1))
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	if n > maxDBSize {
		return fmt.Errorf("download GeoIP DB: larger than %d bytes", maxDBSize)
	}

	log.Debug().Str("path", path).Int64("bytes", n).Msg("GeoIP database downloaded")

	return os.Rename(tmp.Name(), path)
}
