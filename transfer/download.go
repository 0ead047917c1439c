// CLAUDE:SUMMARY Streaming artifact download: .part temp file, running SHA-256 verify, bounded backoff retry, atomic rename.
// Package transfer provides the integrity-checked transport primitives for
// caselaw artifacts: hash-verified downloads and streaming zstd codecs.
package transfer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrFetch indicates a network or HTTP failure after retries are exhausted.
var ErrFetch = errors.New("transfer: fetch failed")

// ErrIntegrity indicates downloaded bytes do not match the expected SHA-256.
// Never retried: a mismatch points at corruption or a manifest/artifact skew
// that re-fetching the same URL will not fix.
var ErrIntegrity = errors.New("transfer: sha256 mismatch")

const (
	maxAttempts    = 3
	initialBackoff = 500 * time.Millisecond
)

// Download streams url to dest. Bytes go to dest+".part" while a running
// SHA-256 is computed; on a hash mismatch the temp file is removed and
// ErrIntegrity returned, so no corrupt file ever lands at dest. On success
// the temp file is renamed into place atomically. An empty expectedSHA256
// skips verification. Transport failures are retried with exponential
// backoff; cancellation is honoured between attempts and between chunks.
func Download(ctx context.Context, client *http.Client, url, dest, expectedSHA256 string) error {
	if client == nil {
		client = http.DefaultClient
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("transfer: mkdir: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			backoff := initialBackoff << (attempt - 1)
			t := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				t.Stop()
				return fmt.Errorf("%w: %v", ErrFetch, ctx.Err())
			case <-t.C:
			}
		}

		err := downloadOnce(ctx, client, url, dest, expectedSHA256)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrIntegrity) || ctx.Err() != nil {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("%w: %s: %v", ErrFetch, url, lastErr)
}

func downloadOnce(ctx context.Context, client *http.Client, url, dest, expectedSHA256 string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}

	tmp := dest + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	h := sha256.New()
	_, err = io.Copy(f, io.TeeReader(resp.Body, h))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write %s: %w", tmp, err)
	}

	if expectedSHA256 != "" {
		got := hex.EncodeToString(h.Sum(nil))
		if !strings.EqualFold(got, expectedSHA256) {
			os.Remove(tmp)
			return fmt.Errorf("%w: %s: expected %s, got %s", ErrIntegrity, url, expectedSHA256, got)
		}
	}

	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", dest, err)
	}
	return nil
}

// SHA256File returns the lowercase hex SHA-256 of the file at path.
func SHA256File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
