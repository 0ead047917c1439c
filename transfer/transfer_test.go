package transfer

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
)

func TestDownloadVerifiesHash(t *testing.T) {
	payload := []byte("snapshot bytes go here")
	sum := sha256.Sum256(payload)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "artifact.zst")
	err := Download(context.Background(), srv.Client(), srv.URL, dest, hex.EncodeToString(sum[:]))
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	got, err := os.ReadFile(dest)
	if err != nil || !bytes.Equal(got, payload) {
		t.Fatalf("dest content mismatch: %v", err)
	}
}

func TestDownloadRejectsCorruptedBytes(t *testing.T) {
	// Serve one byte flipped relative to the declared hash.
	payload := []byte("snapshot bytes go here")
	sum := sha256.Sum256(payload)
	corrupted := bytes.Clone(payload)
	corrupted[0] ^= 0x01

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(corrupted)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "artifact.zst")
	err := Download(context.Background(), srv.Client(), srv.URL, dest, hex.EncodeToString(sum[:]))
	if !errors.Is(err, ErrIntegrity) {
		t.Fatalf("want ErrIntegrity, got %v", err)
	}
	if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
		t.Fatal("corrupt artifact must not be installed")
	}
	if _, statErr := os.Stat(dest + ".part"); !os.IsNotExist(statErr) {
		t.Fatal("temp file must be cleaned up")
	}
}

func TestDownloadRetriesTransientFailures(t *testing.T) {
	payload := []byte("delta")
	sum := sha256.Sum256(payload)
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		w.Write(payload)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "delta.zst")
	err := Download(context.Background(), srv.Client(), srv.URL, dest, hex.EncodeToString(sum[:]))
	if err != nil {
		t.Fatalf("download after retries: %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("want 3 attempts, got %d", calls.Load())
	}
}

func TestDownloadSurfacesFetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusInternalServerError)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "x.zst")
	err := Download(context.Background(), srv.Client(), srv.URL, dest, "")
	if !errors.Is(err, ErrFetch) {
		t.Fatalf("want ErrFetch, got %v", err)
	}
}

func TestZstRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "plain.sqlite")
	content := bytes.Repeat([]byte("decision row "), 4096)
	if err := os.WriteFile(src, content, 0o644); err != nil {
		t.Fatal(err)
	}

	compressed := filepath.Join(dir, "plain.sqlite.zst")
	if err := CompressZst(src, compressed); err != nil {
		t.Fatalf("compress: %v", err)
	}
	restored := filepath.Join(dir, "restored.sqlite")
	if err := DecompressZst(compressed, restored); err != nil {
		t.Fatalf("decompress: %v", err)
	}

	got, err := os.ReadFile(restored)
	if err != nil || !bytes.Equal(got, content) {
		t.Fatalf("round trip mismatch: %v", err)
	}
}

func TestSHA256File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	if err := os.WriteFile(path, []byte("abc"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := SHA256File(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got != want {
		t.Fatalf("sha256: got %s", got)
	}
}
