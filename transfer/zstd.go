// CLAUDE:SUMMARY Streaming zstd compress/decompress for multi-gigabyte snapshot artifacts.
package transfer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

// DecompressZst streams src (zstd) into dst. Files of any size are handled
// without buffering them in memory.
func DecompressZst(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("transfer: open %s: %w", src, err)
	}
	defer in.Close()

	dec, err := zstd.NewReader(in)
	if err != nil {
		return fmt.Errorf("transfer: zstd reader: %w", err)
	}
	defer dec.Close()

	return writeStream(dst, dec.IOReadCloser())
}

// CompressZst streams src into dst as zstd. Used by the pipeline when
// packaging snapshot and delta databases.
func CompressZst(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("transfer: open %s: %w", src, err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("transfer: mkdir: %w", err)
	}
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("transfer: create %s: %w", dst, err)
	}

	enc, err := zstd.NewWriter(out)
	if err != nil {
		out.Close()
		return fmt.Errorf("transfer: zstd writer: %w", err)
	}

	_, err = io.Copy(enc, in)
	if cerr := enc.Close(); err == nil {
		err = cerr
	}
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dst)
		return fmt.Errorf("transfer: compress %s: %w", src, err)
	}
	return nil
}

func writeStream(dst string, r io.ReadCloser) error {
	defer r.Close()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("transfer: mkdir: %w", err)
	}
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("transfer: create %s: %w", dst, err)
	}
	_, err = io.Copy(out, r)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dst)
		return fmt.Errorf("transfer: decompress to %s: %w", dst, err)
	}
	return nil
}
