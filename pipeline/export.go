// CLAUDE:SUMMARY Streaming reader for JSONL decision exports, transparently gunzipping .gz files.
package pipeline

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// maxLineBytes bounds one export line; full-text decisions can run long.
const maxLineBytes = 32 << 20

// EachRecord streams normalized records from a JSONL export, one decision
// per line. Files ending in .gz are decompressed on the fly. Blank lines
// are skipped; fn returning an error aborts the stream.
func EachRecord(path string, fn func(RawDecision) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("pipeline: open export: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("pipeline: gunzip export: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		var d RawDecision
		if err := json.Unmarshal([]byte(text), &d); err != nil {
			return fmt.Errorf("pipeline: export line %d: %w", line, err)
		}
		if err := fn(d); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("pipeline: read export: %w", err)
	}
	return nil
}
