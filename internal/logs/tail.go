package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

const maxLineBytes = 1024 * 1024

// TailFile returns the last limit lines of path and the byte offset of its
// end. A missing file yields no lines and offset zero.
func TailFile(path string, limit int) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if limit <= 0 {
		end, err := file.Seek(0, io.SeekEnd)
		if err != nil {
			return nil, 0, fmt.Errorf("seek log file: %w", err)
		}
		return nil, end, nil
	}

	ring := make([]string, limit)
	count := 0
	offset, err := scanLines(file, func(line string) {
		ring[count%limit] = line
		count++
	})
	if err != nil {
		return nil, 0, err
	}

	if count <= limit {
		return ring[:count], offset, nil
	}
	start := count % limit
	lines := make([]string, 0, limit)
	lines = append(lines, ring[start:]...)
	lines = append(lines, ring[:start]...)
	return lines, offset, nil
}

// ReadFrom returns complete lines written after offset. With wait > 0 it polls
// until at least one line appears, wait elapses, or ctx ends. A file that
// shrank below offset is read from the start.
func ReadFrom(ctx context.Context, path string, offset int64, wait time.Duration) ([]string, int64, error) {
	deadline := time.Now().Add(wait)
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		lines, next, err := readForward(path, offset)
		if err != nil || len(lines) > 0 || !time.Now().Before(deadline) {
			return lines, next, err
		}
		offset = next
		select {
		case <-ctx.Done():
			return nil, offset, ctx.Err()
		case <-ticker.C:
		}
	}
}

func readForward(path string, offset int64) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, offset, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, offset, fmt.Errorf("stat log file: %w", err)
	}
	if offset < 0 || offset > info.Size() {
		offset = 0
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, offset, fmt.Errorf("seek log file: %w", err)
	}

	var lines []string
	read, err := scanLines(file, func(line string) {
		lines = append(lines, line)
	})
	if err != nil {
		return nil, offset, err
	}
	return lines, offset + read, nil
}

// scanLines feeds each newline-terminated line of r to fn and returns the
// number of bytes consumed. A trailing partial line is left for the next read.
func scanLines(r io.Reader, fn func(string)) (int64, error) {
	reader := bufio.NewReaderSize(r, 64*1024)
	var consumed int64
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return consumed, nil
			}
			return consumed, fmt.Errorf("read log file: %w", err)
		}
		consumed += int64(len(line))
		if len(line) > maxLineBytes {
			line = line[:maxLineBytes]
		}
		fn(trimNewline(line))
	}
}

func trimNewline(line string) string {
	line = line[:len(line)-1]
	if n := len(line); n > 0 && line[n-1] == '\r' {
		line = line[:n-1]
	}
	return line
}
