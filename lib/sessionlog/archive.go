// Copyright 2026 The Desktop Assist Authors
// SPDX-License-Identifier: Apache-2.0

package sessionlog

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression identifies how a session log file is stored.
type Compression string

const (
	// CompressionNone is a plain .jsonl log, the form a Writer produces.
	CompressionNone Compression = "none"

	// CompressionZstd stores the log as a zstd stream (.jsonl.zst).
	// Better ratios for JSON text; the archive default.
	CompressionZstd Compression = "zstd"

	// CompressionLZ4 stores the log as an LZ4 frame (.jsonl.lz4).
	// Faster, with lower ratios.
	CompressionLZ4 Compression = "lz4"
)

// ErrIncomplete is returned by Archive for a log without a done record
// when force is not set.
var ErrIncomplete = errors.New("session log has no done record")

// ParseCompression parses an archive codec name.
func ParseCompression(name string) (Compression, error) {
	switch Compression(name) {
	case CompressionZstd, CompressionLZ4, CompressionNone:
		return Compression(name), nil
	default:
		return "", fmt.Errorf("unknown compression %q (want zstd or lz4)", name)
	}
}

func (compression Compression) suffix() string {
	switch compression {
	case CompressionZstd:
		return ".zst"
	case CompressionLZ4:
		return ".lz4"
	default:
		return ""
	}
}

// reader wraps source with the decompressor for compression. The
// returned close function releases decoder resources; it does not close
// source.
func (compression Compression) reader(source io.Reader) (io.Reader, func(), error) {
	switch compression {
	case CompressionZstd:
		decoder, err := zstd.NewReader(source)
		if err != nil {
			return nil, nil, fmt.Errorf("zstd reader: %w", err)
		}
		return decoder, decoder.Close, nil
	case CompressionLZ4:
		return lz4.NewReader(source), func() {}, nil
	default:
		return source, func() {}, nil
	}
}

// writer wraps destination with the compressor for compression. The
// returned WriteCloser must be closed to flush the final frame; closing
// it does not close destination.
func (compression Compression) writer(destination io.Writer) (io.WriteCloser, error) {
	switch compression {
	case CompressionZstd:
		encoder, err := zstd.NewWriter(destination, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, fmt.Errorf("zstd writer: %w", err)
		}
		return encoder, nil
	case CompressionLZ4:
		return lz4.NewWriter(destination), nil
	default:
		return nil, fmt.Errorf("cannot archive with compression %q", compression)
	}
}

// Archive compresses the plain log of session id and removes the plain
// file once the archive is on stable storage. Logs without a done
// record are refused with ErrIncomplete unless force is set, since an
// incomplete log may still be open by a running supervisor. Returns the
// archive path.
func Archive(dir, id string, compression Compression, force bool) (string, error) {
	if compression == CompressionNone {
		return "", fmt.Errorf("archiving session %q: no compression selected", id)
	}
	if err := validateID(id); err != nil {
		return "", err
	}
	plainPath := filepath.Join(dir, id+Extension)
	if _, err := os.Stat(plainPath); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("archiving session %q: %w", id, ErrNotFound)
		}
		return "", fmt.Errorf("archiving session %q: %w", id, err)
	}

	if !force {
		summary := summarize(id, plainPath, CompressionNone)
		if summary.Status != ListStatusDone {
			return "", fmt.Errorf("archiving session %q: %w", id, ErrIncomplete)
		}
	}

	archivePath := plainPath + compression.suffix()
	if err := compressFile(plainPath, archivePath, compression); err != nil {
		return "", fmt.Errorf("archiving session %q: %w", id, err)
	}
	if err := os.Remove(plainPath); err != nil {
		return "", fmt.Errorf("removing archived session log %q: %w", plainPath, err)
	}
	return archivePath, nil
}

// compressFile writes a compressed copy of sourcePath to archivePath
// through a temporary file and a rename, so a crash never leaves a
// truncated archive under the final name.
func compressFile(sourcePath, archivePath string, compression Compression) error {
	source, err := os.Open(sourcePath)
	if err != nil {
		return err
	}
	defer source.Close()

	temporary, err := os.CreateTemp(filepath.Dir(archivePath), "."+filepath.Base(archivePath)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temporary archive: %w", err)
	}
	temporaryPath := temporary.Name()
	success := false
	defer func() {
		if !success {
			temporary.Close()
			os.Remove(temporaryPath)
		}
	}()

	compressor, err := compression.writer(temporary)
	if err != nil {
		return err
	}
	if _, err := io.Copy(compressor, source); err != nil {
		compressor.Close()
		return fmt.Errorf("compressing %s: %w", sourcePath, err)
	}
	if err := compressor.Close(); err != nil {
		return fmt.Errorf("finishing %s archive: %w", compression, err)
	}
	if err := temporary.Chmod(0o600); err != nil {
		return fmt.Errorf("setting archive permissions: %w", err)
	}
	if err := temporary.Sync(); err != nil {
		return fmt.Errorf("syncing archive: %w", err)
	}
	if err := temporary.Close(); err != nil {
		return fmt.Errorf("closing archive: %w", err)
	}
	if err := os.Rename(temporaryPath, archivePath); err != nil {
		return fmt.Errorf("renaming archive into place: %w", err)
	}
	success = true
	return nil
}
