// Package fetch implements resumable HTTP downloads. A transfer probes the
// remote size, reads the resume offset from the destination file's current
// length, and requests only the remaining bytes. Partial files are always
// left in place on failure, which is what makes the next call resumable.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"
)

// Config controls transfer behavior.
type Config struct {
	ChunkSize   int           // bytes per read, defaults to DefaultChunkSize
	HeadTimeout time.Duration // size probe timeout, defaults to 10s
	Client      *http.Client  // optional HTTP client override
	Progress    ProgressFunc  // optional per-chunk progress callback
}

// Fetcher downloads remote files with range-request resume support.
// A single Fetcher runs one transfer at a time per call; it keeps no
// state between calls.
type Fetcher struct {
	client      *http.Client
	chunkSize   int
	headTimeout time.Duration
	progress    ProgressFunc
	logger      *zap.Logger
}

// New creates a new Fetcher
func New(cfg Config, logger *zap.Logger) *Fetcher {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.HeadTimeout == 0 {
		cfg.HeadTimeout = 10 * time.Second
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}
	return &Fetcher{
		client:      client,
		chunkSize:   cfg.ChunkSize,
		headTimeout: cfg.HeadTimeout,
		progress:    cfg.Progress,
		logger:      logger,
	}
}

// RemoteSize probes the URL with a HEAD request and returns the declared
// content length. Returns 0 when the server reports no size.
func (f *Fetcher) RemoteSize(ctx context.Context, url string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, f.headTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return 0, NewNetworkError(url, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, NewNetworkError(url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, NewNetworkError(url, fmt.Errorf("unexpected status: %s", resp.Status))
	}

	if resp.ContentLength < 0 {
		return 0, nil
	}
	return resp.ContentLength, nil
}

// Fetch downloads url to dest, resuming from the destination file's current
// length when the file already exists. When the remote size is known and the
// file already covers it, no body transfer runs and the result is
// StatusAlreadyComplete. A server that ignores the range request and answers
// 200 causes a full overwrite from offset 0 so no bytes are duplicated.
func (f *Fetcher) Fetch(ctx context.Context, url, dest string) (Result, error) {
	total, err := f.RemoteSize(ctx, url)
	if err != nil {
		// An unknown size is not fatal. The transfer proceeds and the
		// size is recovered from the GET response when possible.
		f.logger.Warn("size probe failed",
			zap.String("url", url),
			zap.Error(err))
		total = 0
	}

	offset, err := localSize(dest)
	if err != nil {
		return Result{Status: StatusFailed, Total: total}, NewFilesystemError(dest, err)
	}

	if total > 0 && offset >= total {
		f.logger.Info("file already complete",
			zap.String("path", dest),
			zap.Int64("size", offset))
		return Result{Status: StatusAlreadyComplete, Total: total}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Result{Status: StatusFailed, Total: total}, NewNetworkError(url, err)
	}
	if offset > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
		f.logger.Info("resuming download",
			zap.String("path", dest),
			zap.Int64("offset", offset))
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return Result{Status: StatusFailed, Total: total}, NewNetworkError(url, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusPartialContent:
		// Server honored the range, append to the existing bytes.
	case http.StatusOK:
		if offset > 0 {
			f.logger.Warn("server ignored range request, restarting from zero",
				zap.String("url", url),
				zap.Int64("offset", offset))
		}
		offset = 0
	default:
		return Result{Status: StatusFailed, Total: total}, NewNetworkError(url, fmt.Errorf("unexpected status: %s", resp.Status))
	}
	resumed := offset > 0

	if total == 0 && resp.ContentLength > 0 {
		total = offset + resp.ContentLength
	}

	flags := os.O_CREATE | os.O_WRONLY
	if resumed {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	out, err := os.OpenFile(dest, flags, 0o644)
	if err != nil {
		return Result{Status: StatusFailed, Total: total, Resumed: resumed}, NewFilesystemError(dest, err)
	}
	defer out.Close()

	// On error paths the partial file stays on disk untouched. Its length
	// is the resume offset for the next call.
	buf := make([]byte, f.chunkSize)
	var written int64
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, writeErr := out.Write(buf[:n]); writeErr != nil {
				return Result{Status: StatusFailed, Bytes: written, Total: total, Resumed: resumed}, NewFilesystemError(dest, writeErr)
			}
			written += int64(n)
			if f.progress != nil {
				f.progress(offset+written, total)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return Result{Status: StatusFailed, Bytes: written, Total: total, Resumed: resumed}, NewNetworkError(url, readErr)
		}
	}

	if err := out.Close(); err != nil {
		return Result{Status: StatusFailed, Bytes: written, Total: total, Resumed: resumed}, NewFilesystemError(dest, err)
	}

	if resumed {
		f.logger.Info("download complete (resumed)",
			zap.String("path", dest),
			zap.Int64("bytes", written),
			zap.Int64("resumed_from", offset))
	} else {
		f.logger.Info("download complete",
			zap.String("path", dest),
			zap.Int64("bytes", written))
	}

	return Result{Status: StatusCompleted, Bytes: written, Total: total, Resumed: resumed}, nil
}

// localSize returns the destination file's current length, or 0 when the
// file does not exist yet.
func localSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
