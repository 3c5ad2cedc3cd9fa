package fetch

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
)

// DigestFile computes the SHA-256 digest of the file at path, feeding it
// through the hash in chunkSize byte reads so memory use stays bounded for
// multi-gigabyte files. The progress callback, when non-nil, receives the
// cumulative hashed byte count and the file size after each chunk. The
// returned digest is lowercase hex.
func DigestFile(path string, chunkSize int, progress ProgressFunc) (string, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	file, err := os.Open(path)
	if err != nil {
		return "", NewFilesystemError(path, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return "", NewFilesystemError(path, err)
	}
	total := info.Size()

	hasher := sha256.New()
	buf := make([]byte, chunkSize)
	var hashed int64
	for {
		n, readErr := file.Read(buf)
		if n > 0 {
			hasher.Write(buf[:n])
			hashed += int64(n)
			if progress != nil {
				progress(hashed, total)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return "", NewFilesystemError(path, readErr)
		}
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}
