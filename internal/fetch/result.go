package fetch

// DefaultChunkSize is the read size used for transfers and digests when no
// explicit chunk size is configured.
const DefaultChunkSize = 8192

// Status classifies how a transfer ended.
type Status int

const (
	// StatusFailed means the transfer stopped on an error. Any bytes
	// written before the failure remain on disk for a later resume.
	StatusFailed Status = iota
	// StatusCompleted means the destination now holds the full content.
	StatusCompleted
	// StatusAlreadyComplete means no transfer ran because the destination
	// already held at least the remote size.
	StatusAlreadyComplete
)

// String returns a human-readable status name
func (s Status) String() string {
	switch s {
	case StatusCompleted:
		return "completed"
	case StatusAlreadyComplete:
		return "already complete"
	default:
		return "failed"
	}
}

// Result describes the outcome of a single transfer.
type Result struct {
	Status  Status
	Bytes   int64 // bytes written during this call
	Total   int64 // remote size, 0 when unknown
	Resumed bool  // true when the call appended to a previous partial file
}

// ProgressFunc receives cumulative transferred bytes and the total size
// after each chunk. Total is 0 when the remote size is unknown. Transferred
// counts from the resume offset, so it only ever increases within one call.
type ProgressFunc func(transferred, total int64)
