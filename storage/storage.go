package storage

// Status reports the usability of a cached snapshot
type Status int

const (
	// Missing means no usable snapshot exists:
	// the file is absent, unreadable or corrupted
	Missing Status = iota
	// Fresh means the snapshot age is within the expiration window
	Fresh
	// Stale means a complete snapshot exists but is older
	// than the expiration window; the payload is still usable
	Stale
)

func (s Status) String() string {
	switch s {
	case Fresh:
		return "FRESH"
	case Stale:
		return "STALE"
	default:
		return "MISSING"
	}
}
