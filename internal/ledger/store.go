package ledger

import "context"

// LoadStatus describes what a Store found when reading the ledger.
type LoadStatus int

const (
	// StatusLoaded means the ledger was read successfully.
	StatusLoaded LoadStatus = iota
	// StatusAbsent means no ledger exists yet; first append creates it.
	StatusAbsent
	// StatusCorrupt means a ledger exists but is structurally unreadable.
	StatusCorrupt
	// StatusUnavailable means the store could not be reached; nothing can
	// be inferred about the ledger and reinitializing would destroy it.
	StatusUnavailable
)

func (s LoadStatus) String() string {
	switch s {
	case StatusLoaded:
		return "loaded"
	case StatusAbsent:
		return "absent"
	case StatusCorrupt:
		return "corrupt"
	case StatusUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Store reads and writes the ledger wholesale. There is no partial or
// streaming update contract; Save replaces prior contents entirely.
type Store interface {
	Load(ctx context.Context) (Table, LoadStatus, error)
	Save(ctx context.Context, table Table) error
}
