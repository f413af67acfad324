package models

// Statuses selectable through the by-status fetch. Each maps to one of the
// id sets kept on the user index record.
const (
	StatusLiked    = "liked"
	StatusPosted   = "posted"
	StatusReserved = "reserved"
	StatusAttended = "attended"
)

// User-index set fields mutated by the interaction ledger and metadata store.
const (
	FieldPostedEvents   = "postedEvents"
	FieldLikedEvents    = "likedEvents"
	FieldReservedEvents = "reservedEvents"
	FieldDislikedEvents = "dislikedEvents"
)

// UserIndex is the slice of the external user record this engine reads and
// mutates: the per-user id sets that mirror event-side membership. Profile
// fields live on the same document but belong to the account system, so they
// are never parsed or written here.
type UserIndex struct {
	PostedEvents   []string `json:"postedEvents"`
	LikedEvents    []string `json:"likedEvents"`
	ReservedEvents []string `json:"reservedEvents"`
	DislikedEvents []string `json:"dislikedEvents"`
}

// IDsForStatus selects the id set backing a status. The attended status
// resolves reservations; filtering past events is a client concern.
func (u UserIndex) IDsForStatus(status string) ([]string, bool) {
	switch status {
	case StatusLiked:
		return u.LikedEvents, true
	case StatusPosted:
		return u.PostedEvents, true
	case StatusReserved, StatusAttended:
		return u.ReservedEvents, true
	default:
		return nil, false
	}
}
