package domain

import "time"

// Session is the public projection of a server-side session record. It carries
// only what a client needs to render a connection entry, never credentials or
// raw descriptor fields.
type Session struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Engine    Engine    `json:"engine"`
	Database  string    `json:"database"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired reports whether the session's TTL has elapsed at t.
func (s Session) Expired(t time.Time) bool {
	return t.After(s.ExpiresAt)
}

// TableMetadata is a best-effort per-table summary cached on a session.
// Staleness is acceptable until a refresh is requested.
type TableMetadata struct {
	Name      string `json:"name"`
	RowCount  int64  `json:"rowCount"`
	SizeBytes int64  `json:"sizeBytes"`
	Size      string `json:"size"`
}
