// Package mapping persists the link between local accounts and identity
// provider subjects. The bearer authentication path resolves a verified
// token subject to a local user ID through this package, and the identity
// sync keeps the link current as accounts change.
package mapping

import "time"

// UserMapping links a local account to its identity provider subject.
// UserID is the primary key; a subject maps to at most one account.
type UserMapping struct {
	// UserID is the local account identifier.
	UserID int64

	// ExternalUserID is the provider-side subject (the token sub claim).
	ExternalUserID string

	// CreatedAt is when the link was first established. Stored in UTC;
	// upserts never touch it.
	CreatedAt time.Time
}

// maxExternalIDLength is the column limit for ExternalUserID. Provider
// subjects are UUIDs (36 chars); the column allows headroom.
const maxExternalIDLength = 50
