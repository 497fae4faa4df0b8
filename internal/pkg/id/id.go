package id

import (
	"crypto/rand"

	"github.com/oklog/ulid/v2"
)

// New generates a new ULID string. Session ids are ULIDs so they sort by
// creation time and are safe to use as a DynamoDB partition key.
func New() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}
