package id

import (
	"crypto/rand"

	"github.com/oklog/ulid/v2"
)

// New generates a new ULID string. ULIDs sort by creation time, which keeps
// DynamoDB keys and Postgres primary keys roughly insert-ordered.
func New() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}

// Valid reports whether s parses as a ULID. Used to reject malformed path params early.
func Valid(s string) bool {
	_, err := ulid.ParseStrict(s)
	return err == nil
}
