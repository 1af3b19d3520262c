package repository

import "github.com/oklog/ulid/v2"

// newID returns a lexicographically sortable unique id.
func newID() string {
	return ulid.Make().String()
}
