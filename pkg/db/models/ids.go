package models

import "github.com/google/uuid"

// ensureID assigns a fresh v4 id when the caller left it blank, so rows get
// identifiers regardless of whether the database has a uuid default.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
