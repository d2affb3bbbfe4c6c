// Package idgen generates the surrogate and correlation ids used
// throughout the core (journey/alert/outbox row ids, cycle correlation
// ids).
package idgen

import (
	"log"

	"github.com/google/uuid"
)

// New generates a new random (v4) UUID string.
func New() string {
	id, err := uuid.NewRandom()
	if err != nil {
		log.Printf("idgen: failed to generate uuid: %v", err)
		return ""
	}
	return id.String()
}
