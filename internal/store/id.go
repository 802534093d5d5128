package store

import (
	"fmt"

	"github.com/google/uuid"
)

const (
	idMaxAttempts = 20
	maxIDLength   = 128
)

// GenerateFileID returns a new random file id.
// It retries on collisions using the provided exists function.
func GenerateFileID(exists func(string) (bool, error)) (string, error) {
	for i := 0; i < idMaxAttempts; i++ {
		id := uuid.NewString()
		if exists == nil {
			return id, nil
		}
		ok, err := exists(id)
		if err != nil {
			return "", err
		}
		if !ok {
			return id, nil
		}
	}

	return "", fmt.Errorf("unable to generate unique id")
}

// ValidID reports whether id is safe to use as a record key.
// Ids double as file names in the JSON backend.
func ValidID(id string) bool {
	if id == "" || len(id) > maxIDLength {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}
