package utils

import "github.com/google/uuid"

// GenerateID returns a random UUID for a new database record. Recipient,
// intent, job and milestone ids all share this format.
func GenerateID() string {
	return uuid.NewString()
}
