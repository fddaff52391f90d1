package utils

import "github.com/google/uuid"

// UUIDGenerator produces the opaque, time-sortable identifiers assigned to
// users and sessions at creation time.
type UUIDGenerator struct {
}

func NewUUIDGenerator() *UUIDGenerator {
	return &UUIDGenerator{}
}

// Generate returns a UUIDv7 string, falling back to a random UUIDv4 when
// the system clock refuses to cooperate.
func (g *UUIDGenerator) Generate() string {
	v7, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}

	return v7.String()
}
