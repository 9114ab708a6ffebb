package core

import "github.com/google/uuid"

func GenerateNewID() uuid.UUID {
	return uuid.New()
}
