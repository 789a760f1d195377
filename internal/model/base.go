package model

import (
	"time"

	"github.com/google/uuid"
)

// Base contains the fields shared by owner-level records.
type Base struct {
	ID        uuid.UUID `db:"id" json:"id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// JSONMap represents a generic JSON object
type JSONMap map[string]interface{}
