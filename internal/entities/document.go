package entities

import "time"

// Document is an opaque blob stored under a well-known key.
type Document struct {
	ID        string `gorm:"primaryKey"`
	Value     []byte
	UpdatedAt time.Time
}
