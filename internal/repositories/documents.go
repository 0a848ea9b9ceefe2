package repositories

import (
	"context"
	"github.com/maxaizer/seek-applier/internal/entities"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"time"
)

// Documents keeps whole JSON documents (the ledger, the refresh token) keyed by name.
type Documents struct {
	db *gorm.DB
}

func NewDocumentsRepository(db *gorm.DB) *Documents {
	return &Documents{db: db}
}

func (repo *Documents) Save(ctx context.Context, id string, value []byte) error {
	return repo.db.WithContext(ctx).Save(&entities.Document{
		ID:        id,
		Value:     value,
		UpdatedAt: time.Now(),
	}).Error
}

// Load returns nil without an error when there is no document with the id.
func (repo *Documents) Load(ctx context.Context, id string) ([]byte, error) {
	document := &entities.Document{}
	err := repo.db.WithContext(ctx).First(document, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return document.Value, nil
}

func (repo *Documents) Remove(ctx context.Context, id string) error {
	return repo.db.WithContext(ctx).Delete(&entities.Document{}, "id = ?", id).Error
}
