package store

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"pixelpaws-server/internal/model"
)

type CatStore struct{ db *gorm.DB }

func (s *Store) Cats() *CatStore { return &CatStore{db: s.DB} }

// List returns every stored cat ordered by id.
func (c *CatStore) List(ctx context.Context) ([]model.Cat, error) {
	cats := make([]model.Cat, 0)
	if err := c.db.WithContext(ctx).Order("id").Find(&cats).Error; err != nil {
		return nil, err
	}
	return cats, nil
}

func (c *CatStore) Get(ctx context.Context, id string) (*model.Cat, error) {
	var cat model.Cat
	if err := c.db.WithContext(ctx).First(&cat, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &cat, nil
}

func (c *CatStore) Exists(ctx context.Context, id string) (bool, error) {
	return catExists(c.db.WithContext(ctx), id)
}

// Ensure inserts cat unless a row with the same id already exists. Existing
// rows are left untouched. It reports whether a row was inserted.
func (c *CatStore) Ensure(ctx context.Context, cat model.Cat) (bool, error) {
	res := c.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&cat)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func catExists(db *gorm.DB, id string) (bool, error) {
	var n int64
	if err := db.Model(&model.Cat{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}
