package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sumo/backend/internal/models"
)

type GormAccountStore struct {
	db *gorm.DB
}

func NewGormAccountStore(db *gorm.DB) *GormAccountStore {
	return &GormAccountStore{db: db}
}

func (s *GormAccountStore) Get(ctx context.Context, username string) (*models.SocialAccount, error) {
	var out models.SocialAccount
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *GormAccountStore) ListFlagged(ctx context.Context, flag AccountFlag) ([]models.SocialAccount, error) {
	if err := flag.validate(); err != nil {
		return nil, err
	}
	accounts := []models.SocialAccount{}
	err := s.db.WithContext(ctx).
		Where(string(flag)+" = ?", true).
		Order("username").
		Find(&accounts).Error
	return accounts, err
}

func (s *GormAccountStore) SetFlag(ctx context.Context, username string, flag AccountFlag) error {
	if err := flag.validate(); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Both flags are written explicitly so the row never depends on column defaults.
		seed := map[string]interface{}{
			"username":   username,
			"banned":     false,
			"ignored":    false,
			"created_at": time.Now(),
			"updated_at": time.Now(),
		}
		err := tx.Model(&models.SocialAccount{}).
			Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "username"}}, DoNothing: true}).
			Create(seed).Error
		if err != nil {
			return err
		}

		res := tx.Model(&models.SocialAccount{}).
			Where("username = ? AND "+string(flag)+" = ?", username, false).
			Updates(map[string]interface{}{string(flag): true, "updated_at": time.Now()})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrFlagAlreadySet
		}
		return nil
	})
}

func (s *GormAccountStore) ClearFlag(ctx context.Context, usernames []string, flag AccountFlag) (int, error) {
	if err := flag.validate(); err != nil {
		return 0, err
	}
	var matched []models.SocialAccount
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("username IN ?", usernames).Find(&matched).Error; err != nil {
			return err
		}
		for i := range matched {
			if !flag.isSet(&matched[i]) {
				continue
			}
			if err := tx.Model(&matched[i]).Update(string(flag), false).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(matched), nil
}
