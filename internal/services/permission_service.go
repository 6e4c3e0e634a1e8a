package services

import (
	"context"
	"errors"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sumo/backend/internal/models"
)

var ErrPermissionInput = errors.New("user id and permission codename are required")

type permissionSet map[string]struct{}

// PermissionService maps caller identities to their granted permission
// codenames. Lookups are cached for a short TTL; Grant and Revoke evict the
// affected identity.
type PermissionService struct {
	db    *gorm.DB
	cache *expirable.LRU[string, permissionSet]
}

func NewPermissionService(db *gorm.DB, ttl time.Duration) *PermissionService {
	s := &PermissionService{db: db}
	if ttl > 0 {
		s.cache = expirable.NewLRU[string, permissionSet](10_000, nil, ttl)
	}
	return s
}

func (s *PermissionService) HasPermission(ctx context.Context, userID, codename string) (bool, error) {
	perms, err := s.permissions(ctx, userID)
	if err != nil {
		return false, err
	}
	_, ok := perms[codename]
	return ok, nil
}

// Permissions lists the codenames granted to userID.
func (s *PermissionService) Permissions(ctx context.Context, userID string) ([]string, error) {
	var out []string
	err := s.db.WithContext(ctx).
		Model(&models.UserPermission{}).
		Where("user_id = ?", userID).
		Order("codename").
		Pluck("codename", &out).Error
	return out, err
}

func (s *PermissionService) Grant(ctx context.Context, userID, codename string) error {
	if userID == "" || codename == "" {
		return ErrPermissionInput
	}
	perm := models.UserPermission{UserID: userID, Codename: codename}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&perm).Error
	s.evict(userID)
	return err
}

func (s *PermissionService) Revoke(ctx context.Context, userID, codename string) error {
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND codename = ?", userID, codename).
		Delete(&models.UserPermission{}).Error
	s.evict(userID)
	return err
}

func (s *PermissionService) permissions(ctx context.Context, userID string) (permissionSet, error) {
	if s.cache != nil {
		if perms, ok := s.cache.Get(userID); ok {
			permissionCacheLookups.WithLabelValues("hit").Inc()
			return perms, nil
		}
		permissionCacheLookups.WithLabelValues("miss").Inc()
	}

	codenames, err := s.Permissions(ctx, userID)
	if err != nil {
		return nil, err
	}
	perms := make(permissionSet, len(codenames))
	for _, c := range codenames {
		perms[c] = struct{}{}
	}

	if s.cache != nil {
		s.cache.Add(userID, perms)
	}
	return perms, nil
}

func (s *PermissionService) evict(userID string) {
	if s.cache != nil {
		s.cache.Remove(userID)
	}
}
