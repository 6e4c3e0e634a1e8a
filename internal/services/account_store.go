package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sumo/backend/internal/models"
)

var (
	ErrAccountNotFound = errors.New("social account not found")
	ErrFlagAlreadySet  = errors.New("social account flag already set")
)

// AccountFlag names one of the independent moderation flags of a SocialAccount.
type AccountFlag string

const (
	FlagBanned  AccountFlag = "banned"
	FlagIgnored AccountFlag = "ignored"
)

func (f AccountFlag) validate() error {
	switch f {
	case FlagBanned, FlagIgnored:
		return nil
	}
	return fmt.Errorf("unknown account flag %q", string(f))
}

// other returns the flag that is not f.
func (f AccountFlag) other() AccountFlag {
	if f == FlagBanned {
		return FlagIgnored
	}
	return FlagBanned
}

func (f AccountFlag) isSet(a *models.SocialAccount) bool {
	if f == FlagBanned {
		return a.Banned
	}
	return a.Ignored
}

// AccountStore persists SocialAccounts.
type AccountStore interface {
	Get(ctx context.Context, username string) (*models.SocialAccount, error)

	// ListFlagged returns the accounts with flag set, ordered by username.
	ListFlagged(ctx context.Context, flag AccountFlag) ([]models.SocialAccount, error)

	// SetFlag creates the account if absent and sets flag on it as a single
	// compare-and-set. It returns ErrFlagAlreadySet, without writing, if the
	// account already exists with flag set.
	SetFlag(ctx context.Context, username string, flag AccountFlag) error

	// ClearFlag clears flag on every existing account named in usernames and
	// returns how many accounts matched, whether or not their flag was set.
	ClearFlag(ctx context.Context, usernames []string, flag AccountFlag) (int, error)
}
