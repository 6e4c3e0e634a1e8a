package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sumo/backend/internal/models"
)

var (
	ErrUsernameRequired  = errors.New("username not provided")
	ErrUsernamesRequired = errors.New("usernames not provided")
	ErrAlreadyBanned     = errors.New("account already banned")
	ErrAlreadyIgnored    = errors.New("account already ignored")
)

// ModerationService bans and ignores social accounts for the Army of Awesome
// tool. Banned accounts may not use the tool; ignored accounts are hidden
// from it.
type ModerationService struct {
	store  AccountStore
	logger *slog.Logger
}

func NewModerationService(store AccountStore) *ModerationService {
	return &ModerationService{
		store:  store,
		logger: slog.Default().With("system", "moderation"),
	}
}

func (m *ModerationService) ListBanned(ctx context.Context) ([]models.SocialAccount, error) {
	return m.store.ListFlagged(ctx, FlagBanned)
}

func (m *ModerationService) ListIgnored(ctx context.Context) ([]models.SocialAccount, error) {
	return m.store.ListFlagged(ctx, FlagIgnored)
}

func (m *ModerationService) Ban(ctx context.Context, username string) error {
	return m.setFlag(ctx, "ban", username, FlagBanned, ErrAlreadyBanned)
}

func (m *ModerationService) Ignore(ctx context.Context, username string) error {
	return m.setFlag(ctx, "ignore", username, FlagIgnored, ErrAlreadyIgnored)
}

// Unban returns the number of accounts matching usernames, including those
// that were not banned.
func (m *ModerationService) Unban(ctx context.Context, usernames []string) (int, error) {
	return m.clearFlag(ctx, "unban", usernames, FlagBanned)
}

// Unignore returns the number of accounts matching usernames, including those
// that were not ignored.
func (m *ModerationService) Unignore(ctx context.Context, usernames []string) (int, error) {
	return m.clearFlag(ctx, "unignore", usernames, FlagIgnored)
}

func (m *ModerationService) setFlag(ctx context.Context, action, username string, flag AccountFlag, conflict error) error {
	username = models.NormalizeUsername(username)
	if username == "" {
		moderationActions.WithLabelValues(action, "invalid").Inc()
		return ErrUsernameRequired
	}

	err := m.store.SetFlag(ctx, username, flag)
	switch {
	case errors.Is(err, ErrFlagAlreadySet):
		moderationActions.WithLabelValues(action, "conflict").Inc()
		return conflict
	case err != nil:
		moderationActions.WithLabelValues(action, "error").Inc()
		return fmt.Errorf("%s %q: %w", action, username, err)
	}

	moderationActions.WithLabelValues(action, "ok").Inc()
	m.logger.Info("account flag set", "action", action, "username", username)
	return nil
}

func (m *ModerationService) clearFlag(ctx context.Context, action string, usernames []string, flag AccountFlag) (int, error) {
	names := candidateUsernames(usernames)
	if len(names) == 0 {
		moderationActions.WithLabelValues(action, "invalid").Inc()
		return 0, ErrUsernamesRequired
	}

	matched, err := m.store.ClearFlag(ctx, names, flag)
	if err != nil {
		moderationActions.WithLabelValues(action, "error").Inc()
		return 0, fmt.Errorf("%s: %w", action, err)
	}

	moderationActions.WithLabelValues(action, "ok").Inc()
	m.logger.Info("account flags cleared", "action", action, "requested", len(names), "matched", matched)
	return matched, nil
}

// candidateUsernames returns every name as given plus, for names with a
// leading "@", the name without it. Stored names may themselves start with
// "@" when banned as "@@handle". Empty names are dropped.
func candidateUsernames(usernames []string) []string {
	seen := make(map[string]struct{}, len(usernames))
	names := make([]string, 0, len(usernames))
	add := func(u string) {
		if _, ok := seen[u]; u == "" || ok {
			return
		}
		seen[u] = struct{}{}
		names = append(names, u)
	}
	for _, u := range usernames {
		add(u)
		add(models.NormalizeUsername(u))
	}
	return names
}
