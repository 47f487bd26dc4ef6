package filter

import (
	"context"
	"fmt"
	"sync"

	"navi/model"

	"github.com/bwmarrin/discordgo"
)

// ImmunityStore persists per-member filter immunity.
type ImmunityStore interface {
	ListImmunities(ctx context.Context, guildID string) ([]string, error)
	AddImmunity(ctx context.Context, guildID, userID string) error
	RemoveImmunity(ctx context.Context, guildID, userID string) (bool, error)
}

// Immunity caches immune members per guild and applies role-based immunity.
type Immunity struct {
	store ImmunityStore
	cfg   model.ImmunityConfig

	mu     sync.RWMutex
	guilds map[string]map[string]struct{}
}

// NewImmunity creates an immunity cache.
func NewImmunity(store ImmunityStore, cfg model.ImmunityConfig) *Immunity {
	return &Immunity{store: store, cfg: cfg, guilds: make(map[string]map[string]struct{})}
}

func (im *Immunity) loadLocked(ctx context.Context, guildID string) (map[string]struct{}, error) {
	if set, ok := im.guilds[guildID]; ok {
		return set, nil
	}
	ids, err := im.store.ListImmunities(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to load immunities for guild %s: %w", guildID, err)
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	im.guilds[guildID] = set
	return set, nil
}

// Add makes a member immune.
func (im *Immunity) Add(ctx context.Context, guildID, userID string) error {
	im.mu.Lock()
	defer im.mu.Unlock()
	set, err := im.loadLocked(ctx, guildID)
	if err != nil {
		return err
	}
	if err := im.store.AddImmunity(ctx, guildID, userID); err != nil {
		return fmt.Errorf("failed to save immunity: %w", err)
	}
	set[userID] = struct{}{}
	return nil
}

// Remove revokes a member's immunity; ErrFilterNotFound when there was none.
func (im *Immunity) Remove(ctx context.Context, guildID, userID string) error {
	im.mu.Lock()
	defer im.mu.Unlock()
	existed, err := im.store.RemoveImmunity(ctx, guildID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete immunity: %w", err)
	}
	if !existed {
		return fmt.Errorf("%w: no immunity for user %s", ErrFilterNotFound, userID)
	}
	if set, ok := im.guilds[guildID]; ok {
		delete(set, userID)
	}
	return nil
}

// Exempt reports whether a member skips filter evaluation. perms are the
// member's resolved permissions in the channel, or in the guild for name checks.
func (im *Immunity) Exempt(ctx context.Context, guildID, userID string, perms int64, bot bool) (bool, error) {
	if perms&discordgo.PermissionAdministrator != 0 {
		return true, nil
	}
	if im.cfg.ManageMessages && perms&discordgo.PermissionManageMessages != 0 {
		return true, nil
	}
	if im.cfg.Bots && bot {
		return true, nil
	}

	im.mu.RLock()
	set, ok := im.guilds[guildID]
	if ok {
		_, immune := set[userID]
		im.mu.RUnlock()
		return immune, nil
	}
	im.mu.RUnlock()

	im.mu.Lock()
	defer im.mu.Unlock()
	set, err := im.loadLocked(ctx, guildID)
	if err != nil {
		return false, err
	}
	_, immune := set[userID]
	return immune, nil
}
