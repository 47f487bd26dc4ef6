package handlers

import (
	"context"
	"log"
	"time"

	"navi/bot"
	"navi/enforcement"
	"navi/filter"
	"navi/journal"
	"navi/model"
	"navi/utils"

	"github.com/bwmarrin/discordgo"
)

const rescanTimeout = 30 * time.Minute

type memberDirectory interface {
	GuildPermissions(ctx context.Context, guildID string, member *discordgo.Member) (int64, error)
	Members(ctx context.Context, guildID string, fn func([]*discordgo.Member) error) error
}

type exemptions interface {
	Exempt(ctx context.Context, guildID, userID string, perms int64, bot bool) (bool, error)
}

type scopeSource interface {
	Scopes(ctx context.Context, guildID, channelID string) ([]filter.ScopedFilters, error)
}

type nameEnforcer interface {
	EnforceName(ctx context.Context, v *filter.Violation, m enforcement.Member, kind enforcement.NameKind) error
}

// memberScanner checks member names against the server filters.
type memberScanner struct {
	members  memberDirectory
	immunity exemptions
	filters  scopeSource
	enforcer nameEnforcer
	journal  journal.Emitter
	rescans  *utils.Cooldown
}

func newMemberScanner(b *bot.Bot) *memberScanner {
	return &memberScanner{
		members:  b.Platform,
		immunity: b.Immunity,
		filters:  b.Filters,
		enforcer: b.Enforcer,
		journal:  b.Journal,
		rescans:  b.Rescans,
	}
}

// checkNames checks a member's username and/or nickname. When only is set,
// just that filter is considered.
func (ms *memberScanner) checkNames(ctx context.Context, guildID string, member *discordgo.Member, username, nickname bool, only *filter.Filter) {
	if member == nil || member.User == nil {
		return
	}
	perms, err := ms.members.GuildPermissions(ctx, guildID, member)
	if err != nil {
		log.Printf("[Handlers] %v", err)
	}
	exempt, err := ms.immunity.Exempt(ctx, guildID, member.User.ID, perms, member.User.Bot)
	if err != nil {
		log.Printf("[Handlers] %v", err)
		return
	}
	if exempt {
		return
	}

	scopes, err := ms.filters.Scopes(ctx, guildID, "")
	if err != nil {
		log.Printf("[Handlers] %v", err)
		return
	}
	target := enforcement.Member{GuildID: guildID, UserID: member.User.ID}

	// The username check runs first: a username jail supersedes clearing the nickname.
	if username {
		if v := filter.ResolveName(member.User.Username, scopes, only); v != nil {
			reportEnforcement(ms.journal, guildID, ms.enforcer.EnforceName(ctx, v, target, enforcement.Username))
			if v.Severity() >= model.SeverityBlock {
				return
			}
		}
	}
	if nickname {
		if v := filter.ResolveName(member.Nick, scopes, only); v != nil {
			reportEnforcement(ms.journal, guildID, ms.enforcer.EnforceName(ctx, v, target, enforcement.Nickname))
		}
	}
}

// rescan checks every member of a guild against a newly added server filter.
func (ms *memberScanner) rescan(ctx context.Context, guildID string, scope model.ScopeKey, f *filter.Filter) {
	if scope.Kind != model.ScopeServer {
		return
	}
	if !ms.rescans.Acquire(guildID + "\x00" + f.Text()) {
		log.Printf("[Handlers] Skipping member re-scan of guild %s for `%s`: cooling down", guildID, f.Text())
		return
	}

	ctx, cancel := context.WithTimeout(ctx, rescanTimeout)
	defer cancel()

	start := time.Now()
	checked := 0
	err := ms.members.Members(ctx, guildID, func(page []*discordgo.Member) error {
		for _, m := range page {
			ms.checkNames(ctx, guildID, m, true, true, f)
			checked++
		}
		return ctx.Err()
	})
	if err != nil {
		log.Printf("[Handlers] Member re-scan of guild %s stopped after %d members: %v", guildID, checked, err)
		return
	}
	log.Printf("[Handlers] Re-scanned %d members of guild %s against `%s` in %s", checked, guildID, f.Text(), time.Since(start).Round(time.Millisecond))
}
