package model

import (
	"fmt"
	"strings"
)

// Severity is the enforcement level attached to a filter rule.
type Severity int

const (
	SeverityFlag Severity = iota + 1
	SeverityBlock
	SeverityJail
)

func (s Severity) String() string {
	switch s {
	case SeverityFlag:
		return "flag"
	case SeverityBlock:
		return "block"
	case SeverityJail:
		return "jail"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// Valid reports whether s is one of the known severities.
func (s Severity) Valid() bool {
	return s >= SeverityFlag && s <= SeverityJail
}

// ParseSeverity parses "flag", "block" or "jail" (case-insensitive).
func ParseSeverity(v string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "flag":
		return SeverityFlag, nil
	case "block":
		return SeverityBlock, nil
	case "jail":
		return SeverityJail, nil
	}
	return 0, fmt.Errorf("unknown severity %q", v)
}

// Scope is the granularity a filter rule applies to.
type Scope string

const (
	ScopeServer  Scope = "server"
	ScopeChannel Scope = "channel"
	// ScopeUser only carries immunity, never rule text.
	ScopeUser Scope = "user"
)

// Specificity orders scopes from least to most specific.
func (s Scope) Specificity() int {
	switch s {
	case ScopeServer:
		return 1
	case ScopeChannel:
		return 2
	case ScopeUser:
		return 3
	}
	return 0
}

// ScopeKey identifies a concrete scope instance: a guild or a single channel.
type ScopeKey struct {
	Kind Scope
	ID   string
}

func (k ScopeKey) String() string {
	return string(k.Kind) + ":" + k.ID
}

// ServerScope returns the key of the server-wide scope of a guild.
func ServerScope(guildID string) ScopeKey {
	return ScopeKey{Kind: ScopeServer, ID: guildID}
}

// ChannelScope returns the key of a channel scope.
func ChannelScope(channelID string) ScopeKey {
	return ScopeKey{Kind: ScopeChannel, ID: channelID}
}

// FilterRule is a persisted text filter. The compiled matcher is never stored.
type FilterRule struct {
	ID       int64    `db:"id"`
	GuildID  string   `db:"guild_id"`
	Scope    Scope    `db:"scope"`
	ScopeID  string   `db:"scope_id"`
	Text     string   `db:"text"`
	Severity Severity `db:"severity"`
}

// ContentFilterRule is a persisted filter keyed by the SHA-256 digest of a file.
type ContentFilterRule struct {
	ID       int64    `db:"id"`
	GuildID  string   `db:"guild_id"`
	Hash     string   `db:"hash"`
	Severity Severity `db:"severity"`
}

// FilterImmunity exempts a single member of a guild from filter evaluation.
type FilterImmunity struct {
	GuildID string `db:"guild_id"`
	UserID  string `db:"user_id"`
}

// GuildSettings holds per-guild moderation settings.
type GuildSettings struct {
	GuildID          string `db:"guild_id"`
	JailRoleID       string `db:"jail_role_id"`
	MuteRoleID       string `db:"mute_role_id"`
	JournalChannelID string `db:"journal_channel_id"`
}
