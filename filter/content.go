package filter

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"sync"

	"navi/model"

	"github.com/sourcegraph/conc/pool"
	"mvdan.cc/xurls/v2"
)

// ErrInvalidHash is returned for content filter hashes that are not 64 hex characters.
var ErrInvalidHash = errors.New("invalid content hash")

var hashPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// NormalizeHash lower-cases and validates a SHA-256 hex digest.
func NormalizeHash(hash string) (string, error) {
	h := strings.ToLower(strings.TrimSpace(hash))
	if !hashPattern.MatchString(h) {
		return "", fmt.Errorf("%w: %q", ErrInvalidHash, hash)
	}
	return h, nil
}

// Digest returns the hex SHA-256 digest used as content filter key.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ContentStore persists content filter rules.
type ContentStore interface {
	ListContentFilters(ctx context.Context, guildID string) ([]model.ContentFilterRule, error)
	SaveContentFilter(ctx context.Context, rule model.ContentFilterRule) error
	DeleteContentFilter(ctx context.Context, guildID, hash string) (bool, error)
}

// ContentRegistry caches content filters per guild.
type ContentRegistry struct {
	store ContentStore

	mu     sync.RWMutex
	guilds map[string]map[string]model.Severity
}

// NewContentRegistry creates an empty content filter cache.
func NewContentRegistry(store ContentStore) *ContentRegistry {
	return &ContentRegistry{store: store, guilds: make(map[string]map[string]model.Severity)}
}

// Rules returns a copy of the hash -> severity map of a guild.
func (r *ContentRegistry) Rules(ctx context.Context, guildID string) (map[string]model.Severity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rules, err := r.loadLocked(ctx, guildID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]model.Severity, len(rules))
	for h, sev := range rules {
		out[h] = sev
	}
	return out, nil
}

func (r *ContentRegistry) loadLocked(ctx context.Context, guildID string) (map[string]model.Severity, error) {
	if rules, ok := r.guilds[guildID]; ok {
		return rules, nil
	}
	rows, err := r.store.ListContentFilters(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to load content filters for guild %s: %w", guildID, err)
	}
	rules := make(map[string]model.Severity, len(rows))
	for _, row := range rows {
		rules[row.Hash] = row.Severity
	}
	r.guilds[guildID] = rules
	return rules, nil
}

// Add validates the hash, then inserts or updates the rule.
func (r *ContentRegistry) Add(ctx context.Context, guildID, hash string, severity model.Severity) (string, error) {
	h, err := NormalizeHash(hash)
	if err != nil {
		return "", err
	}
	if !severity.Valid() {
		return "", fmt.Errorf("invalid severity %d", severity)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	rules, err := r.loadLocked(ctx, guildID)
	if err != nil {
		return "", err
	}
	if err := r.store.SaveContentFilter(ctx, model.ContentFilterRule{GuildID: guildID, Hash: h, Severity: severity}); err != nil {
		return "", fmt.Errorf("failed to save content filter: %w", err)
	}
	rules[h] = severity
	return h, nil
}

// Remove validates the hash and deletes the rule.
func (r *ContentRegistry) Remove(ctx context.Context, guildID, hash string) (bool, error) {
	h, err := NormalizeHash(hash)
	if err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	existed, err := r.store.DeleteContentFilter(ctx, guildID, h)
	if err != nil {
		return false, fmt.Errorf("failed to delete content filter: %w", err)
	}
	if !existed {
		return false, fmt.Errorf("%w: content hash %s", ErrFilterNotFound, h)
	}
	if rules, ok := r.guilds[guildID]; ok {
		delete(rules, h)
	}
	return true, nil
}

// Forget drops the cached rules of a guild.
func (r *ContentRegistry) Forget(guildID string) {
	r.mu.Lock()
	delete(r.guilds, guildID)
	r.mu.Unlock()
}

// Downloader fetches at most a bounded number of bytes from a URL.
type Downloader interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// ContentViolation is a downloaded file whose digest matched a content filter.
type ContentViolation struct {
	URL      string
	Hash     string
	Severity model.Severity
}

// ContentChecker downloads linked files and matches their digests.
type ContentChecker struct {
	downloader Downloader
	workers    int
}

// NewContentChecker creates a checker running at most workers downloads at once.
func NewContentChecker(d Downloader, workers int) *ContentChecker {
	if workers <= 0 {
		workers = 4
	}
	return &ContentChecker{downloader: d, workers: workers}
}

var urlFinder = xurls.Strict()

// ExtractURLs returns the distinct http(s) URLs in text, in order of appearance.
func ExtractURLs(text string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, u := range urlFinder.FindAllString(text, -1) {
		lower := strings.ToLower(u)
		if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

// Check downloads every URL and returns the highest-severity match, or nil.
// Failed and oversized downloads count as non-matching.
func (c *ContentChecker) Check(ctx context.Context, urls []string, rules map[string]model.Severity) *ContentViolation {
	if len(urls) == 0 || len(rules) == 0 {
		return nil
	}

	p := pool.NewWithResults[*ContentViolation]().WithMaxGoroutines(c.workers)
	for _, u := range urls {
		u := u
		p.Go(func() *ContentViolation {
			data, err := c.downloader.Fetch(ctx, u)
			if err != nil {
				log.Printf("[Filter] Skipping content check for %s: %v", u, err)
				return nil
			}
			h := Digest(data)
			sev, ok := rules[h]
			if !ok {
				return nil
			}
			return &ContentViolation{URL: u, Hash: h, Severity: sev}
		})
	}

	var best *ContentViolation
	for _, v := range p.Wait() {
		if v == nil {
			continue
		}
		if best == nil || v.Severity > best.Severity || (v.Severity == best.Severity && v.Hash < best.Hash) {
			best = v
		}
	}
	return best
}
