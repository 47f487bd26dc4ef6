package filter

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"navi/model"
)

// ErrFilterNotFound is returned when removing a filter that does not exist.
var ErrFilterNotFound = errors.New("filter not found")

// Store persists text filter rules. Every mutating call runs in its own transaction.
type Store interface {
	ListFilters(ctx context.Context, scope model.ScopeKey) ([]model.FilterRule, error)
	SaveFilter(ctx context.Context, rule model.FilterRule) error
	DeleteFilter(ctx context.Context, scope model.ScopeKey, text string) (bool, error)
	DeleteScopeFilters(ctx context.Context, scope model.ScopeKey) (int64, error)
}

// Filter is a compiled rule with its severity.
type Filter struct {
	*Matcher
	Severity model.Severity
}

// FilterSet is the insertion-ordered text -> filter map of one scope.
type FilterSet struct {
	order  []string
	byText map[string]*Filter
}

func newFilterSet() *FilterSet {
	return &FilterSet{byText: make(map[string]*Filter)}
}

func (s *FilterSet) put(f *Filter) {
	if _, ok := s.byText[f.Text()]; !ok {
		s.order = append(s.order, f.Text())
	}
	s.byText[f.Text()] = f
}

func (s *FilterSet) remove(text string) {
	if _, ok := s.byText[text]; !ok {
		return
	}
	delete(s.byText, text)
	for i, t := range s.order {
		if t == text {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *FilterSet) snapshot() []*Filter {
	out := make([]*Filter, 0, len(s.order))
	for _, t := range s.order {
		out = append(out, s.byText[t])
	}
	return out
}

// ChangeFunc is called after a filter was added or its severity changed.
type ChangeFunc func(guildID string, scope model.ScopeKey, f *Filter)

// Registry caches compiled filters per scope instance and keeps the cache in
// step with the store.
type Registry struct {
	store Store

	mu   sync.RWMutex
	sets map[model.ScopeKey]*FilterSet

	onChange ChangeFunc
}

// NewRegistry creates an empty registry backed by store.
func NewRegistry(store Store) *Registry {
	return &Registry{
		store: store,
		sets:  make(map[model.ScopeKey]*FilterSet),
	}
}

// OnChange registers a hook run on its own goroutine after every successful Add.
func (r *Registry) OnChange(fn ChangeFunc) {
	r.mu.Lock()
	r.onChange = fn
	r.mu.Unlock()
}

// Filters returns the filters of a scope in insertion order, loading them on first access.
func (r *Registry) Filters(ctx context.Context, scope model.ScopeKey) ([]*Filter, error) {
	r.mu.RLock()
	set, ok := r.sets[scope]
	if ok {
		out := set.snapshot()
		r.mu.RUnlock()
		return out, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	set, err := r.loadLocked(ctx, scope)
	if err != nil {
		return nil, err
	}
	return set.snapshot(), nil
}

func (r *Registry) loadLocked(ctx context.Context, scope model.ScopeKey) (*FilterSet, error) {
	if set, ok := r.sets[scope]; ok {
		return set, nil
	}
	rules, err := r.store.ListFilters(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("failed to load filters for %s: %w", scope, err)
	}
	set := newFilterSet()
	for _, rule := range rules {
		m, err := Compile(rule.Text)
		if err != nil {
			log.Printf("[Filter] Skipping stored filter %q in %s: %v", rule.Text, scope, err)
			continue
		}
		set.put(&Filter{Matcher: m, Severity: rule.Severity})
	}
	r.sets[scope] = set
	return set, nil
}

// Add inserts a filter or replaces the severity of an existing one with the same text.
func (r *Registry) Add(ctx context.Context, guildID string, scope model.ScopeKey, severity model.Severity, text string) (*Filter, error) {
	if scope.Kind != model.ScopeServer && scope.Kind != model.ScopeChannel {
		return nil, fmt.Errorf("filters cannot be attached to %s scope", scope.Kind)
	}
	if !severity.Valid() {
		return nil, fmt.Errorf("invalid severity %d", severity)
	}
	m, err := Compile(text)
	if err != nil {
		return nil, err
	}
	f := &Filter{Matcher: m, Severity: severity}

	r.mu.Lock()
	set, err := r.loadLocked(ctx, scope)
	if err != nil {
		r.mu.Unlock()
		return nil, err
	}
	err = r.store.SaveFilter(ctx, model.FilterRule{
		GuildID:  guildID,
		Scope:    scope.Kind,
		ScopeID:  scope.ID,
		Text:     text,
		Severity: severity,
	})
	if err != nil {
		r.mu.Unlock()
		return nil, fmt.Errorf("failed to save filter: %w", err)
	}
	set.put(f)
	hook := r.onChange
	r.mu.Unlock()

	if hook != nil {
		go hook(guildID, scope, f)
	}
	return f, nil
}

// Remove deletes a filter. It returns false and ErrFilterNotFound when no such filter existed.
func (r *Registry) Remove(ctx context.Context, scope model.ScopeKey, text string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existed, err := r.store.DeleteFilter(ctx, scope, text)
	if err != nil {
		return false, fmt.Errorf("failed to delete filter: %w", err)
	}
	if !existed {
		return false, fmt.Errorf("%w: %q in %s", ErrFilterNotFound, text, scope)
	}
	if set, ok := r.sets[scope]; ok {
		set.remove(text)
	}
	return true, nil
}

// DropScope removes every filter of a deleted channel or guild.
func (r *Registry) DropScope(ctx context.Context, scope model.ScopeKey) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, err := r.store.DeleteScopeFilters(ctx, scope)
	if err != nil {
		return 0, fmt.Errorf("failed to drop filters of %s: %w", scope, err)
	}
	delete(r.sets, scope)
	return n, nil
}

// Scopes returns the server scope followed by the channel scope, each with
// its filters, ready to pass to Resolve.
func (r *Registry) Scopes(ctx context.Context, guildID, channelID string) ([]ScopedFilters, error) {
	keys := []model.ScopeKey{model.ServerScope(guildID)}
	if channelID != "" {
		keys = append(keys, model.ChannelScope(channelID))
	}
	out := make([]ScopedFilters, 0, len(keys))
	for _, key := range keys {
		filters, err := r.Filters(ctx, key)
		if err != nil {
			return nil, err
		}
		out = append(out, ScopedFilters{Scope: key, Filters: filters})
	}
	return out, nil
}
