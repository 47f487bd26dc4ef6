package filter

import "navi/model"

// ScopedFilters pairs a scope instance with its filters.
type ScopedFilters struct {
	Scope   model.ScopeKey
	Filters []*Filter
}

// Violation is the single winning filter hit for a piece of content.
type Violation struct {
	Filter  *Filter
	Scope   model.ScopeKey
	Content string
}

// Severity is the severity of the winning filter.
func (v *Violation) Severity() model.Severity {
	return v.Filter.Severity
}

// Resolve returns the highest-severity filter matching content, or nil.
//
// Equal severities are broken by scope specificity (channel over server),
// then by the longer filter text, then by the lexicographically smaller text,
// so the result never depends on iteration order.
func Resolve(content string, scopes []ScopedFilters) *Violation {
	return resolve(content, scopes, "")
}

// ResolveName checks a display name. When only is non-nil, just that filter
// (by text) is considered.
func ResolveName(name string, scopes []ScopedFilters, only *Filter) *Violation {
	if name == "" {
		return nil
	}
	if only != nil {
		return resolve(name, scopes, only.Text())
	}
	return resolve(name, scopes, "")
}

func resolve(content string, scopes []ScopedFilters, only string) *Violation {
	var best *Violation
	for _, sc := range scopes {
		for _, f := range sc.Filters {
			if only != "" && f.Text() != only {
				continue
			}
			if !f.Matches(content) {
				continue
			}
			candidate := &Violation{Filter: f, Scope: sc.Scope, Content: content}
			if best == nil || outranks(candidate, best) {
				best = candidate
			}
		}
	}
	return best
}

func outranks(a, b *Violation) bool {
	if a.Filter.Severity != b.Filter.Severity {
		return a.Filter.Severity > b.Filter.Severity
	}
	if sa, sb := a.Scope.Kind.Specificity(), b.Scope.Kind.Specificity(); sa != sb {
		return sa > sb
	}
	if la, lb := len(a.Filter.Text()), len(b.Filter.Text()); la != lb {
		return la > lb
	}
	return a.Filter.Text() < b.Filter.Text()
}
