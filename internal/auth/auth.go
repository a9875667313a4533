// Package auth resolves the manager/leadership role from an externally
// configured allow-list. The domain logic only ever consumes the
// lifecycle.Authorizer interface, so role data never leaks into the
// state machine.
package auth

import "strings"

// AllowList answers IsManager from a fixed set of identities. Matching
// is case-insensitive on trimmed identities.
type AllowList struct {
	members map[string]struct{}
}

// NewAllowList builds an allow-list from configured identities. Blank
// entries are ignored.
func NewAllowList(identities []string) *AllowList {
	members := make(map[string]struct{}, len(identities))
	for _, id := range identities {
		id = strings.ToLower(strings.TrimSpace(id))
		if id != "" {
			members[id] = struct{}{}
		}
	}
	return &AllowList{members: members}
}

// IsManager reports whether identity is on the allow-list.
func (a *AllowList) IsManager(identity string) bool {
	_, ok := a.members[strings.ToLower(strings.TrimSpace(identity))]
	return ok
}

// Size returns the number of configured managers; main logs this at
// startup to catch an empty allow-list misconfiguration.
func (a *AllowList) Size() int { return len(a.members) }
