package gate

import "strings"

// Permission is a capability on a resource type.
// Format: "resource:action" (e.g., "offer:approve", "discount:apply_high").
type Permission string

// NewPermission creates a permission from resource type and action.
func NewPermission(resourceType string, action Action) Permission {
	return Permission(resourceType + ":" + string(action))
}

// ParsePermission validates a "resource:action" string.
func ParsePermission(s string) (Permission, error) {
	res, act, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || res == "" || act == "" || strings.Contains(act, ":") {
		return "", ErrMalformedPermission
	}
	return NewPermission(res, Action(act)), nil
}

// Parse splits a permission into resource type and action.
func (p Permission) Parse() (resourceType string, action Action) {
	parts := strings.SplitN(string(p), ":", 2)
	if len(parts) != 2 {
		return "", ""
	}
	return parts[0], Action(parts[1])
}

// Wildcards for super permissions
const (
	WildcardAll                     = "*"
	PermissionSuperAdmin Permission = "*:*"
)

// Matches checks if this permission covers a requested permission.
// "*:*" covers everything, "offer:*" covers every offer action.
func (p Permission) Matches(requested Permission) bool {
	if p == PermissionSuperAdmin || p == requested {
		return true
	}
	res, act := p.Parse()
	reqRes, _ := requested.Parse()
	return res == reqRes && string(act) == WildcardAll
}

// Set is a collection of permissions checked with wildcard matching.
type Set map[Permission]struct{}

// NewSet builds a set from the given permissions.
func NewSet(perms ...Permission) Set {
	s := make(Set, len(perms))
	for _, p := range perms {
		s[p] = struct{}{}
	}
	return s
}

// Covers reports whether any permission in the set matches requested.
func (s Set) Covers(requested Permission) bool {
	if _, ok := s[requested]; ok {
		return true
	}
	for p := range s {
		if p.Matches(requested) {
			return true
		}
	}
	return false
}

// List returns the permissions of the set in no particular order.
func (s Set) List() []Permission {
	out := make([]Permission, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	return out
}
