package gate

import (
	"context"
	"sync"
)

// Profile represents a role with a set of permissions.
type Profile interface {
	ID() uint
	Name() string
	HasPermission(permission Permission) bool
	Permissions() []Permission
}

// ProfileResolver resolves a user to their profile.
// U is the user type (e.g., uint for userID, *User for full user struct).
type ProfileResolver[U any] interface {
	Resolve(ctx context.Context, user U) (Profile, error)
}

// StaticProfile is an in-memory profile.
type StaticProfile struct {
	id    uint
	name  string
	perms Set
}

// NewStaticProfile creates a profile with the given permissions.
func NewStaticProfile(id uint, name string, permissions ...Permission) *StaticProfile {
	return &StaticProfile{id: id, name: name, perms: NewSet(permissions...)}
}

func (p *StaticProfile) ID() uint     { return p.id }
func (p *StaticProfile) Name() string { return p.name }

func (p *StaticProfile) Permissions() []Permission { return p.perms.List() }

// HasPermission checks the requested permission with wildcard matching.
func (p *StaticProfile) HasPermission(requested Permission) bool {
	return p.perms.Covers(requested)
}

// OverlayProfile adjusts a base profile for one user. Revocations win over
// grants, grants win over the base profile. A nil base grants nothing.
type OverlayProfile struct {
	base    Profile
	grants  Set
	revokes Set
}

// NewOverlayProfile layers per-user grants and revocations over base.
func NewOverlayProfile(base Profile, grants, revokes []Permission) *OverlayProfile {
	return &OverlayProfile{base: base, grants: NewSet(grants...), revokes: NewSet(revokes...)}
}

func (p *OverlayProfile) ID() uint {
	if p.base == nil {
		return 0
	}
	return p.base.ID()
}

func (p *OverlayProfile) Name() string {
	if p.base == nil {
		return ""
	}
	return p.base.Name()
}

func (p *OverlayProfile) HasPermission(requested Permission) bool {
	if p.revokes.Covers(requested) {
		return false
	}
	if p.grants.Covers(requested) {
		return true
	}
	return p.base != nil && p.base.HasPermission(requested)
}

// Permissions lists base permissions plus grants, minus exact revocations.
func (p *OverlayProfile) Permissions() []Permission {
	all := NewSet(p.grants.List()...)
	if p.base != nil {
		for _, perm := range p.base.Permissions() {
			all[perm] = struct{}{}
		}
	}
	for perm := range p.revokes {
		delete(all, perm)
	}
	return all.List()
}

// StaticResolver is an in-memory resolver, mostly for tests.
type StaticResolver[U comparable] struct {
	mu       sync.RWMutex
	profiles map[U]Profile
}

// NewStaticResolver creates a resolver with predefined user-profile mappings.
func NewStaticResolver[U comparable]() *StaticResolver[U] {
	return &StaticResolver[U]{profiles: make(map[U]Profile)}
}

// Set assigns a profile to a user.
func (r *StaticResolver[U]) Set(user U, profile Profile) {
	r.mu.Lock()
	r.profiles[user] = profile
	r.mu.Unlock()
}

// Resolve returns the profile for the given user, nil when unknown.
func (r *StaticResolver[U]) Resolve(_ context.Context, user U) (Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.profiles[user], nil
}
