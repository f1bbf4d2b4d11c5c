package gate

import (
	"context"
	"slices"
	"sync"
)

// Profile is a named group of permissions assigned to users.
type Profile interface {
	ID() uint
	Name() string
	HasPermission(permission Permission) bool
	Permissions() []Permission
}

// ProfileResolver finds the profile of a user. (nil, nil) means the user
// has none.
type ProfileResolver[U any] interface {
	Resolve(ctx context.Context, user U) (Profile, error)
}

// StaticProfile lives in memory. Tests use it.
type StaticProfile struct {
	id    uint
	name  string
	perms []Permission
}

// NewStaticProfile sorts and dedupes permissions.
func NewStaticProfile(id uint, name string, permissions ...Permission) *StaticProfile {
	perms := slices.Clone(permissions)
	slices.Sort(perms)
	return &StaticProfile{id: id, name: name, perms: slices.Compact(perms)}
}

func (p *StaticProfile) ID() uint                  { return p.id }
func (p *StaticProfile) Name() string              { return p.name }
func (p *StaticProfile) Permissions() []Permission { return slices.Clone(p.perms) }

func (p *StaticProfile) HasPermission(requested Permission) bool {
	return grants(p.perms, requested)
}

// grants reports whether any of perms, wildcards included, covers requested.
func grants(perms []Permission, requested Permission) bool {
	return slices.ContainsFunc(perms, func(perm Permission) bool { return perm.Matches(requested) })
}

// StaticResolver maps users to profiles in memory.
type StaticResolver[U comparable] struct {
	mu       sync.RWMutex
	profiles map[U]Profile
}

func NewStaticResolver[U comparable]() *StaticResolver[U] {
	return &StaticResolver[U]{profiles: make(map[U]Profile)}
}

func (r *StaticResolver[U]) Set(user U, profile Profile) {
	r.mu.Lock()
	r.profiles[user] = profile
	r.mu.Unlock()
}

func (r *StaticResolver[U]) Resolve(_ context.Context, user U) (Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.profiles[user], nil
}
