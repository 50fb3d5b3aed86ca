package auditledger

import (
	"context"
	"strings"
)

// Identity is the requester bound to a context: a wallet address and
// whether it belongs to an administrator.
type Identity struct {
	Address string
	IsAdmin bool
}

type identityKey struct{}

// WithIdentity binds who to ctx.
func WithIdentity(ctx context.Context, who Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, who)
}

// IdentityFrom returns the bound identity. It reports false when none is
// bound or the address is empty.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	who, ok := ctx.Value(identityKey{}).(Identity)
	if !ok || strings.TrimSpace(who.Address) == "" {
		return Identity{}, false
	}
	return who, true
}

// Owns reports whether who may act on a record owned by owner.
func (who Identity) Owns(owner string) bool {
	return who.IsAdmin || strings.EqualFold(strings.TrimSpace(who.Address), strings.TrimSpace(owner))
}

// AdminSet matches addresses case-insensitively.
type AdminSet map[string]struct{}

// NewAdminSet builds a set from addresses.
func NewAdminSet(addrs ...string) AdminSet {
	s := make(AdminSet, len(addrs))
	for _, a := range addrs {
		if a = strings.TrimSpace(a); a != "" {
			s[strings.ToLower(a)] = struct{}{}
		}
	}
	return s
}

// Contains reports whether addr is an administrator.
func (s AdminSet) Contains(addr string) bool {
	_, ok := s[strings.ToLower(strings.TrimSpace(addr))]
	return ok
}

// Identify returns the identity for addr.
func (s AdminSet) Identify(addr string) Identity {
	addr = strings.TrimSpace(addr)
	return Identity{Address: addr, IsAdmin: s.Contains(addr)}
}
