package identity

import (
	"maps"
	"reflect"
	"sort"
)

// Comparable is implemented by every identity record the audit engine
// diffs. Name/DomainID are used for the identity check (same_ids);
// Fields is used for the deep attribute check (same_resource).
type Comparable interface {
	// PrimaryKey returns the record's master/subcloud id.
	PrimaryKey() string
	// IdentityKey returns the (name, domain) pair used for same_ids.
	// Record types without a name return their own id as the name and an
	// empty domain (assignments: the synthetic id; revoke events: the
	// audit id; user revoke events: the user id).
	IdentityKey() (name string, domain string)
	// Fields returns a flat, comparable view of every attribute that
	// participates in same_resource, excluding the primary key itself.
	Fields() map[string]any
}

func (u User) PrimaryKey() string { return u.ID }
func (u User) IdentityKey() (string, string) {
	if u.LocalUser == nil {
		return "", u.DomainID
	}
	return u.LocalUser.Name, u.DomainID
}
func (u User) Fields() map[string]any {
	f := map[string]any{
		"domain_id":          u.DomainID,
		"enabled":            u.Enabled,
		"default_project_id": u.DefaultProjectID,
		"extra":              u.Extra,
	}
	if u.LocalUser != nil {
		f["local_user.name"] = u.LocalUser.Name
		f["local_user.domain_id"] = u.LocalUser.DomainID
		f["local_user.passwords"] = passwordSet(u.LocalUser.Passwords)
	}
	return f
}

// passwordSet normalizes a password history into an order-independent
// representation, since same_resource must treat the sets as equal
// "modulo order" (spec.md §4.5).
func passwordSet(passwords []Password) []Password {
	out := make([]Password, len(passwords))
	copy(out, passwords)
	sort.Slice(out, func(i, j int) bool {
		return out[i].PasswordHash < out[j].PasswordHash
	})
	return out
}

func (p Project) PrimaryKey() string              { return p.ID }
func (p Project) IdentityKey() (string, string)    { return p.Name, p.DomainID }
func (p Project) Fields() map[string]any {
	return map[string]any{
		"domain_id":   p.DomainID,
		"name":        p.Name,
		"description": p.Description,
		"enabled":     p.Enabled,
		"parent_id":   p.ParentID,
		"is_domain":   p.IsDomain,
		"extra":       p.Extra,
	}
}

func (r Role) PrimaryKey() string           { return r.ID }
func (r Role) IdentityKey() (string, string) { return r.Name, r.DomainKey() }
func (r Role) Fields() map[string]any {
	return map[string]any{
		"domain_id": r.DomainKey(),
		"name":      r.Name,
		"extra":     r.Extra,
	}
}

func (a Assignment) PrimaryKey() string           { return a.SyntheticID() }
func (a Assignment) IdentityKey() (string, string) { return a.SyntheticID(), "" }
func (a Assignment) Fields() map[string]any {
	return map[string]any{
		"type":      a.Type,
		"actor_id":  a.ActorID,
		"target_id": a.TargetID,
		"role_id":   a.RoleID,
		"inherited": a.Inherited,
	}
}

func (e RevokeEvent) PrimaryKey() string { return e.AuditID }
func (e RevokeEvent) IdentityKey() (string, string) {
	return e.AuditID, ""
}
func (e RevokeEvent) Fields() map[string]any {
	return map[string]any{
		"domain_id":       e.DomainID,
		"project_id":      e.ProjectID,
		"user_id":         e.UserID,
		"role_id":         e.RoleID,
		"trust_id":        e.TrustID,
		"consumer_id":     e.ConsumerID,
		"access_token_id": e.AccessTokenID,
		"issued_before":   e.IssuedBefore,
		"revoked_at":      e.RevokedAt,
		"audit_chain_id":  e.AuditChainID,
	}
}

// UserRevokeEvent adapts RevokeEvent for the user_revoke_events audit pass
// (spec.md §4.4, §4.5): events generated by a password change carry a
// user_id but no audit_id, and get_resource_id for this resource type uses
// user_id as the record's id rather than audit_id (original source's
// get_resource_id). Field-level equality (Fields) is unchanged from
// RevokeEvent, matching the source's _has_same_revoke_event_ids, which
// delegates to the same full-column comparison for both resource types.
type UserRevokeEvent struct {
	RevokeEvent
}

func (e UserRevokeEvent) PrimaryKey() string { return e.UserID }
func (e UserRevokeEvent) IdentityKey() (string, string) {
	return e.UserID, ""
}

// SameIDs implements the cheap identity check from spec.md §4.5:
// "(name, domain_id) match or primary-key match".
func SameIDs[T Comparable](m, s T) bool {
	if m.PrimaryKey() != "" && m.PrimaryKey() == s.PrimaryKey() {
		return true
	}
	mName, mDomain := m.IdentityKey()
	sName, sDomain := s.IdentityKey()
	if mName == "" && sName == "" {
		return false
	}
	return mName == sName && mDomain == sDomain
}

// SameResource implements the deep field-by-field comparison from
// spec.md §4.5, including (for users) the hashed password set.
func SameResource[T Comparable](m, s T) bool {
	return maps.EqualFunc(m.Fields(), s.Fields(), reflect.DeepEqual)
}
