// Package identity holds the identity resource record shapes transported
// by the dbsync protocol (spec.md §3) and the pure identity/attribute
// comparison functions the audit engine uses (spec.md §4.5).
//
// The source models these as ORM rows with cascading relationships
// (User -> LocalUser -> Password). Per spec.md §9 this port represents
// the cascade as value types composed by value: a User simply owns its
// LocalUser by value, which owns its Passwords by value. There is no
// session, no lazy loading and no separate delete-orphan step — deleting
// a User record deletes the whole value.
package identity

import "time"

// ResourceType names an identity resource kind as it appears in OrchJob
// rows and exclusion-list configuration.
type ResourceType string

const (
	ResourceTypeUser          ResourceType = "users"
	ResourceTypeProject       ResourceType = "projects"
	ResourceTypeRole          ResourceType = "roles"
	ResourceTypeAssignment    ResourceType = "assignments"
	ResourceTypeRevokeEvent   ResourceType = "revoke_events"
	ResourceTypeUserRevokeEvt ResourceType = "user_revoke_events"
)

// AuditOrder is the fixed, referential-dependency-respecting order the
// audit engine walks resource types in (spec.md §4.5, §5).
var AuditOrder = []ResourceType{
	ResourceTypeUser,
	ResourceTypeProject,
	ResourceTypeRole,
	ResourceTypeAssignment,
	ResourceTypeRevokeEvent,
	ResourceTypeUserRevokeEvt,
}

// NullDomainSentinel stands in for "no domain" in role uniqueness checks,
// since SQL unique constraints generally can't span a NULL column
// (spec.md §3: "a sentinel string represents 'null domain' for
// uniqueness").
const NullDomainSentinel = "<<null-domain>>"

// Password is one entry in a LocalUser's password history.
type Password struct {
	PasswordHash string
	SelfService  bool
	CreatedAtInt int64
	ExpiresAtInt int64
}

// LocalUser is the local-auth sub-record of a User, owned by value.
type LocalUser struct {
	Name           string
	UserID         string
	DomainID       string
	FailedAuthCount int
	FailedAuthAt   *time.Time
	Passwords      []Password
}

// User is the identity user record transported verbatim between clouds
// (spec.md §3), not the identity-API's public DTO.
type User struct {
	ID               string
	DomainID         string
	Enabled          bool
	DefaultProjectID string
	Extra            map[string]any
	CreatedAt        *time.Time
	LastActiveAt     *time.Time
	LocalUser        *LocalUser
}

// IsAdmin reports whether this is the bootstrap "admin" local user, whose
// update handler must invalidate the cached subcloud session afterwards
// (spec.md §4.4 users.update).
func (u User) IsAdmin() bool {
	return u.LocalUser != nil && u.LocalUser.Name == "admin"
}

// Project is the identity project record.
type Project struct {
	ID          string
	DomainID    string
	Name        string
	Description string
	Enabled     bool
	ParentID    string
	IsDomain    bool
	Extra       map[string]any
}

// Role is the identity role record.
type Role struct {
	ID       string
	DomainID string
	Name     string
	Extra    map[string]any
}

// DomainKey returns the role's domain id, or NullDomainSentinel when the
// role has no domain (spec.md §3).
func (r Role) DomainKey() string {
	if r.DomainID == "" {
		return NullDomainSentinel
	}
	return r.DomainID
}

// AssignmentType enumerates the four shapes an Assignment can take.
type AssignmentType string

const (
	AssignmentUserProject  AssignmentType = "UserProject"
	AssignmentGroupProject AssignmentType = "GroupProject"
	AssignmentUserDomain   AssignmentType = "UserDomain"
	AssignmentGroupDomain  AssignmentType = "GroupDomain"
)

// IsDomainScoped reports whether this assignment's target is a domain
// rather than a project; the audit engine skips domain-scoped assignments
// entirely (spec.md §4.5).
func (t AssignmentType) IsDomainScoped() bool {
	return t == AssignmentUserDomain || t == AssignmentGroupDomain
}

// Assignment is the role-assignment record. Its backend primary key is the
// whole tuple (spec.md §3); PrimaryKey and SyntheticID, used for addressing
// and diffing, cover target, actor and role only, not Type or Inherited.
type Assignment struct {
	Type      AssignmentType
	ActorID   string
	TargetID  string
	RoleID    string
	Inherited bool
}

// SyntheticID builds the composite identifier dcorch uses to address an
// assignment over the dbsync protocol and as its OrchJob.source_resource_id
// (spec.md §4.4, §6): "{target}_{actor}_{role}".
func (a Assignment) SyntheticID() string {
	return a.TargetID + "_" + a.ActorID + "_" + a.RoleID
}

// RevokeEvent is a token-revocation record.
type RevokeEvent struct {
	ID            int64
	DomainID      string
	ProjectID     string
	UserID        string
	RoleID        string
	TrustID       string
	ConsumerID    string
	AccessTokenID string
	IssuedBefore  time.Time
	ExpiresAt     *time.Time
	RevokedAt     time.Time
	AuditID       string
	AuditChainID  string
}
