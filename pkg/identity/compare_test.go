package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSameIDs_PrimaryKeyMatch(t *testing.T) {
	a := User{ID: "u1", DomainID: "d1"}
	b := User{ID: "u1", DomainID: "d1"}
	assert.True(t, SameIDs(a, b))
}

func TestSameIDs_PrimaryKeyMismatch(t *testing.T) {
	a := User{ID: "u1", DomainID: "d1"}
	b := User{ID: "u2", DomainID: "d1"}
	assert.False(t, SameIDs(a, b))
}

func TestSameIDs_RoleDomainSentinel(t *testing.T) {
	// Different primary keys but matching (name, domain) identity key.
	a := Role{ID: "r1", Name: "admin", DomainID: ""}
	b := Role{ID: "r2", Name: "admin", DomainID: ""}
	assert.True(t, SameIDs(a, b))

	c := Role{ID: "r3", Name: "admin", DomainID: "d1"}
	assert.False(t, SameIDs(a, c))
}

func TestSameIDs_AssignmentComposite(t *testing.T) {
	a := Assignment{Type: AssignmentUserProject, ActorID: "u1", TargetID: "p1", RoleID: "r1"}
	b := Assignment{Type: AssignmentUserProject, ActorID: "u1", TargetID: "p1", RoleID: "r1", Inherited: true}
	// primary key excludes Inherited, so these should still match on IDs
	assert.True(t, SameIDs(a, b))

	c := Assignment{Type: AssignmentUserProject, ActorID: "u2", TargetID: "p1", RoleID: "r1"}
	assert.False(t, SameIDs(a, c))
}

func TestSameResource_FieldsEqual(t *testing.T) {
	a := Project{ID: "p1", DomainID: "d1", Name: "alpha", Enabled: true}
	b := Project{ID: "p1", DomainID: "d1", Name: "alpha", Enabled: true}
	assert.True(t, SameResource(a, b))
}

func TestSameResource_FieldsMismatch(t *testing.T) {
	a := Project{ID: "p1", DomainID: "d1", Name: "alpha", Enabled: true}
	b := Project{ID: "p1", DomainID: "d1", Name: "beta", Enabled: true}
	assert.False(t, SameResource(a, b))
}

func TestSameResource_UserPasswordOrderIndependent(t *testing.T) {
	p1 := Password{PasswordHash: "h1", SelfService: false, CreatedAtInt: 1, ExpiresAtInt: 2}
	p2 := Password{PasswordHash: "h2", SelfService: true, CreatedAtInt: 3, ExpiresAtInt: 4}

	a := User{
		ID: "u1", DomainID: "d1", Enabled: true,
		LocalUser: &LocalUser{Name: "admin", UserID: "u1", DomainID: "d1", Passwords: []Password{p1, p2}},
	}
	b := User{
		ID: "u1", DomainID: "d1", Enabled: true,
		LocalUser: &LocalUser{Name: "admin", UserID: "u1", DomainID: "d1", Passwords: []Password{p2, p1}},
	}
	assert.True(t, SameResource(a, b), "password history order should not affect resource equality")
}

func TestSameResource_UserPasswordContentDiffers(t *testing.T) {
	p1 := Password{PasswordHash: "h1", SelfService: false, CreatedAtInt: 1, ExpiresAtInt: 2}
	p3 := Password{PasswordHash: "h3", SelfService: false, CreatedAtInt: 1, ExpiresAtInt: 2}

	a := User{ID: "u1", DomainID: "d1", LocalUser: &LocalUser{Name: "admin", Passwords: []Password{p1}}}
	b := User{ID: "u1", DomainID: "d1", LocalUser: &LocalUser{Name: "admin", Passwords: []Password{p3}}}
	assert.False(t, SameResource(a, b))
}

func TestRoleDomainKey_SentinelForEmptyDomain(t *testing.T) {
	r := Role{ID: "r1"}
	assert.Equal(t, NullDomainSentinel, r.DomainKey())

	r2 := Role{ID: "r1", DomainID: "d1"}
	assert.Equal(t, "d1", r2.DomainKey())
}

func TestAssignment_SyntheticID(t *testing.T) {
	a := Assignment{ActorID: "u1", TargetID: "p1", RoleID: "r1"}
	assert.Equal(t, "p1_u1_r1", a.SyntheticID())
}

func TestUser_IsAdmin(t *testing.T) {
	a := User{LocalUser: &LocalUser{Name: "admin"}}
	assert.True(t, a.IsAdmin())

	b := User{LocalUser: &LocalUser{Name: "alice"}}
	assert.False(t, b.IsAdmin())

	c := User{}
	assert.False(t, c.IsAdmin())
}
