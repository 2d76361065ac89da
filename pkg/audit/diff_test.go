package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/distributedcloud/identity-sync-engine/pkg/identity"
)

func TestDiff_Create(t *testing.T) {
	master := []identity.Project{{ID: "p1", Name: "alpha", DomainID: "d1"}}
	subcloud := []identity.Project{}

	actions := Diff(master, subcloud, nil)

	assert.Len(t, actions, 1)
	assert.Equal(t, ActionCreate, actions[0].Kind)
	assert.Equal(t, "p1", actions[0].MasterID)
}

func TestDiff_EnsureMapping_WhenIdenticalByIDAndFields(t *testing.T) {
	master := []identity.Project{{ID: "p1", Name: "alpha", DomainID: "d1", Enabled: true}}
	subcloud := []identity.Project{{ID: "p1", Name: "alpha", DomainID: "d1", Enabled: true}}

	actions := Diff(master, subcloud, nil)

	assert.Len(t, actions, 1)
	assert.Equal(t, ActionEnsureMapping, actions[0].Kind)
}

func TestDiff_Update_WhenSameIdentityDifferentFields(t *testing.T) {
	master := []identity.Project{{ID: "p1", Name: "alpha", DomainID: "d1", Enabled: true}}
	subcloud := []identity.Project{{ID: "p1", Name: "alpha", DomainID: "d1", Enabled: false}}

	actions := Diff(master, subcloud, nil)

	assert.Len(t, actions, 1)
	assert.Equal(t, ActionUpdate, actions[0].Kind)
	assert.Equal(t, "p1", actions[0].MasterID)
	assert.Equal(t, "p1", actions[0].SubcloudID)
}

func TestDiff_Adopt_WhenUnmappedButDeepEqual(t *testing.T) {
	// RevokeEvent's PrimaryKey/IdentityKey are both the AuditID, but
	// Fields() excludes AuditID. So two records with different AuditIDs
	// but otherwise-identical attributes fail SameIDs yet pass
	// SameResource, exercising the adoption path rather than create.
	master := []identity.RevokeEvent{{AuditID: "master-audit-1", DomainID: "d1", UserID: "u1"}}
	subcloud := []identity.RevokeEvent{{AuditID: "subcloud-audit-1", DomainID: "d1", UserID: "u1"}}

	actions := Diff(master, subcloud, nil)

	assert.Len(t, actions, 1)
	assert.Equal(t, ActionAdopt, actions[0].Kind)
	assert.Equal(t, "master-audit-1", actions[0].MasterID)
	assert.Equal(t, "subcloud-audit-1", actions[0].SubcloudID)
}

func TestDiff_CreateAndUnmatched_WhenNameDiffers(t *testing.T) {
	master := []identity.Project{{ID: "master-p1", Name: "alpha", DomainID: "d1", Enabled: true, Description: "x"}}
	subcloud := []identity.Project{{ID: "subcloud-p1", Name: "renamed", DomainID: "d1", Enabled: true, Description: "x"}}

	actions := Diff(master, subcloud, nil)

	// Names differ, so SameIDs fails; Fields() also differ (name is part
	// of Fields), so this is neither an adoption nor ensure-mapping case:
	// it surfaces as a create plus an unmatched subcloud record.
	assert.Len(t, actions, 2)
	kinds := map[ActionKind]int{}
	for _, a := range actions {
		kinds[a.Kind]++
	}
	assert.Equal(t, 1, kinds[ActionCreate])
	assert.Equal(t, 1, kinds[ActionUnmatchedSubcloud])
}

func TestDiff_UnmatchedSubcloud(t *testing.T) {
	master := []identity.Project{}
	subcloud := []identity.Project{{ID: "p1", Name: "alpha", DomainID: "d1"}}

	actions := Diff(master, subcloud, nil)

	assert.Len(t, actions, 1)
	assert.Equal(t, ActionUnmatchedSubcloud, actions[0].Kind)
	assert.Equal(t, "p1", actions[0].SubcloudID)
}

func TestDiff_KeepFilterExcludesRecords(t *testing.T) {
	master := []identity.Project{
		{ID: "p1", Name: "alpha", DomainID: "d1"},
		{ID: "p2", Name: "excluded-me", DomainID: "d1"},
	}
	keep := NotExcluded[identity.Project]([]string{"excluded-me"})

	actions := Diff(master, nil, keep)

	assert.Len(t, actions, 1)
	assert.Equal(t, "p1", actions[0].MasterID)
}

func TestNotExcluded_NilWhenEmptyList(t *testing.T) {
	assert.Nil(t, NotExcluded[identity.Project](nil))
}
