// Package audit implements the convergence algorithm of spec.md §4.5: for
// each resource type, list both clouds, diff by identity and then by deep
// field equality, and enqueue the minimal set of create/update/delete
// work items needed to converge the subcloud onto the master.
//
// Diff is the pure half of the algorithm (no I/O, fully unit-testable);
// Engine (engine.go) is the impure driver that lists both clouds, resolves
// mappings, and enqueues work.
package audit

import "github.com/distributedcloud/identity-sync-engine/pkg/identity"

// ActionKind is the verdict Diff reaches for one master or subcloud
// record.
type ActionKind int

const (
	// ActionCreate means no subcloud counterpart exists; enqueue a
	// create keyed by the master id.
	ActionCreate ActionKind = iota
	// ActionUpdate means a subcloud counterpart exists by identity but
	// differs by attributes; enqueue an update.
	ActionUpdate
	// ActionEnsureMapping means master and subcloud already agree;
	// confirm the mapping row exists and mark in-sync.
	ActionEnsureMapping
	// ActionAdopt means map_subcloud_resource succeeded: a subcloud
	// record with no mapping matched the master record by deep equality
	// and is adopted instead of recreated.
	ActionAdopt
	// ActionUnmatchedSubcloud means a subcloud record had no master
	// counterpart by identity; the driver enqueues a delete when it has a
	// mapping and leaves it alone otherwise.
	ActionUnmatchedSubcloud
)

// Action is one diff verdict. MasterID/SubcloudID are primary keys, left
// empty when not applicable to this Kind.
type Action struct {
	Kind       ActionKind
	MasterID   string
	SubcloudID string
}

// Diff implements spec.md §4.5's per-resource-type algorithm, pure of any
// I/O: master and subcloud are already-filtered record sets (exclusion
// lists and, for assignments, domain-scope filtering are applied by the
// caller via keep).
func Diff[T identity.Comparable](master, subcloud []T, keep func(T) bool) []Action {
	m := filterKeep(master, keep)
	s := filterKeep(subcloud, keep)

	matchedSubcloud := make(map[string]bool, len(s))
	actions := make([]Action, 0, len(m)+len(s))

	for _, mr := range m {
		match, found := findSameIDs(mr, s, matchedSubcloud)
		if !found {
			if adopted, ok := findAdoption(mr, s, matchedSubcloud); ok {
				matchedSubcloud[adopted.PrimaryKey()] = true
				actions = append(actions, Action{
					Kind: ActionAdopt, MasterID: mr.PrimaryKey(), SubcloudID: adopted.PrimaryKey(),
				})
				continue
			}
			actions = append(actions, Action{Kind: ActionCreate, MasterID: mr.PrimaryKey()})
			continue
		}

		matchedSubcloud[match.PrimaryKey()] = true
		if identity.SameResource(mr, match) {
			actions = append(actions, Action{
				Kind: ActionEnsureMapping, MasterID: mr.PrimaryKey(), SubcloudID: match.PrimaryKey(),
			})
		} else {
			actions = append(actions, Action{
				Kind: ActionUpdate, MasterID: mr.PrimaryKey(), SubcloudID: match.PrimaryKey(),
			})
		}
	}

	for _, sr := range s {
		if matchedSubcloud[sr.PrimaryKey()] {
			continue
		}
		actions = append(actions, Action{Kind: ActionUnmatchedSubcloud, SubcloudID: sr.PrimaryKey()})
	}

	return actions
}

func filterKeep[T identity.Comparable](records []T, keep func(T) bool) []T {
	if keep == nil {
		return records
	}
	out := make([]T, 0, len(records))
	for _, r := range records {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

func findSameIDs[T identity.Comparable](m T, s []T, matched map[string]bool) (T, bool) {
	for _, sr := range s {
		if matched[sr.PrimaryKey()] {
			continue
		}
		if identity.SameIDs(m, sr) {
			return sr, true
		}
	}
	var zero T
	return zero, false
}

// findAdoption implements map_subcloud_resource (spec.md §4.5): any
// unmapped subcloud record that is a deep-equal match for m, regardless
// of identity-key agreement.
func findAdoption[T identity.Comparable](m T, s []T, matched map[string]bool) (T, bool) {
	for _, sr := range s {
		if matched[sr.PrimaryKey()] {
			continue
		}
		if identity.SameResource(m, sr) {
			return sr, true
		}
	}
	var zero T
	return zero, false
}

// NotExcluded builds a keep predicate from an exclusion-list of names,
// matched against T's IdentityKey name component (spec.md §4.5 exclusion
// lists).
func NotExcluded[T identity.Comparable](excluded []string) func(T) bool {
	if len(excluded) == 0 {
		return nil
	}
	set := make(map[string]bool, len(excluded))
	for _, n := range excluded {
		set[n] = true
	}
	return func(r T) bool {
		name, _ := r.IdentityKey()
		return !set[name]
	}
}
