package mirror

import (
	"fmt"
	"slices"
	"strings"
)

// Plan is the outcome of reconciling one pass.
type Plan struct {
	Changes   []*FileRecord // records whose status or size changed, ordered by id
	Actions   []Action      // transfers by id, then deletes by id
	Unchanged int
	Ignored   int
}

func (p *Plan) HasActions() bool {
	return len(p.Actions) > 0
}

// Count returns the number of planned actions of the given kind.
func (p *Plan) Count(kind ActionKind) int {
	n := 0
	for _, a := range p.Actions {
		if a.Kind == kind {
			n++
		}
	}
	return n
}

// Diff computes status transitions and actions from the persisted records,
// the remote snapshot and the local snapshot. It is a pure function: records
// are not mutated and the output depends only on the inputs.
func Diff(records []*FileRecord, remote RemoteSnapshot, local LocalSnapshot, filter *Filter) (*Plan, error) {
	plan := &Plan{}
	byID := make(map[string]*FileRecord, len(records)+len(remote))
	changed := make(map[string]struct{})

	for _, rec := range records {
		byID[rec.ID] = rec.Clone()
	}

	// remote observations
	for id, size := range remote {
		if !filter.Allows(id) {
			plan.Ignored++
			continue
		}

		rec, exists := byID[id]
		if !exists {
			byID[id] = NewFileRecord(id, StatusNotDownloaded, size)
			changed[id] = struct{}{}
			continue
		}

		switch rec.Status {
		case StatusNotDownloaded, StatusDownloaded, StatusUpdated:
			if !rec.HasRemoteSize(size) {
				rec.Status = StatusUpdated
				rec.RemoteSize = sizePtr(size)
				changed[id] = struct{}{}
			}
		case StatusDeleted:
			// reappeared on the remote before the local copy was removed
			rec.Status = StatusUpdated
			rec.RemoteSize = sizePtr(size)
			changed[id] = struct{}{}
		default:
			return nil, fmt.Errorf("reconcile %s: unhandled status %s", id, rec.Status)
		}
	}

	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	// remote removals, local drift, and action derivation
	for _, id := range ids {
		rec := byID[id]
		if !filter.Allows(id) {
			continue
		}
		_, onRemote := remote[id]

		switch rec.Status {
		case StatusDownloaded:
			if !onRemote {
				rec.Status = StatusDeleted
				changed[id] = struct{}{}
			} else if !local.Has(id) {
				rec.Status = StatusNotDownloaded
				changed[id] = struct{}{}
			}
		case StatusNotDownloaded, StatusUpdated, StatusDeleted:
		default:
			return nil, fmt.Errorf("reconcile %s: unhandled status %s", id, rec.Status)
		}

		switch rec.Status {
		case StatusNotDownloaded:
			if onRemote {
				plan.Actions = append(plan.Actions, Action{Kind: ActionDownload, ID: id, Size: remote[id]})
			}
		case StatusUpdated:
			if onRemote {
				plan.Actions = append(plan.Actions, Action{Kind: ActionUpdate, ID: id, Size: remote[id]})
			}
		case StatusDeleted:
			plan.Actions = append(plan.Actions, Action{Kind: ActionDelete, ID: id, Size: rec.Size()})
		case StatusDownloaded:
			plan.Unchanged++
		}

		if _, ok := changed[id]; ok {
			plan.Changes = append(plan.Changes, rec)
		}
	}

	sortActions(plan.Actions)
	return plan, nil
}

// Reconcile runs Diff against the store and persists the resulting
// transitions atomically. Any store error aborts the pass with nothing written.
func Reconcile(store Store, remote RemoteSnapshot, local LocalSnapshot, filter *Filter) (*Plan, error) {
	records, err := store.ScanAll()
	if err != nil {
		return nil, fmt.Errorf("read state: %w", err)
	}

	plan, err := Diff(records, remote, local, filter)
	if err != nil {
		return nil, err
	}

	if err := store.UpsertAll(plan.Changes); err != nil {
		return nil, fmt.Errorf("persist state: %w", err)
	}
	return plan, nil
}

// String renders a plan for debug logs.
func (p *Plan) String() string {
	var b strings.Builder
	for i, a := range p.Actions {
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString(a.String())
	}
	return b.String()
}
