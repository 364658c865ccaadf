package mirror

import (
	"cmp"
	"fmt"
	"slices"
)

type ActionKind int

const (
	ActionDownload ActionKind = iota
	ActionUpdate
	ActionDelete
)

func (k ActionKind) String() string {
	switch k {
	case ActionDownload:
		return "Download"
	case ActionUpdate:
		return "Update"
	case ActionDelete:
		return "Delete"
	}
	return fmt.Sprintf("ActionKind(%d)", int(k))
}

// Action is a planned operation derived from a reconciliation pass. Never persisted.
type Action struct {
	Kind ActionKind
	ID   string
	Size int64 // remote size for transfers, last known remote size for deletes
}

func (a Action) IsTransfer() bool {
	return a.Kind == ActionDownload || a.Kind == ActionUpdate
}

func (a Action) String() string {
	return fmt.Sprintf("%s(%s)", a.Kind, a.ID)
}

// sortActions orders transfers by id, followed by deletes by id.
func sortActions(actions []Action) {
	slices.SortFunc(actions, func(a, b Action) int {
		if a.IsTransfer() != b.IsTransfer() {
			if a.IsTransfer() {
				return -1
			}
			return 1
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

// splitActions separates deletes from transfers, preserving order.
func splitActions(actions []Action) (deletes, transfers []Action) {
	for _, a := range actions {
		if a.IsTransfer() {
			transfers = append(transfers, a)
		} else {
			deletes = append(deletes, a)
		}
	}
	return deletes, transfers
}
