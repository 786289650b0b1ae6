package kiln

import "fmt"

// canEdit checks if an item's draft can be replaced in its current state.
// Returns true if the edit is allowed, false with an error otherwise.
func canEdit(state ItemState) (bool, error) {
	switch state {
	case StateDraftOnly, StatePublished, StatePublishedWithPendingDraft:
		return true, nil
	case StateDeleted:
		return false, fmt.Errorf("%w: item is deleted; restore it before editing (state: %s)", ErrConflict, state)
	default:
		return false, fmt.Errorf("%w: unknown state %s", ErrInvariantViolation, state)
	}
}

// canPublish checks if an item's draft can be published in its current
// state. Publishing an already-published item with no pending draft is a
// no-op upstream, not a conflict here.
func canPublish(state ItemState) (bool, error) {
	switch state {
	case StateDraftOnly, StatePublished, StatePublishedWithPendingDraft:
		return true, nil
	case StateDeleted:
		return false, fmt.Errorf("%w: item is deleted; restore it before publishing (state: %s)", ErrConflict, state)
	default:
		return false, fmt.Errorf("%w: unknown state %s", ErrInvariantViolation, state)
	}
}

// canUnpublish checks if an item's published document can be withdrawn.
func canUnpublish(state ItemState) (bool, error) {
	switch state {
	case StatePublished, StatePublishedWithPendingDraft:
		return true, nil
	case StateDraftOnly:
		return false, fmt.Errorf("%w: item has never been published (state: %s)", ErrConflict, state)
	case StateDeleted:
		return false, fmt.Errorf("%w: item is deleted (state: %s)", ErrConflict, state)
	default:
		return false, fmt.Errorf("%w: unknown state %s", ErrInvariantViolation, state)
	}
}

// canRevert checks if an item can be reverted to a ledger revision.
func canRevert(state ItemState) (bool, error) {
	switch state {
	case StateDraftOnly, StatePublished, StatePublishedWithPendingDraft:
		return true, nil
	case StateDeleted:
		return false, fmt.Errorf("%w: item is deleted; restore it before reverting (state: %s)", ErrConflict, state)
	default:
		return false, fmt.Errorf("%w: unknown state %s", ErrInvariantViolation, state)
	}
}

// canSoftDelete checks if an item can be moved to its tombstone. Any live
// state may be deleted; deleting twice is a conflict.
func canSoftDelete(state ItemState) (bool, error) {
	switch state {
	case StateDraftOnly, StatePublished, StatePublishedWithPendingDraft:
		return true, nil
	case StateDeleted:
		return false, fmt.Errorf("%w: item is already deleted (state: %s)", ErrConflict, state)
	default:
		return false, fmt.Errorf("%w: unknown state %s", ErrInvariantViolation, state)
	}
}
