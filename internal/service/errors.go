package service

import (
	"errors"

	"github.com/Harshitk-cp/epistemic/internal/store"
)

var (
	ErrEmbeddingMissing     = errors.New("embedding is required")
	ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")
	ErrEntityNotFound       = errors.New("entity not found")
	ErrNotAuthorized        = errors.New("not authorized")
	ErrInvalidState         = errors.New("invalid state")
	ErrOutOfRange           = errors.New("value out of range")
	ErrInvalidEntityType    = errors.New("invalid entity type")
	ErrInvalidNoteType      = errors.New("invalid note type")
	ErrInvalidNoteTarget    = errors.New("exactly one of post_id or fact_claim_id is required")
	ErrInvalidAppealOutcome = errors.New("appeal outcome must be upheld or rejected")
	ErrDependencyExists     = errors.New("argument already depends on this fact")
	ErrContentMissing       = errors.New("content is required")
	ErrTargetAuthorUnknown  = errors.New("author of the noted post could not be resolved")
)

// notFound maps the store's missing-row error onto ErrEntityNotFound.
func notFound(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrEntityNotFound
	}
	return err
}

func inUnitRange(v float64) bool {
	return v >= 0 && v <= 1
}

func checkUnitRange(values ...*float64) error {
	for _, v := range values {
		if v != nil && !inUnitRange(*v) {
			return ErrOutOfRange
		}
	}
	return nil
}
