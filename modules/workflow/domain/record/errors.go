package record

import "github.com/iota-uz/opsdesk/pkg/serrors"

var (
	ErrInvalidTransition = serrors.NewError("INVALID_TRANSITION", "action is not allowed for the current status", "Workflow.Errors.InvalidTransition")
	ErrStaleProposal     = serrors.NewError("STALE_PROPOSAL", "record already has a pending request", "Workflow.Errors.StaleProposal")
	ErrStorageFailure    = serrors.NewRetryableError("STORAGE_FAILURE", "storage failure", "Workflow.Errors.StorageFailure")
	ErrNoChanges         = serrors.NewError("NO_CHANGES", "proposal does not change any field", "Workflow.Errors.NoChanges")
	ErrInvalidPayload    = serrors.NewError("INVALID_PAYLOAD", "invalid payload", "Workflow.Errors.InvalidPayload")
	ErrNotFound          = serrors.NewError("NOT_FOUND", "record not found", "Workflow.Errors.NotFound")
	ErrVersionConflict   = serrors.NewError("VERSION_CONFLICT", "record was changed by someone else", "Workflow.Errors.VersionConflict")
)
