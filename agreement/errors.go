package agreement

import "errors"

var (
	// ErrNotFound is returned when no agreement row exists for the identifier
	// or it belongs to a different owner.
	ErrNotFound = errors.New("agreement: not found")
	// ErrValidation wraps every input problem detected before persistence is touched.
	ErrValidation = errors.New("agreement: validation failed")
	// ErrIncompleteSignatures signals a ratification attempt without every participant signed.
	ErrIncompleteSignatures = errors.New("agreement: every participant must sign")
	// ErrEmptyValidity signals an extension attempt without a new validity.
	ErrEmptyValidity = errors.New("agreement: new validity required")
	// ErrInvalidTransition signals a lifecycle operation not allowed from the current status.
	ErrInvalidTransition = errors.New("agreement: invalid status transition")
	// ErrTransitionInProgress signals a second submission while one is outstanding.
	ErrTransitionInProgress = errors.New("agreement: transition already in progress")
	// ErrPartialCreate signals the agreement row exists but a dependent insert failed.
	ErrPartialCreate = errors.New("agreement: created partially")
	// ErrAtomicUnavailable signals the atomic negotiation increment cannot be used.
	ErrAtomicUnavailable = errors.New("agreement: atomic increment unavailable")
	// ErrCorruptRecord signals a stored row that does not decode into the typed model.
	ErrCorruptRecord = errors.New("agreement: corrupt record")
	// ErrUnknownParticipant signals a signature for someone outside the agreement.
	ErrUnknownParticipant = errors.New("agreement: unknown participant")
	// ErrInvalidSignature signals a signature image that is not a supported data URL.
	ErrInvalidSignature = errors.New("agreement: invalid signature image")
)

// PartialCreateError carries the id of the orphaned agreement row. Cleanup is
// not attempted.
type PartialCreateError struct {
	AgreementID string
	Step        string
	Err         error
}

func (e *PartialCreateError) Error() string {
	return "agreement: created " + e.AgreementID + " but " + e.Step + " failed: " + e.Err.Error()
}

func (e *PartialCreateError) Unwrap() []error {
	return []error{ErrPartialCreate, e.Err}
}
