package domain

import (
	"errors"
	"fmt"
)

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors carry no infrastructure dependency.
// Caller-visible failures are wrapped in a TaskError carrying one of the
// kinds below plus a fixed reason string.

var (
	ErrUnauthorized      = errors.New("unauthorized")
	ErrRoleConflict      = errors.New("role conflict")
	ErrInvalidState      = errors.New("invalid state")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNotFound          = errors.New("not found")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrMintFailed        = errors.New("reward mint failed")

	// Reward token errors
	ErrNotMinter           = errors.New("caller is not an authorized minter")
	ErrInsufficientRewards = errors.New("reward balance too low to burn")
)

// Reason strings. Tests and clients match on these exactly.
const (
	ReasonNotValidator      = "Caller is not a validator of this task"
	ReasonNotWorker         = "Caller is not a worker of this task"
	ReasonWorkerNotAssigned = "Worker is not assigned to this task"
	ReasonValidatorAsWorker = "Validator cannot be worker"
	ReasonWorkerAsValidator = "Worker cannot be validator"
	ReasonTaskNotFound      = "Task does not exist"
	ReasonTaskNotOpen       = "Task is not open"
	ReasonTaskNotCompleted  = "Task is not completed"
	ReasonTaskValidated     = "Task is already validated"
	ReasonInsufficientFunds = "Insufficient task balance for payout"
	ReasonAmountNotPositive = "Amount must be positive"
	ReasonHoursNotPositive  = "Hours must be positive"
	ReasonAmountOverflow    = "Amount exceeds the supported range"
	ReasonHoursOverflow     = "Hours total exceeds the supported range"
	ReasonEmptyAddress      = "Address must not be empty"
	ReasonRewardMintFailed  = "Reward mint failed"
)

// TaskError is the error returned for every rejected task operation.
// Kind is one of the sentinel errors above; errors.Is matches on it.
type TaskError struct {
	Kind   error
	Reason string
	Err    error // optional underlying cause (e.g. mint transport failure)
}

// NewTaskError builds a TaskError.
func NewTaskError(kind error, reason string) *TaskError {
	return &TaskError{Kind: kind, Reason: reason}
}

func (e *TaskError) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Kind.Error()
	if e.Reason != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Reason)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *TaskError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// ReasonOf returns the reason string of a TaskError in err's chain, or "".
func ReasonOf(err error) string {
	var te *TaskError
	if errors.As(err, &te) {
		return te.Reason
	}
	return ""
}

// KindOf returns the sentinel kind of a TaskError in err's chain, or nil.
func KindOf(err error) error {
	var te *TaskError
	if errors.As(err, &te) {
		return te.Kind
	}
	return nil
}

// KindName is a short label for a kind, used in metrics and logs.
func KindName(err error) string {
	switch KindOf(err) {
	case ErrUnauthorized:
		return "unauthorized"
	case ErrRoleConflict:
		return "role_conflict"
	case ErrInvalidState:
		return "invalid_state"
	case ErrInsufficientFunds:
		return "insufficient_funds"
	case ErrNotFound:
		return "not_found"
	case ErrInvalidArgument:
		return "invalid_argument"
	case ErrMintFailed:
		return "mint_failed"
	default:
		return "internal"
	}
}
