package core

import "fmt"

// ErrKind tags every structured error the core produces so callers (the REST
// adapter, the network coordinator, tests) can switch on failure category
// instead of matching error strings.
type ErrKind string

const (
	ErrInvalidSignature ErrKind = "InvalidSignature"
	ErrAddressMismatch  ErrKind = "AddressMismatch"

	ErrMalformed        ErrKind = "Malformed"
	ErrDuplicate        ErrKind = "Duplicate"
	ErrInsufficientFund ErrKind = "InsufficientFunds"
	ErrMempoolFull      ErrKind = "MempoolFull"

	ErrBadIndex         ErrKind = "BadIndex"
	ErrBadPrevHash      ErrKind = "BadPrevHash"
	ErrBadMerkle        ErrKind = "BadMerkle"
	ErrBadHash          ErrKind = "BadHash"
	ErrDifficultyNotMet ErrKind = "DifficultyNotMet"
	ErrChainRejected    ErrKind = "ChainRejected"
	ErrMiningPreempted  ErrKind = "MiningPreempted"
	ErrBlockTimestamp   ErrKind = "BlockTimestamp"

	ErrStackUnderflow ErrKind = "StackUnderflow"
	ErrStackOverflow  ErrKind = "StackOverflow"
	ErrOutOfGas       ErrKind = "OutOfGas"
	ErrDivZero        ErrKind = "DivZero"
	ErrInvalidJump    ErrKind = "InvalidJump"

	ErrUnknownOpcode   ErrKind = "UnknownOpcode"
	ErrBadOperand      ErrKind = "BadOperand"
	ErrUnresolvedLabel ErrKind = "UnresolvedLabel"

	ErrChannelClosed   ErrKind = "ChannelClosed"
	ErrPeerUnreachable ErrKind = "PeerUnreachable"
)

// CoreError is the structured value every validation/consensus/VM failure in
// this package is surfaced as. Reason carries free-form context (e.g. the
// chain-rejection reason in spec §7); Err, when set, wraps the underlying
// cause for %w-based unwrapping.
type CoreError struct {
	Kind   ErrKind
	Reason string
	Err    error
}

func (e *CoreError) Error() string {
	switch {
	case e.Reason != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Reason, e.Err)
	case e.Reason != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return string(e.Kind)
	}
}

func (e *CoreError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, &CoreError{Kind: ErrX}) work as a kind check.
func (e *CoreError) Is(target error) bool {
	t, ok := target.(*CoreError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// newErr builds a CoreError with an optional wrapped cause.
func newErr(kind ErrKind, reason string, cause error) *CoreError {
	return &CoreError{Kind: kind, Reason: reason, Err: cause}
}

// KindOf extracts the ErrKind from err, if it (or something it wraps) is a
// *CoreError. Returns "" if not.
func KindOf(err error) ErrKind {
	var ce *CoreError
	for err != nil {
		if c, ok := err.(*CoreError); ok {
			ce = c
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	if ce == nil {
		return ""
	}
	return ce.Kind
}
