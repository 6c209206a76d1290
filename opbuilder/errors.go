// File: errors.go
// Role: sentinel errors for the opbuilder package, following the same
// "<pkg>Errorf" wrapping convention used throughout this module.

package opbuilder

import (
	"errors"
	"fmt"
)

// Sentinel errors for opbuilder operations.
var (
	// ErrAIDAlreadyBound indicates AddNode named an AID already live in the
	// current state.
	ErrAIDAlreadyBound = errors.New("opbuilder: AID already bound")

	// ErrUnboundAID indicates an instruction referenced an AID with no live
	// binding in the current state.
	ErrUnboundAID = errors.New("opbuilder: unbound AID")

	// ErrArgumentCountMismatch indicates a Call supplied a different number
	// of arguments than the callee's parameter declares.
	ErrArgumentCountMismatch = errors.New("opbuilder: argument count mismatch")

	// ErrArgumentDoesNotMatch indicates no static embedding of the callee's
	// parameter pattern into the current abstract state could be found.
	ErrArgumentDoesNotMatch = errors.New("opbuilder: argument does not match parameter")

	// ErrOperationNotFound indicates Call named an operation id this
	// builder's Context does not know and that is not this operation's own
	// declared self-reference.
	ErrOperationNotFound = errors.New("opbuilder: operation not found")

	// ErrUnknownOutputName indicates Call requested an output name the
	// callee's signature does not declare among its new nodes.
	ErrUnknownOutputName = errors.New("opbuilder: unknown output name")

	// ErrUnresolvedReturn indicates Build's returns map named an AID with no
	// live binding in the final state.
	ErrUnresolvedReturn = errors.New("opbuilder: unresolved return binding")

	// ErrCannotRenameParameter indicates Rename named a parameter AID -
	// parameter AIDs are part of the operation's fixed identity and cannot
	// be repointed.
	ErrCannotRenameParameter = errors.New("opbuilder: cannot rename a parameter AID")

	// ErrReturnOfShapeTaintedNode indicates Build's returns map named an AID
	// whose node may have come from a shape query rather than the caller's
	// own argument - returning it would let a caller observe provenance the
	// type system never certified.
	ErrReturnOfShapeTaintedNode = errors.New("opbuilder: return of shape-tainted node")
)

func opbuilderErrorf(op string, base error, format string, args ...interface{}) error {
	return fmt.Errorf("opbuilder.%s: %w: %s", op, base, fmt.Sprintf(format, args...))
}
