// Package opbuilder is the Operation Builder (spec component C5): it lets a
// host assemble a new user-defined operation from a sequence of primitive
// steps (add/delete a node or edge, set a node's value, call another
// operation, branch on a shape query) while statically tracking, through
// absstate, what the resulting operation is guaranteed to do - its
// Signature - so that Build can hand opctx a ready-to-register
// program.UserDefinedOperation without ever running the body concretely.
//
// Recursive operations (an operation calling itself) are supported via
// DeclareSelf: the builder registers a caller-supplied provisional
// signature before the body is built, so a self-call can be type-checked
// against it, then Build recomputes the real signature from what the body
// actually did and the host is responsible for confirming the provisional
// signature it declared was not more permissive than the final one (the
// fixpoint check, mirroring the original engine's recursive-signature
// validation pass).
package opbuilder
