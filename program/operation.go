// File: operation.go
// Role: the durable shape of one user-defined operation - its signature
// plus its instruction body - as stored in an opctx.Context and serialized
// by opctx's snapshot codec.

package program

import "github.com/lvlath-labs/opgraph/paramgraph"

// UserDefinedOperation is a named operation built from nested calls to
// other operations (builtin or user-defined) rather than implemented
// natively in Go. Signature is expressed over the abstract type system
// (NA/EA); Body mutates the concrete graph (NC/EC) the operation runs
// against.
type UserDefinedOperation[NC, EC, NA, EA any] struct {
	Signature *paramgraph.Signature[NA, EA]
	Body      []Instruction[NC, EC, NA, EA]
}
