// Package etlerr classifies pipeline failures so callers can tell a
// validation problem from a storage fault without parsing messages.
package etlerr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is the failure class of an Error.
type Kind int

const (
	// ContractViolation: column count, name or type does not match the contract.
	ContractViolation Kind = iota + 1
	// CoercionWarning: value-level coercion failed. Fatal only under the abort policy.
	CoercionWarning
	// SchemaFault: schema creation failed or a target table is missing.
	SchemaFault
	// StoreFault: a statement failed at the storage layer.
	StoreFault
	// SourceNotFound: a declared input dataset does not exist.
	SourceNotFound
)

func (k Kind) String() string {
	switch k {
	case ContractViolation:
		return "contract violation"
	case CoercionWarning:
		return "coercion warning"
	case SchemaFault:
		return "schema fault"
	case StoreFault:
		return "store fault"
	case SourceNotFound:
		return "source not found"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is a classified failure located by dataset and stage. Details holds
// every individual finding when more than one was collected.
type Error struct {
	Kind    Kind
	Dataset string
	Stage   string
	Details []string
	Err     error
}

// New returns an *Error. err may be nil when Details carry the explanation.
func New(kind Kind, dataset, stage string, err error, details ...string) *Error {
	return &Error{Kind: kind, Dataset: dataset, Stage: stage, Err: err, Details: details}
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Dataset != "" {
		fmt.Fprintf(&b, ": dataset=%s", e.Dataset)
	}
	if e.Stage != "" {
		fmt.Fprintf(&b, " stage=%s", e.Stage)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if len(e.Details) > 0 {
		fmt.Fprintf(&b, " [%s]", strings.Join(e.Details, "; "))
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// IsKind reports whether err carries the given Kind.
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
