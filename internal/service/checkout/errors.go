package checkout

import "fmt"

// Kind classifies pipeline failures by who can recover from them.
type Kind int

const (
	// KindMalformed: missing or impossible request fields. Client error.
	KindMalformed Kind = iota + 1
	// KindAuthenticity: the payment signature did not verify. Client error, never retried.
	KindAuthenticity
	// KindReconciliation: the cart is internally inconsistent. Client error.
	KindReconciliation
	// KindStore: the order could not be recorded. Server error, safe to retry.
	KindStore
)

const (
	CodeInvalidRequest   = "invalid_request"
	CodeMissingFields    = "missing_fields"
	CodeInvalidField     = "invalid_field"
	CodeInvalidSignature = "invalid_signature"
	CodeStoreUnavailable = "store_unavailable"
)

// Error is the first failure of the pipeline. Code is machine-readable and
// distinct per reason; reconciliation failures use the reconciler's reason.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Fields  []string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}
