package container

import (
	"cmp"
	"fmt"

	"flownet.ai/internal/sim/world/logic/valuestack"
)

// State is the outcome of a container transaction.
type State uint8

const (
	Failed State = iota
	Completed
	CompletedWithExcess
	CompletedWithShortage
)

func (s State) String() string {
	switch s {
	case Completed:
		return "COMPLETED"
	case CompletedWithExcess:
		return "COMPLETED_WITH_EXCESS"
	case CompletedWithShortage:
		return "COMPLETED_WITH_SHORTAGE"
	default:
		return "FAILED"
	}
}

// Failure codes carried by Result.Code.
const (
	CodeBadAmount   = "E_BAD_AMOUNT"
	CodeNotAccepted = "E_NOT_ACCEPTED"
	CodeRejected    = "E_REJECTED"
	CodeFull        = "E_FULL"
	CodeEmpty       = "E_EMPTY"
	CodeNoTransfer  = "E_NO_TRANSFER"
	CodeSelf        = "E_SELF"
)

type Result[K cmp.Ordered, Q valuestack.Number] struct {
	Kind    K
	Desired Q
	Actual  Q
	State   State
	Code    string
}

// OK reports whether anything at all was committed.
func (r Result[K, Q]) OK() bool { return r.State != Failed }

func (r Result[K, Q]) String() string {
	if r.Code != "" {
		return fmt.Sprintf("%v %v/%v %s (%s)", r.Kind, r.Actual, r.Desired, r.State, r.Code)
	}
	return fmt.Sprintf("%v %v/%v %s", r.Kind, r.Actual, r.Desired, r.State)
}

func failed[K cmp.Ordered, Q valuestack.Number](kind K, desired Q, code string) Result[K, Q] {
	return Result[K, Q]{Kind: kind, Desired: desired, State: Failed, Code: code}
}

func stateFor[Q valuestack.Number](desired, actual Q) State {
	switch {
	case actual <= 0:
		return Failed
	case actual == desired:
		return Completed
	case actual < desired:
		return CompletedWithShortage
	default:
		return CompletedWithExcess
	}
}

// TransferResult nests the two halves of a transfer between containers.
type TransferResult[K cmp.Ordered, Q valuestack.Number] struct {
	Removed Result[K, Q]
	Added   Result[K, Q]
	State   State
}

func (r TransferResult[K, Q]) OK() bool { return r.State != Failed }

// Actual is the quantity that ended up in the receiver.
func (r TransferResult[K, Q]) Actual() Q { return r.Added.Actual }

// Summary aggregates a multi-kind transaction such as TryTransferTo or TryConsume.
type Summary[K cmp.Ordered, Q valuestack.Number] struct {
	Desired Q
	Actual  Q
	State   State
	Moved   valuestack.Stack[K, Q]
}

func (s Summary[K, Q]) OK() bool { return s.State != Failed }
