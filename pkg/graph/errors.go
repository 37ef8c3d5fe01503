package graph

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownKind is returned when a node kind is not registered.
	ErrUnknownKind = errors.New("graph: unknown node kind")

	// ErrDuplicateKind is returned when a kind name is registered twice.
	ErrDuplicateKind = errors.New("graph: duplicate node kind")

	// ErrNoNode is returned when a node name does not resolve.
	ErrNoNode = errors.New("graph: no such node")
)

// CookError reports an operator failure while cooking a node output.
type CookError struct {
	Node   string // node name
	Kind   string // node kind
	Output int    // output slot being cooked
	Err    error  // operator error
}

func (e *CookError) Error() string {
	return fmt.Sprintf("cook %s (%s) output %d: %v", e.Node, e.Kind, e.Output, e.Err)
}

func (e *CookError) Unwrap() error { return e.Err }
