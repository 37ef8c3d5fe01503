package graph

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/mitchellh/mapstructure"
)

// Field is a named, typed parameter owned by a node. Setting a value always
// marks the node dirty, even when the value is unchanged.
type Field[T any] struct {
	name string
	node *Node

	mu    sync.RWMutex
	value T
}

// Name returns the field name.
func (f *Field[T]) Name() string { return f.name }

// Value returns the current value.
func (f *Field[T]) Value() T {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.value
}

// SetValue stores v and marks the owning node dirty.
func (f *Field[T]) SetValue(v T) {
	f.mu.Lock()
	f.value = v
	f.mu.Unlock()
	f.node.markDirty()
}

// Get returns the current value as an interface.
func (f *Field[T]) Get() any { return f.Value() }

// Set decodes v into the field type and stores it. Decoding is weakly
// typed: integers convert to floats, numeric strings parse, and lists fill
// fixed-size vectors.
func (f *Field[T]) Set(v any) error {
	var out T
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("field %q: %w", f.name, err)
	}
	f.SetValue(out)
	return nil
}

// Type returns the Go type of the field value.
func (f *Field[T]) Type() reflect.Type {
	return reflect.TypeFor[T]()
}

// AnyField is the type-erased view of a Field used by loaders and scripts.
type AnyField interface {
	Name() string
	Get() any
	Set(v any) error
	Type() reflect.Type
}

// AddField declares a field with a default value on n. Declaring a name
// twice replaces the earlier field. It is meant for operator factories;
// the default does not mark the node dirty.
func AddField[T any](n *Node, name string, def T) *Field[T] {
	f := &Field[T]{name: name, node: n, value: def}
	n.fieldsMu.Lock()
	defer n.fieldsMu.Unlock()
	if _, ok := n.fields[name]; !ok {
		n.fieldOrder = append(n.fieldOrder, name)
	}
	n.fields[name] = f
	return f
}

// GetField returns the field called name if it exists and holds a T, or
// nil otherwise.
func GetField[T any](n *Node, name string) *Field[T] {
	n.fieldsMu.RLock()
	defer n.fieldsMu.RUnlock()
	f, _ := n.fields[name].(*Field[T])
	return f
}
