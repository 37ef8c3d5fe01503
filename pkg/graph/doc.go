// Package graph implements the procedural node graph: nodes with typed
// fields and numbered input/output slots, connections between them, and
// lazy evaluation with a per-output cache.
//
// A Graph owns its nodes. Connections refer to their endpoints through
// generation-tagged handles, so removing a node leaves any connection that
// referenced it expired rather than dangling; an expired input reads as
// unconnected.
//
// Cooking is pull-based. Node.Cook first cooks every connected input, then
// reuses the cached result for the requested output if no field changed and
// every input returned the same mesh instance (by mesh.ID) as last time.
// Changes are never pushed downstream; they are discovered when a
// downstream node next cooks and sees a new upstream identity.
package graph
