// Package engine provides the Lisp evaluation engine for procmesh.
// It wraps zygomys in a sandboxed environment and builds node graphs from
// user source code, and runs per-point attribute scripts over meshes.
package engine

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/procmesh/pkg/graph"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a runtime error in user code.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Result is the product of a successful graph evaluation.
type Result struct {
	Graph *graph.Graph

	// Output is the node named by the last (output ...) form, or nil.
	Output *graph.Node
}

// Engine wraps the zygomys interpreter for graph descriptions.
// It is safe for concurrent use; each call to Evaluate creates a fresh
// sandboxed environment for determinism.
type Engine struct {
	registry  *graph.Registry
	graphOpts []graph.Option
	timeout   time.Duration

	// generation counts Evaluate calls; only the newest may deliver.
	generation atomic.Uint64
}

// NewEngine creates an engine whose (node ...) form builds kinds from reg.
// graphOpts are applied to every graph it creates.
func NewEngine(reg *graph.Registry, graphOpts ...graph.Option) *Engine {
	return &Engine{
		registry:  reg,
		graphOpts: graphOpts,
		timeout:   EvalTimeout,
	}
}

// Evaluate takes Lisp source code and builds a new graph from it.
// Each call creates a fresh zygomys sandbox for deterministic evaluation.
//
// Return semantics:
//   - On success: returns result + nil errors + nil error
//   - On parse/eval failure: returns nil result + eval errors + nil error
//   - On fatal failure (timeout, cancellation, panic): returns nil + nil + error
func (e *Engine) Evaluate(ctx context.Context, source string) (*Result, []EvalError, error) {
	gen := e.generation.Add(1)

	out := await(ctx, "evaluation", e.timeout, func() evalResult {
		res, evalErrs, err := e.evaluate(source)
		return evalResult{result: res, errors: evalErrs, err: err}
	})
	return e.deliver(gen, out)
}

// deliver hands out a finished evaluation unless a newer one has started
// since. Fatal errors pass through regardless.
func (e *Engine) deliver(gen uint64, out evalResult) (*Result, []EvalError, error) {
	if out.err != nil {
		return nil, nil, out.err
	}
	if gen != e.generation.Load() {
		return nil, nil, ErrSuperseded
	}
	return out.result, out.errors, nil
}

// newGraph returns an empty graph carrying the engine's registry.
func (e *Engine) newGraph() *graph.Graph {
	opts := append([]graph.Option{graph.WithRegistry(e.registry)}, e.graphOpts...)
	return graph.New(opts...)
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func (e *Engine) evaluate(source string) (*Result, []EvalError, error) {
	g := e.newGraph()
	res := &Result{Graph: g}

	// Empty source is a valid program that produces an empty graph.
	if strings.TrimSpace(source) == "" {
		return res, nil, nil
	}

	// Sandbox mode prevents user code from accessing the filesystem or syscalls.
	env := newSandbox()
	defer env.Stop()

	registerGraphBuiltins(env, res)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, parseZygomysError(err), nil
	}
	if _, err := env.Run(); err != nil {
		return nil, parseZygomysError(err), nil
	}
	return res, nil, nil
}

// sandboxMu serializes environment construction; zygomys initializes
// shared package state while building one.
var sandboxMu sync.Mutex

func newSandbox() *zygo.Zlisp {
	sandboxMu.Lock()
	defer sandboxMu.Unlock()
	return zygo.NewZlispSandbox()
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
// It attempts to extract line number information from the error message.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	// zygomys formats parse errors as "Error on line N: <details>\n"
	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{
				Line:    line,
				Message: strings.TrimSpace(m[2]),
			}}
		}
	}

	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
