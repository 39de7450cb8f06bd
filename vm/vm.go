package vm

import (
	"fmt"
	"sync"

	"github.com/nexusforge/corechain/chain"
	"github.com/nexusforge/corechain/kv"
)

// QueryHandler answers a single read-only contract method, used by the
// chain's synchronous invoke_contract path. It may read through cs but
// must never rely on cs being applied — InvokeContract always discards it.
type QueryHandler func(c *chain.Chain, cs *kv.ChangeSet, args []chain.Result) (chain.Result, error)

// QueryRegistry maps contract method names to QueryHandlers.
type QueryRegistry struct {
	mu       sync.RWMutex
	handlers map[string]QueryHandler
}

// NewQueryRegistry creates an empty QueryRegistry.
func NewQueryRegistry() *QueryRegistry {
	return &QueryRegistry{handlers: make(map[string]QueryHandler)}
}

// Register associates method with h. Panics on duplicate registration,
// matching the transaction Registry's behavior above.
func (r *QueryRegistry) Register(method string, h QueryHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[method]; exists {
		panic(fmt.Sprintf("vm: query handler already registered for method %q", method))
	}
	r.handlers[method] = h
}

func (r *QueryRegistry) lookup(method string) (QueryHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[method]
	return h, ok
}

var globalQueries = NewQueryRegistry()

// RegisterQuery adds a query handler to the global registry. Module
// init() functions call this alongside Register for their transaction
// handlers.
func RegisterQuery(method string, h QueryHandler) {
	globalQueries.Register(method, h)
}

// InterpVM is the concrete chain.VM: it dispatches a *Call to the
// QueryHandler registered for its Method and returns the handler's
// Result, satisfying the "VM executes a script against (chain,
// change_set) leaving a result on a stack" contract without needing an
// actual bytecode stack machine — the registry dispatch here plays the
// same role the transaction registry's Execute plays for transaction
// handlers.
type InterpVM struct {
	queries *QueryRegistry
}

// NewInterpVM returns a VM wired to the global query registry.
func NewInterpVM() *InterpVM {
	return &InterpVM{queries: globalQueries}
}

// Run implements chain.VM.
func (v *InterpVM) Run(c *chain.Chain, cs *kv.ChangeSet, script chain.Script) (chain.Result, error) {
	call, ok := script.(*Call)
	if !ok {
		return chain.Result{}, fmt.Errorf("vm: unsupported script type %T", script)
	}
	h, ok := v.queries.lookup(call.Method)
	if !ok {
		return chain.Result{}, fmt.Errorf("vm: no query handler registered for method %q", call.Method)
	}
	return h(c, cs, call.Args)
}
