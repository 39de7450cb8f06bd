package vm

import (
	"github.com/nexusforge/corechain/chain"
	"github.com/nexusforge/corechain/crypto"
)

// Call is the concrete chain.Script a CallBuilder produces: an invocation
// of Method against the contract bound at Target, with Args already
// converted to the core's tagged-variant Result kind.
type Call struct {
	Target crypto.Address
	Method string
	Args   []chain.Result
}

// CallBuilder is the concrete chain.ScriptBuilder for method-name based
// contract invocation: building a call is just capturing its three
// arguments, with the registry lookup deferred to the VM that runs it.
type CallBuilder struct{}

// NewCallBuilder returns a CallBuilder.
func NewCallBuilder() *CallBuilder {
	return &CallBuilder{}
}

// BuildCall implements chain.ScriptBuilder.
func (b *CallBuilder) BuildCall(target crypto.Address, method string, args []chain.Result) (chain.Script, error) {
	return &Call{Target: target, Method: method, Args: args}, nil
}
