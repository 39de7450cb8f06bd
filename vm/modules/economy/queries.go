package economy

import (
	"errors"

	"github.com/nexusforge/corechain/chain"
	"github.com/nexusforge/corechain/kv"
	"github.com/nexusforge/corechain/token"
)

// queryBalanceOf answers balance_of(address, token_id) → int.
func queryBalanceOf(c *chain.Chain, cs *kv.ChangeSet, args []chain.Result) (chain.Result, error) {
	if len(args) != 2 || args[0].Kind != chain.KindAddress || args[1].Kind != chain.KindBytes {
		return chain.Result{}, errors.New("economy: balance_of expects (address, token_id)")
	}
	bal, err := token.NewBalanceSheet(token.TokenID(args[1].Bytes)).Get(cs, args[0].Address)
	if err != nil {
		return chain.Result{}, err
	}
	return chain.IntResult(int64(bal)), nil
}

// querySupplyOf answers supply_of(token_id) → [local_balance, circulating, max_supply].
func querySupplyOf(c *chain.Chain, cs *kv.ChangeSet, args []chain.Result) (chain.Result, error) {
	if len(args) != 1 || args[0].Kind != chain.KindBytes {
		return chain.Result{}, errors.New("economy: supply_of expects (token_id)")
	}
	st, ok, err := token.NewSupplySheet(token.TokenID(args[0].Bytes)).Get(cs)
	if err != nil {
		return chain.Result{}, err
	}
	if !ok {
		return chain.Result{}, errors.New("economy: supply sheet not initialized")
	}
	return chain.ArrayResult([]chain.Result{
		chain.IntResult(int64(st.LocalBalance)),
		chain.IntResult(int64(st.Circulating)),
		chain.IntResult(int64(st.MaxSupply)),
	}), nil
}
