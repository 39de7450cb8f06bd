package config

import (
	"fmt"

	"github.com/nexusforge/corechain/chain"
	"github.com/nexusforge/corechain/crypto"
	"github.com/nexusforge/corechain/kv"
	"github.com/nexusforge/corechain/token"
	"github.com/nexusforge/corechain/vm"
)

// BuildGenesisChain constructs a fresh root Chain from g, registering
// every configured token and crediting its allocations directly against
// the chain's store. Genesis predates any block or transaction, so
// balances are written straight into the store rather than routed
// through the MintFungible transaction handler. For capped tokens the
// allocated total is then recorded with SupplySheet.Mint, so the supply
// sheet's circulating total matches the credited balances.
func BuildGenesisChain(g GenesisConfig, owner crypto.Address, store kv.Store, vmExec chain.VM, sb chain.ScriptBuilder, nexus chain.Nexus) (*chain.Chain, error) {
	c, err := chain.NewRootChain(g.ChainName, owner, store, vmExec, sb, nexus, crypto.Address{})
	if err != nil {
		return nil, fmt.Errorf("config: build genesis chain %q: %w", g.ChainName, err)
	}

	for _, tg := range g.Tokens {
		if err := creditGenesisToken(c, tg); err != nil {
			return nil, fmt.Errorf("config: genesis token %q: %w", tg.TokenID, err)
		}
	}
	return c, nil
}

func creditGenesisToken(c *chain.Chain, tg TokenGenesis) error {
	var flags token.Flags
	if tg.Fungible {
		flags |= token.FlagFungible
	}
	if tg.Capped {
		flags |= token.FlagCapped
	}
	c.RegisterToken(vm.NewStaticToken(token.TokenID(tg.TokenID), flags, tg.MaxSupply))

	if !tg.Fungible {
		// NFT collections start with no items; items are minted by
		// later transactions, not genesis allocation.
		return nil
	}

	if tg.Capped {
		if err := c.InitSupplySheet(token.TokenID(tg.TokenID), tg.MaxSupply); err != nil {
			return fmt.Errorf("init supply sheet: %w", err)
		}
	}

	sheet := token.NewBalanceSheet(token.TokenID(tg.TokenID))
	var total uint64
	for addrHex, amount := range tg.Alloc {
		addr, err := crypto.AddressFromHex(addrHex)
		if err != nil {
			return fmt.Errorf("alloc address %q: %w", addrHex, err)
		}
		if err := sheet.Add(c.Store(), addr, int64(amount)); err != nil {
			return fmt.Errorf("credit %q: %w", addrHex, err)
		}
		total += amount
	}

	if tg.Capped && total > 0 {
		supply := token.NewSupplySheet(token.TokenID(tg.TokenID))
		if err := supply.Mint(c.Store(), total, true); err != nil {
			return fmt.Errorf("mint genesis supply: %w", err)
		}
	}
	return nil
}
