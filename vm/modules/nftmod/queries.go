package nftmod

import (
	"errors"

	"github.com/nexusforge/corechain/chain"
	"github.com/nexusforge/corechain/kv"
	"github.com/nexusforge/corechain/token"
)

// queryOwnerOf answers owner_of(token_id, item_id) → address, or a bool
// false result if the item is unowned.
func queryOwnerOf(c *chain.Chain, cs *kv.ChangeSet, args []chain.Result) (chain.Result, error) {
	if len(args) != 2 || args[0].Kind != chain.KindBytes || args[1].Kind != chain.KindBytes {
		return chain.Result{}, errors.New("nftmod: owner_of expects (token_id, item_id)")
	}
	owner, owned, err := token.NewOwnershipSheet(token.TokenID(args[0].Bytes)).OwnerOf(cs, token.ItemID(args[1].Bytes))
	if err != nil {
		return chain.Result{}, err
	}
	if !owned {
		return chain.BoolResult(false), nil
	}
	return chain.AddressResult(owner), nil
}

// queryNFTContent answers nft_content(token_id, item_id) → bytes.
func queryNFTContent(c *chain.Chain, cs *kv.ChangeSet, args []chain.Result) (chain.Result, error) {
	if len(args) != 2 || args[0].Kind != chain.KindBytes || args[1].Kind != chain.KindBytes {
		return chain.Result{}, errors.New("nftmod: nft_content expects (token_id, item_id)")
	}
	data, ok, err := c.GetNFT(token.TokenID(args[0].Bytes), token.ItemID(args[1].Bytes))
	if err != nil {
		return chain.Result{}, err
	}
	if !ok {
		return chain.Result{}, errors.New("nftmod: item has no registry content")
	}
	return chain.BytesResult(data), nil
}
