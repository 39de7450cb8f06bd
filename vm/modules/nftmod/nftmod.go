// Package nftmod implements the NFT transaction handlers: create, destroy,
// and transfer, routed through the chain's NFT content registry and a
// token's OwnershipSheet, rather than a free-form asset-plus-template
// model.
package nftmod

import (
	"encoding/json"
	"fmt"

	"github.com/nexusforge/corechain/crypto"
	"github.com/nexusforge/corechain/events"
	"github.com/nexusforge/corechain/token"
	"github.com/nexusforge/corechain/vm"
)

func init() {
	vm.Register(vm.TxCreateNFT, handleCreate)
	vm.Register(vm.TxDestroyNFT, handleDestroy)
	vm.Register(vm.TxTransferNFT, handleTransfer)
	vm.RegisterQuery("owner_of", queryOwnerOf)
	vm.RegisterQuery("nft_content", queryNFTContent)
}

// CreatePayload mints a fresh item under token_id and assigns it to the
// "to" address.
type CreatePayload struct {
	TokenID token.TokenID `json:"token_id"`
	To      string        `json:"to"`
	Data    []byte        `json:"data"`
}

// DestroyPayload destroys item_id under token_id, which must be owned by
// the transaction's signer.
type DestroyPayload struct {
	TokenID token.TokenID `json:"token_id"`
	ItemID  token.ItemID  `json:"item_id"`
}

// TransferPayload moves item_id under token_id, owned by the
// transaction's signer, to the "to" address.
type TransferPayload struct {
	TokenID token.TokenID `json:"token_id"`
	ItemID  token.ItemID  `json:"item_id"`
	To      string        `json:"to"`
}

func handleCreate(ctx *vm.Context, payload json.RawMessage) error {
	var p CreatePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode create_nft payload: %w", err)
	}
	tok, ok := ctx.Chain.TokenByID(p.TokenID)
	if !ok {
		return fmt.Errorf("token %q is not registered on this chain", p.TokenID)
	}
	if tok.IsFungible() {
		return fmt.Errorf("token %q is fungible, cannot mint an NFT under it", p.TokenID)
	}
	to, err := crypto.AddressFromHex(p.To)
	if err != nil {
		return fmt.Errorf("invalid to address: %w", err)
	}

	id, err := ctx.Chain.CreateNFT(ctx.ChangeSet, p.TokenID, p.Data)
	if err != nil {
		return err
	}
	if err := token.NewOwnershipSheet(p.TokenID).Give(ctx.ChangeSet, to, id); err != nil {
		return err
	}

	emit(ctx, events.EventNFTCreated, map[string]any{
		"token_id": string(p.TokenID), "item_id": string(id), "to": to.String(),
	})
	return nil
}

func handleDestroy(ctx *vm.Context, payload json.RawMessage) error {
	var p DestroyPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode destroy_nft payload: %w", err)
	}

	owner, owned, err := token.NewOwnershipSheet(p.TokenID).OwnerOf(ctx.ChangeSet, p.ItemID)
	if err != nil {
		return err
	}
	if !owned || owner != ctx.From {
		return fmt.Errorf("item %q is not owned by the sender", p.ItemID)
	}
	if err := token.NewOwnershipSheet(p.TokenID).Take(ctx.ChangeSet, ctx.From, p.ItemID); err != nil {
		return err
	}
	removed, err := ctx.Chain.DestroyNFT(ctx.ChangeSet, p.TokenID, p.ItemID)
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("item %q has no registry content to destroy", p.ItemID)
	}

	emit(ctx, events.EventNFTDestroyed, map[string]any{
		"token_id": string(p.TokenID), "item_id": string(p.ItemID), "owner": owner.String(),
	})
	return nil
}

func handleTransfer(ctx *vm.Context, payload json.RawMessage) error {
	var p TransferPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode transfer_nft payload: %w", err)
	}
	to, err := crypto.AddressFromHex(p.To)
	if err != nil {
		return fmt.Errorf("invalid to address: %w", err)
	}

	sheet := token.NewOwnershipSheet(p.TokenID)
	if err := sheet.Take(ctx.ChangeSet, ctx.From, p.ItemID); err != nil {
		return err
	}
	if err := sheet.Give(ctx.ChangeSet, to, p.ItemID); err != nil {
		return err
	}

	emit(ctx, events.EventNFTTransfer, map[string]any{
		"token_id": string(p.TokenID), "item_id": string(p.ItemID), "from": ctx.From.String(), "to": to.String(),
	})
	return nil
}

func emit(ctx *vm.Context, typ events.EventType, data map[string]any) {
	if ctx.Sink == nil {
		return
	}
	height := int64(0)
	if ctx.Block != nil {
		height = ctx.Block.Height
	}
	ctx.Sink.Emit(events.Event{Type: typ, TxID: ctx.TxHash.String(), BlockHeight: height, Data: data})
}
