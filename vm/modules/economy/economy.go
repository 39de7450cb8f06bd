// Package economy implements the fungible-balance transaction handlers:
// mint, burn, and transfer, routed through a token's BalanceSheet and,
// for capped tokens, its SupplySheet. Each handler self-registers into
// vm.Register at init() time; bodies follow the same shape throughout:
// decode payload, validate, mutate state, emit event.
package economy

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nexusforge/corechain/crypto"
	"github.com/nexusforge/corechain/events"
	"github.com/nexusforge/corechain/token"
	"github.com/nexusforge/corechain/vm"
)

func init() {
	vm.Register(vm.TxMintFungible, handleMint)
	vm.Register(vm.TxBurnFungible, handleBurn)
	vm.Register(vm.TxTransferFungible, handleTransfer)
	vm.RegisterQuery("balance_of", queryBalanceOf)
	vm.RegisterQuery("supply_of", querySupplyOf)
}

// MintPayload mints amount of token_id to the "to" address. On a capped
// token, circulating supply is tracked through the token's SupplySheet.
type MintPayload struct {
	TokenID token.TokenID `json:"token_id"`
	To      string        `json:"to"` // hex-encoded address
	Amount  uint64        `json:"amount"`
}

// BurnPayload destroys amount of token_id held by the transaction's
// signer.
type BurnPayload struct {
	TokenID token.TokenID `json:"token_id"`
	Amount  uint64        `json:"amount"`
}

// TransferPayload moves amount of token_id from the transaction's signer
// to the "to" address.
type TransferPayload struct {
	TokenID token.TokenID `json:"token_id"`
	To      string        `json:"to"`
	Amount  uint64        `json:"amount"`
}

func handleMint(ctx *vm.Context, payload json.RawMessage) error {
	var p MintPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode mint_fungible payload: %w", err)
	}
	tok, ok := ctx.Chain.TokenByID(p.TokenID)
	if !ok {
		return fmt.Errorf("token %q is not registered on this chain", p.TokenID)
	}
	if !tok.IsFungible() {
		return fmt.Errorf("token %q is not fungible", p.TokenID)
	}
	to, err := crypto.AddressFromHex(p.To)
	if err != nil {
		return fmt.Errorf("invalid to address: %w", err)
	}

	if tok.IsCapped() {
		if err := token.NewSupplySheet(p.TokenID).Mint(ctx.ChangeSet, p.Amount, ctx.Chain.IsRoot()); err != nil {
			return err
		}
	}
	if err := token.NewBalanceSheet(p.TokenID).Add(ctx.ChangeSet, to, int64(p.Amount)); err != nil {
		return err
	}

	emit(ctx, events.EventTokenMint, map[string]any{
		"token_id": string(p.TokenID), "to": to.String(), "amount": p.Amount,
	})
	return nil
}

func handleBurn(ctx *vm.Context, payload json.RawMessage) error {
	var p BurnPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode burn_fungible payload: %w", err)
	}
	tok, ok := ctx.Chain.TokenByID(p.TokenID)
	if !ok {
		return fmt.Errorf("token %q is not registered on this chain", p.TokenID)
	}
	if !tok.IsFungible() {
		return fmt.Errorf("token %q is not fungible", p.TokenID)
	}

	if err := token.NewBalanceSheet(p.TokenID).Subtract(ctx.ChangeSet, ctx.From, int64(p.Amount)); err != nil {
		return err
	}
	if tok.IsCapped() {
		if err := token.NewSupplySheet(p.TokenID).Burn(ctx.ChangeSet, p.Amount); err != nil {
			return err
		}
	}

	emit(ctx, events.EventTokenBurn, map[string]any{
		"token_id": string(p.TokenID), "from": ctx.From.String(), "amount": p.Amount,
	})
	return nil
}

func handleTransfer(ctx *vm.Context, payload json.RawMessage) error {
	var p TransferPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode transfer_fungible payload: %w", err)
	}
	if p.To == "" {
		return errors.New("to address required")
	}
	to, err := crypto.AddressFromHex(p.To)
	if err != nil {
		return fmt.Errorf("invalid to address: %w", err)
	}

	sheet := token.NewBalanceSheet(p.TokenID)
	if err := sheet.Subtract(ctx.ChangeSet, ctx.From, int64(p.Amount)); err != nil {
		return err
	}
	if err := sheet.Add(ctx.ChangeSet, to, int64(p.Amount)); err != nil {
		return err
	}

	emit(ctx, events.EventTokenTransfer, map[string]any{
		"token_id": string(p.TokenID), "from": ctx.From.String(), "to": to.String(), "amount": p.Amount,
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
