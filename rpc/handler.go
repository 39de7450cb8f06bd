package rpc

import (
	"encoding/json"
	"fmt"

	"github.com/nexusforge/corechain/chain"
	"github.com/nexusforge/corechain/crypto"
	"github.com/nexusforge/corechain/mempool"
	"github.com/nexusforge/corechain/token"
	"github.com/nexusforge/corechain/vm"
)

// Handler holds the dependencies needed to serve RPC methods against one
// chain: block/height, token balance/ownership/supply, and NFT content
// lookups, plus pending-transaction submission.
type Handler struct {
	c    *chain.Chain
	pool *mempool.Pool
}

// NewHandler creates an RPC Handler over c and its pending-tx pool.
func NewHandler(c *chain.Chain, pool *mempool.Pool) *Handler {
	return &Handler{c: c, pool: pool}
}

// Dispatch routes an RPC request to the correct method.
func (h *Handler) Dispatch(req Request) Response {
	switch req.Method {
	case "getChainHeight":
		return okResponse(req.ID, h.c.BlockHeight())

	case "getBlock":
		return h.getBlock(req)

	case "getBalance":
		return h.getBalance(req)

	case "getOwnedTokens":
		return h.getOwnedTokens(req)

	case "getNFT":
		return h.getNFT(req)

	case "getSupply":
		return h.getSupply(req)

	case "sendTx":
		return h.sendTx(req)

	case "getMempoolSize":
		return okResponse(req.ID, h.pool.Size())

	default:
		return errResponse(req.ID, CodeMethodNotFound, fmt.Sprintf("method %q not found", req.Method))
	}
}

func (h *Handler) getBlock(req Request) Response {
	var params struct {
		Hash   string `json:"hash"`
		Height *int64 `json:"height"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, "params: "+err.Error())
	}

	var block *chain.Block
	var ok bool
	switch {
	case params.Hash != "":
		hash, err := crypto.HashFromHex(params.Hash)
		if err != nil {
			return errResponse(req.ID, CodeInvalidParams, "hash: "+err.Error())
		}
		block, ok = h.c.FindBlockByHash(hash)
	case params.Height != nil:
		block, ok = h.c.FindBlockByHeight(*params.Height)
	default:
		block, ok = h.c.LastBlock()
	}
	if !ok {
		return errResponse(req.ID, CodeInternalError, "no block found")
	}
	return okResponse(req.ID, blockView{
		Height:       block.Height,
		Hash:         block.Hash.String(),
		PreviousHash: block.PreviousHash.String(),
		TxCount:      len(block.Transactions),
	})
}

type blockView struct {
	Height       int64  `json:"height"`
	Hash         string `json:"hash"`
	PreviousHash string `json:"previous_hash"`
	TxCount      int    `json:"tx_count"`
}

func (h *Handler) getBalance(req Request) Response {
	var params struct {
		TokenID token.TokenID `json:"token_id"`
		Address string        `json:"address"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	addr, err := crypto.AddressFromHex(params.Address)
	if err != nil {
		return errResponse(req.ID, CodeInvalidParams, "address: "+err.Error())
	}
	bal, err := h.c.GetTokenBalance(params.TokenID, addr)
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	return okResponse(req.ID, map[string]any{"address": params.Address, "token_id": params.TokenID, "balance": bal})
}

func (h *Handler) getOwnedTokens(req Request) Response {
	var params struct {
		TokenID token.TokenID `json:"token_id"`
		Address string        `json:"address"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	addr, err := crypto.AddressFromHex(params.Address)
	if err != nil {
		return errResponse(req.ID, CodeInvalidParams, "address: "+err.Error())
	}
	ids, err := h.c.GetOwnedTokens(params.TokenID, addr)
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	return okResponse(req.ID, ids)
}

func (h *Handler) getNFT(req Request) Response {
	var params struct {
		TokenID token.TokenID `json:"token_id"`
		ItemID  token.ItemID  `json:"item_id"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	content, ok, err := h.c.GetNFT(params.TokenID, params.ItemID)
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	if !ok {
		return errResponse(req.ID, CodeInternalError, "no such item")
	}
	return okResponse(req.ID, map[string]any{"item_id": params.ItemID, "content": content})
}

func (h *Handler) getSupply(req Request) Response {
	var params struct {
		TokenID token.TokenID `json:"token_id"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	supply, err := h.c.SupplySheet(params.TokenID)
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	return okResponse(req.ID, supply)
}

func (h *Handler) sendTx(req Request) Response {
	tx, err := vm.DecodeScriptTx(req.Params)
	if err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	if err := h.pool.Add(h.c, tx); err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	return okResponse(req.ID, map[string]string{"tx_hash": tx.Hash().String()})
}
