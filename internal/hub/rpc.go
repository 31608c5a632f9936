package hub

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"tableside/internal/domain"
)

// Socket RPCs carried over the same connection as the event feed. Every call
// is acknowledged; a rejected transition is a normal ack with ok=false.
const (
	rpcClaimItem  = "kitchen:claim-item"
	rpcMarkReady  = "kitchen:mark-ready"
	rpcServeItem  = "waiter:serve-item"
	rpcCancelItem = "staff:cancel-item"
)

type rpcRequest struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	Data struct {
		ItemID string `json:"item_id"`
	} `json:"data"`
}

type rpcAck struct {
	Type  string `json:"type"`
	ID    string `json:"id,omitempty"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

const rpcTimeout = 10 * time.Second

func (c *Client) handleRPC(msg []byte) {
	var req rpcRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		c.sendAck("", false, "bad_request")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), rpcTimeout)
	defer cancel()

	var err error
	switch req.Type {
	case rpcClaimItem:
		_, err = c.hub.kitchen.Claim(ctx, c.actor, req.Data.ItemID)
	case rpcMarkReady:
		_, err = c.hub.kitchen.MarkReady(ctx, c.actor, req.Data.ItemID)
	case rpcServeItem:
		_, err = c.hub.kitchen.Serve(ctx, c.actor, req.Data.ItemID)
	case rpcCancelItem:
		_, err = c.hub.kitchen.Cancel(ctx, c.actor, req.Data.ItemID)
	default:
		c.sendAck(req.ID, false, "unknown_rpc")
		return
	}

	if err != nil {
		c.sendAck(req.ID, false, errCode(err))
		return
	}
	c.sendAck(req.ID, true, "")
}

func (c *Client) sendAck(id string, ok bool, code string) {
	frame, err := json.Marshal(rpcAck{Type: "ack", ID: id, OK: ok, Error: code})
	if err != nil {
		return
	}
	c.enqueue(frame)
}

func errCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrAlreadyClaimed):
		return "already_claimed"
	case errors.Is(err, domain.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, domain.ErrStationMismatch):
		return "station_mismatch"
	case errors.Is(err, domain.ErrForbidden):
		return "forbidden"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	default:
		return "internal"
	}
}
