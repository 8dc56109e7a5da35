package service

import (
	"context"
	"encoding/json"

	"agromed-backend/internal/model"
	"agromed-backend/internal/repository"
	ws "agromed-backend/internal/websocket"

	"github.com/google/uuid"
)

// Actor is the identity performing an operation, resolved by the auth
// middleware. The workflow transition table decides what the role may do;
// services never re-derive permissions elsewhere.
type Actor struct {
	ID   uuid.UUID
	Role string
}

// SystemActor drives transitions not triggered by a user, e.g. the expiry
// sweeper.
var SystemActor = Actor{Role: "system"}

// writeAudit appends an audit entry inside the caller's transaction context.
// before/after are marshalled to JSON snapshots; a marshal or insert failure
// propagates so the surrounding transaction rolls back; no audit-less
// mutation is permitted.
func writeAudit(ctx context.Context, auditRepo repository.AuditRepository, actor Actor,
	action, resourceType, resourceID string, before, after interface{}) error {

	var beforeJSON, afterJSON []byte
	var err error
	if before != nil {
		if beforeJSON, err = json.Marshal(before); err != nil {
			return err
		}
	}
	if after != nil {
		if afterJSON, err = json.Marshal(after); err != nil {
			return err
		}
	}

	entry := model.AuditLog{
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		BeforeValue:  string(beforeJSON),
		AfterValue:   string(afterJSON),
	}
	if actor.ID != uuid.Nil {
		id := actor.ID
		entry.UserID = &id
	}
	return auditRepo.Log(ctx, &entry)
}

// DashboardEvent is the payload broadcast to websocket clients.
type DashboardEvent struct {
	Event string                 `json:"event"`
	Data  map[string]interface{} `json:"data"`
}

// broadcast pushes an event to the hub without blocking the request when no
// listener is draining the channel.
func broadcast(hub *ws.Hub, event string, data map[string]interface{}) {
	if hub == nil {
		return
	}
	payload, err := json.Marshal(DashboardEvent{Event: event, Data: data})
	if err != nil {
		return
	}
	select {
	case hub.Broadcast <- payload:
	default:
	}
}
