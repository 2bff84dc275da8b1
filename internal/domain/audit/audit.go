package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Entity types recorded by the API.
const (
	EntityComponent = "ctc_component"
	EntityContract  = "contract"
)

// Actions recorded by the API.
const (
	ActionComponentCreate     = "ctc_component.create"
	ActionComponentUpdate     = "ctc_component.update"
	ActionComponentDeactivate = "ctc_component.deactivate"
	ActionContractCreate      = "contract.create"
	ActionContractUpdate      = "contract.update"
	ActionContractRecalculate = "contract.recalculate"
	ActionContractDelete      = "contract.delete"
)

var ErrIncompleteEntry = errors.New("audit entry needs an action and an entity type")

type Event struct {
	ID         string          `json:"id"`
	ActorID    string          `json:"actorId"`
	Action     string          `json:"action"`
	EntityType string          `json:"entityType"`
	EntityID   string          `json:"entityId"`
	RequestID  string          `json:"requestId"`
	IP         string          `json:"ip"`
	CreatedAt  time.Time       `json:"createdAt"`
	Before     json.RawMessage `json:"before,omitempty"`
	After      json.RawMessage `json:"after,omitempty"`
}

// Entry is one change to record. Before and After are marshalled to JSON;
// nil leaves the column empty.
type Entry struct {
	ActorID    string
	Action     string
	EntityType string
	EntityID   string
	RequestID  string
	IP         string
	Before     any
	After      any
}

type Filter struct {
	Action     string
	EntityType string
	EntityID   string
	ActorID    string
}

// Recorder is what handlers need to write the trail.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

type Service struct {
	store StoreAPI
}

func NewService(store StoreAPI) *Service {
	return &Service{store: store}
}

func (s *Service) Record(ctx context.Context, entry Entry) error {
	if strings.TrimSpace(entry.Action) == "" || strings.TrimSpace(entry.EntityType) == "" {
		return ErrIncompleteEntry
	}
	before, err := marshal(entry.Before)
	if err != nil {
		return fmt.Errorf("marshal before: %w", err)
	}
	after, err := marshal(entry.After)
	if err != nil {
		return fmt.Errorf("marshal after: %w", err)
	}
	return s.store.InsertEvent(ctx, Event{
		ActorID:    entry.ActorID,
		Action:     entry.Action,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		RequestID:  entry.RequestID,
		IP:         entry.IP,
		Before:     before,
		After:      after,
	})
}

// List returns matching events newest first, with the total match count.
func (s *Service) List(ctx context.Context, filter Filter, limit, offset int) ([]Event, int, error) {
	total, err := s.store.CountEvents(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count audit events: %w", err)
	}
	events, err := s.store.ListEvents(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list audit events: %w", err)
	}
	return events, total, nil
}

func marshal(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}
