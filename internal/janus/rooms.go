package janus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
)

// RoomDetails describes a room right after creation. Janus is the source of
// truth for room state; nothing here is persisted locally.
type RoomDetails struct {
	Room            int64  `json:"room"`
	Description     string `json:"description"`
	IsPrivate       bool   `json:"is_private"`
	NumParticipants int    `json:"num_participants"`
}

// RoomSummary is one entry of the gateway's room list, in gateway order.
type RoomSummary struct {
	Room            int64  `json:"room"`
	Description     string `json:"description"`
	PinRequired     bool   `json:"pin_required"`
	NumParticipants int    `json:"num_participants"`
}

// Participant is one attendee of a room.
type Participant struct {
	ID        int64  `json:"id"`
	Display   string `json:"display"`
	Publisher bool   `json:"publisher"`
}

// RoomUpdate carries the fields of an edit request. Nil means "not provided":
// the field is left out of the outbound payload entirely so Janus keeps its
// current value.
type RoomUpdate struct {
	NewDescription *string
	NewSecret      *string
	Secret         *string
}

// RoomService issues videoroom plugin requests through the shared session.
type RoomService struct {
	sessions *Manager
	client   *Client
	logger   *slog.Logger
}

// NewRoomService creates a room operations service on top of the session manager.
func NewRoomService(sessions *Manager, client *Client, logger *slog.Logger) *RoomService {
	return &RoomService{
		sessions: sessions,
		client:   client,
		logger:   logger,
	}
}

// CreateRoom creates a videoroom. A provided secret makes the room private.
func (s *RoomService) CreateRoom(ctx context.Context, description string, secret *string) (*RoomDetails, error) {
	body := map[string]any{
		"request":     "create",
		"description": description,
		"is_private":  secret != nil,
	}
	if secret != nil {
		body["secret"] = *secret
	}

	data, err := s.message(ctx, body)
	if err != nil {
		return nil, err
	}

	var result struct {
		Videoroom string `json:"videoroom"`
		Room      int64  `json:"room"`
	}
	if err := json.Unmarshal(data, &result); err != nil || result.Videoroom != "created" {
		return nil, fmt.Errorf("%w: create room result %q", ErrUnexpectedResponse, result.Videoroom)
	}

	s.logger.Info("✅ [Janus] Room created", "room", result.Room, "private", secret != nil)

	return &RoomDetails{
		Room:            result.Room,
		Description:     description,
		IsPrivate:       secret != nil,
		NumParticipants: 0,
	}, nil
}

// ListRooms returns the gateway's room list, order as received.
func (s *RoomService) ListRooms(ctx context.Context) ([]RoomSummary, error) {
	data, err := s.message(ctx, map[string]any{"request": "list"})
	if err != nil {
		return nil, err
	}

	var result struct {
		Videoroom string        `json:"videoroom"`
		List      []RoomSummary `json:"list"`
	}
	if err := json.Unmarshal(data, &result); err != nil || result.Videoroom != "success" {
		return nil, fmt.Errorf("%w: list result %q", ErrUnexpectedResponse, result.Videoroom)
	}

	if result.List == nil {
		return []RoomSummary{}, nil
	}
	return result.List, nil
}

// ListParticipants returns the attendees of one room.
func (s *RoomService) ListParticipants(ctx context.Context, roomID int64) ([]Participant, error) {
	data, err := s.message(ctx, map[string]any{
		"request": "listparticipants",
		"room":    roomID,
	})
	if err != nil {
		return nil, err
	}

	var result struct {
		Videoroom    string        `json:"videoroom"`
		Participants []Participant `json:"participants"`
	}
	if err := json.Unmarshal(data, &result); err != nil || result.Videoroom != "participants" {
		return nil, fmt.Errorf("%w: listparticipants result %q", ErrUnexpectedResponse, result.Videoroom)
	}

	if result.Participants == nil {
		return []Participant{}, nil
	}
	return result.Participants, nil
}

// UpdateRoom edits a room. Only explicitly provided fields are forwarded, so
// omitted ones never overwrite gateway-side values.
func (s *RoomService) UpdateRoom(ctx context.Context, roomID int64, update RoomUpdate) error {
	body := map[string]any{
		"request": "edit",
		"room":    roomID,
	}
	if update.NewDescription != nil {
		body["new_description"] = *update.NewDescription
	}
	if update.NewSecret != nil {
		body["new_secret"] = *update.NewSecret
	}
	if update.Secret != nil {
		body["secret"] = *update.Secret
	}

	data, err := s.message(ctx, body)
	if err != nil {
		return err
	}

	var result struct {
		Videoroom string `json:"videoroom"`
	}
	if err := json.Unmarshal(data, &result); err != nil || result.Videoroom != "edited" {
		return fmt.Errorf("%w: edit result %q", ErrUnexpectedResponse, result.Videoroom)
	}

	s.logger.Info("✅ [Janus] Room edited", "room", roomID)
	return nil
}

// DestroyRoom removes a room. Janus enforces the secret for private rooms.
func (s *RoomService) DestroyRoom(ctx context.Context, roomID int64, secret *string) error {
	body := map[string]any{
		"request": "destroy",
		"room":    roomID,
	}
	if secret != nil {
		body["secret"] = *secret
	}

	data, err := s.message(ctx, body)
	if err != nil {
		return err
	}

	var result struct {
		Videoroom string `json:"videoroom"`
	}
	if err := json.Unmarshal(data, &result); err != nil || result.Videoroom != "destroyed" {
		return fmt.Errorf("%w: destroy result %q", ErrUnexpectedResponse, result.Videoroom)
	}

	s.logger.Info("✅ [Janus] Room destroyed", "room", roomID)
	return nil
}

// message ensures the shared session exists and sends one plugin request.
// When Janus reports the session or handle gone (for example after its idle
// reaper fired between keep-alives), the pair is rebuilt and the request is
// retried exactly once.
func (s *RoomService) message(ctx context.Context, body map[string]any) (json.RawMessage, error) {
	for attempt := 0; ; attempt++ {
		sessionID, handleID, err := s.sessions.EnsureSession(ctx)
		if err != nil {
			return nil, err
		}

		data, err := s.client.Message(ctx, sessionID, handleID, body)
		if err == nil {
			return data, nil
		}

		var gwErr *GatewayError
		if attempt == 0 && errors.As(err, &gwErr) && gwErr.SessionExpired() {
			s.logger.Warn("🔁 [Janus] Stale session during room operation, re-initializing",
				"session_id", sessionID,
			)
			s.sessions.Invalidate(sessionID)
			continue
		}

		return nil, err
	}
}
