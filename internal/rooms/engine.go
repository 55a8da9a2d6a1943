// Package rooms holds the room lifecycle rules: creation, joining, leaving,
// completion and expiry. It talks to persistence only through database.Store
// and reports rejected operations as *Error values.
package rooms

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/caiocezartg/squad-finder-sub000/internal/database"
	"github.com/caiocezartg/squad-finder-sub000/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	MinPlayers = 2
	MaxPlayers = 20

	maxNameLength  = 100
	maxTags        = 5
	maxTagLength   = 20
	minLanguageLen = 2
	maxLanguageLen = 8

	// maxCodeAttempts bounds retries when a generated code is already taken.
	maxCodeAttempts = 5
)

// ErrCodeSpaceExhausted is returned when every generated code collided.
var ErrCodeSpaceExhausted = errors.New("could not allocate a unique room code")

// Engine enforces the room lifecycle rules on top of a Store.
type Engine struct {
	store  database.Store
	logger *logrus.Logger
	now    func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(store database.Store, logger *logrus.Logger, opts ...Option) *Engine {
	e := &Engine{store: store, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) clock() time.Time {
	return e.now().UTC()
}

// CreateParams are the inputs of CreateRoom. MaxPlayers nil means the game's maximum.
type CreateParams struct {
	Name        string
	GameID      uuid.UUID
	MaxPlayers  *int
	HostID      uuid.UUID
	DiscordLink *string
	IsPrivate   bool
	Tags        []string
	Language    *string
}

func (p *CreateParams) normalize() *Error {
	p.Name = strings.TrimSpace(p.Name)
	if n := utf8.RuneCountInString(p.Name); n < 1 || n > maxNameLength {
		return invalid("name", "must be between 1 and 100 characters")
	}
	if p.MaxPlayers != nil && (*p.MaxPlayers < MinPlayers || *p.MaxPlayers > MaxPlayers) {
		return invalid("maxPlayers", "must be between 2 and 20")
	}
	if err := validateDiscordLink(p.DiscordLink); err != nil {
		return err
	}
	if len(p.Tags) > maxTags {
		return invalid("tags", "at most 5 tags are allowed")
	}
	tags := make([]string, 0, len(p.Tags))
	for _, t := range p.Tags {
		t = strings.TrimSpace(t)
		if n := utf8.RuneCountInString(t); n < 1 || n > maxTagLength {
			return invalid("tags", "each tag must be between 1 and 20 characters")
		}
		tags = append(tags, t)
	}
	p.Tags = tags
	if p.Language != nil {
		lang := strings.TrimSpace(*p.Language)
		if n := utf8.RuneCountInString(lang); n < minLanguageLen || n > maxLanguageLen {
			return invalid("language", "must be between 2 and 8 characters")
		}
		p.Language = &lang
	}
	return nil
}

func validateDiscordLink(link *string) *Error {
	if link == nil {
		return nil
	}
	u, err := url.Parse(*link)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return invalid("discordLink", "must be a valid URL")
	}
	return nil
}

func clampPlayers(n int) int {
	return min(max(n, MinPlayers), MaxPlayers)
}

// CreateRoom creates a waiting room with the caller as host and first member.
// The room and the host membership are written in one transaction; a code
// collision rolls both back and is retried with a fresh code.
func (e *Engine) CreateRoom(ctx context.Context, p CreateParams) (*models.Room, error) {
	if verr := p.normalize(); verr != nil {
		verr.UserID = p.HostID
		return nil, verr
	}

	game, err := e.store.GetGame(ctx, p.GameID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, &Error{Kind: KindGameNotFound, UserID: p.HostID, Err: fmt.Errorf("game %s", p.GameID)}
	}
	if err != nil {
		return nil, fmt.Errorf("create room: load game: %w", err)
	}

	maxPlayers := clampPlayers(game.MaxPlayers)
	if p.MaxPlayers != nil {
		maxPlayers = *p.MaxPlayers
	}

	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		code, err := NewCode()
		if err != nil {
			return nil, err
		}
		now := e.clock()
		room := &models.Room{
			ID:          uuid.New(),
			Code:        code,
			Name:        p.Name,
			HostID:      p.HostID,
			GameID:      game.ID,
			Status:      models.RoomStatusWaiting,
			MaxPlayers:  maxPlayers,
			DiscordLink: p.DiscordLink,
			IsPrivate:   p.IsPrivate,
			Tags:        p.Tags,
			Language:    p.Language,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		host := &models.RoomMember{ID: uuid.New(), RoomID: room.ID, UserID: p.HostID, JoinedAt: now}

		err = e.store.RunInTx(ctx, func(q database.Querier) error {
			if err := q.InsertRoom(ctx, room); err != nil {
				return err
			}
			return q.InsertMember(ctx, host)
		})
		if errors.Is(err, database.ErrDuplicateCode) {
			e.logger.WithFields(logrus.Fields{"room_code": code, "attempt": attempt}).Warn("room code collision, retrying")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create room: %w", err)
		}

		e.logger.WithFields(logrus.Fields{
			"room_id":   room.ID,
			"room_code": room.Code,
			"user_id":   p.HostID,
		}).Info("room created")
		return room, nil
	}
	return nil, fmt.Errorf("create room: %w after %d attempts", ErrCodeSpaceExhausted, maxCodeAttempts)
}

// JoinResult describes the outcome of a join.
type JoinResult struct {
	Member      *models.RoomMember
	Room        *models.Room
	MemberCount int
	// AlreadyMember is set when the user was a member before this call.
	// Nothing was written in that case.
	AlreadyMember bool
	// Completed is set only for the join that brought the room to capacity.
	Completed bool
}

// JoinRoom adds userID to the room. The whole check-insert-recount sequence
// runs in one transaction holding the room row lock, so concurrent joins on
// the same room are serialized and the capacity check cannot be overrun.
func (e *Engine) JoinRoom(ctx context.Context, roomID, userID uuid.UUID) (*JoinResult, error) {
	res := &JoinResult{}
	err := e.store.RunInTx(ctx, func(q database.Querier) error {
		room, err := q.LockRoom(ctx, roomID)
		if errors.Is(err, database.ErrNotFound) {
			return &Error{Kind: KindNotFound, RoomID: roomID, UserID: userID}
		}
		if err != nil {
			return err
		}
		if room.Status != models.RoomStatusWaiting {
			return &Error{Kind: KindNotWaiting, RoomID: room.ID, RoomCode: room.Code, UserID: userID}
		}
		res.Room = room

		existing, err := q.GetMember(ctx, room.ID, userID)
		switch {
		case err == nil:
			res.Member = existing
			res.AlreadyMember = true
			res.MemberCount, err = q.CountMembers(ctx, room.ID)
			return err
		case !errors.Is(err, database.ErrNotFound):
			return err
		}

		count, err := q.CountMembers(ctx, room.ID)
		if err != nil {
			return err
		}
		if count >= room.MaxPlayers {
			return &Error{Kind: KindFull, RoomID: room.ID, RoomCode: room.Code, UserID: userID}
		}

		now := e.clock()
		member := &models.RoomMember{ID: uuid.New(), RoomID: room.ID, UserID: userID, JoinedAt: now}
		if err := q.InsertMember(ctx, member); err != nil {
			if errors.Is(err, database.ErrDuplicateMember) {
				return &Error{Kind: KindAlreadyMember, RoomID: room.ID, RoomCode: room.Code, UserID: userID, Err: err}
			}
			return err
		}
		if err := q.TouchRoom(ctx, room.ID, now); err != nil {
			return err
		}
		room.UpdatedAt = now
		res.Member = member

		count, err = q.CountMembers(ctx, room.ID)
		if err != nil {
			return err
		}
		res.MemberCount = count
		if count == room.MaxPlayers {
			stamped, err := q.MarkRoomCompleted(ctx, room.ID, now)
			if err != nil {
				return err
			}
			if stamped {
				room.CompletedAt = &now
				res.Completed = true
			}
		}
		return nil
	})
	if err != nil {
		if KindOf(err) != 0 {
			return nil, err
		}
		return nil, fmt.Errorf("join room %s: %w", roomID, err)
	}

	entry := e.logger.WithFields(logrus.Fields{
		"room_id":      res.Room.ID,
		"room_code":    res.Room.Code,
		"user_id":      userID,
		"member_count": res.MemberCount,
	})
	switch {
	case res.AlreadyMember:
		entry.Debug("join ignored, already a member")
	case res.Completed:
		entry.Info("room completed")
	default:
		entry.Info("player joined room")
	}
	return res, nil
}

// LeaveResult describes the outcome of a leave.
type LeaveResult struct {
	// Left is false when the user had no membership; nothing changed then.
	Left        bool
	WasHost     bool
	RoomDeleted bool
	Room        *models.Room
	MemberCount int
}

// LeaveRoom removes userID from the room. Completed rooms refuse every leave.
// When the host leaves, all memberships and the room itself are deleted.
func (e *Engine) LeaveRoom(ctx context.Context, roomID, userID uuid.UUID) (*LeaveResult, error) {
	res := &LeaveResult{}
	err := e.store.RunInTx(ctx, func(q database.Querier) error {
		room, err := q.LockRoom(ctx, roomID)
		if errors.Is(err, database.ErrNotFound) {
			return &Error{Kind: KindNotFound, RoomID: roomID, UserID: userID}
		}
		if err != nil {
			return err
		}
		res.Room = room
		if room.IsCompleted() {
			return &Error{Kind: KindCompleted, RoomID: room.ID, RoomCode: room.Code, UserID: userID}
		}

		deleted, err := q.DeleteMember(ctx, room.ID, userID)
		if err != nil {
			return err
		}
		if !deleted {
			return nil
		}
		res.Left = true

		if room.HostID == userID {
			res.WasHost = true
			if _, err := q.DeleteMembers(ctx, room.ID); err != nil {
				return err
			}
			if err := q.DeleteRoom(ctx, room.ID); err != nil {
				return err
			}
			res.RoomDeleted = true
			return nil
		}

		now := e.clock()
		if err := q.TouchRoom(ctx, room.ID, now); err != nil {
			return err
		}
		room.UpdatedAt = now
		res.MemberCount, err = q.CountMembers(ctx, room.ID)
		return err
	})
	if err != nil {
		if KindOf(err) != 0 {
			return nil, err
		}
		return nil, fmt.Errorf("leave room %s: %w", roomID, err)
	}

	if res.Left {
		e.logger.WithFields(logrus.Fields{
			"room_id":      res.Room.ID,
			"room_code":    res.Room.Code,
			"user_id":      userID,
			"room_deleted": res.RoomDeleted,
		}).Info("player left room")
	}
	return res, nil
}

// DeletedRoom identifies a room removed by DeleteExpiredRooms.
type DeletedRoom struct {
	ID   uuid.UUID
	Code string
}

// DeleteExpiredRooms deletes every room whose last update precedes
// now minus thresholdMinutes. Individual failures are logged and skipped.
func (e *Engine) DeleteExpiredRooms(ctx context.Context, thresholdMinutes int) ([]DeletedRoom, error) {
	cutoff := e.clock().Add(-time.Duration(thresholdMinutes) * time.Minute)
	expired, err := e.store.ListRoomsUpdatedBefore(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list expired rooms: %w", err)
	}

	deleted := make([]DeletedRoom, 0, len(expired))
	for _, room := range expired {
		if err := e.store.DeleteRoom(ctx, room.ID); err != nil {
			e.logger.WithFields(logrus.Fields{
				"room_id":   room.ID,
				"room_code": room.Code,
			}).WithError(err).Warn("failed to delete expired room")
			continue
		}
		deleted = append(deleted, DeletedRoom{ID: room.ID, Code: room.Code})
	}
	return deleted, nil
}

// ReconcileCompletions stamps completed_at on waiting rooms that are already
// at capacity but were never stamped, and returns the rooms it stamped.
func (e *Engine) ReconcileCompletions(ctx context.Context) ([]models.Room, error) {
	candidates, err := e.store.ListIncompleteWaitingRooms(ctx)
	if err != nil {
		return nil, fmt.Errorf("list incomplete rooms: %w", err)
	}

	var stamped []models.Room
	for _, room := range candidates {
		log := e.logger.WithFields(logrus.Fields{"room_id": room.ID, "room_code": room.Code})
		count, err := e.store.CountMembers(ctx, room.ID)
		if err != nil {
			log.WithError(err).Warn("reconcile: count members")
			continue
		}
		if count < room.MaxPlayers {
			continue
		}
		now := e.clock()
		ok, err := e.store.MarkRoomCompleted(ctx, room.ID, now)
		if err != nil {
			log.WithError(err).Warn("reconcile: mark completed")
			continue
		}
		if ok {
			room.CompletedAt = &now
			stamped = append(stamped, room)
			log.Info("reconciled full room")
		}
	}
	return stamped, nil
}

// SetDiscordLink replaces the room's voice invite link. Only the host may do this.
func (e *Engine) SetDiscordLink(ctx context.Context, roomID, userID uuid.UUID, link *string) (*models.Room, error) {
	if verr := validateDiscordLink(link); verr != nil {
		verr.RoomID, verr.UserID = roomID, userID
		return nil, verr
	}

	var updated *models.Room
	err := e.store.RunInTx(ctx, func(q database.Querier) error {
		room, err := q.LockRoom(ctx, roomID)
		if errors.Is(err, database.ErrNotFound) {
			return &Error{Kind: KindNotFound, RoomID: roomID, UserID: userID}
		}
		if err != nil {
			return err
		}
		if room.HostID != userID {
			return &Error{Kind: KindNotHost, RoomID: room.ID, RoomCode: room.Code, UserID: userID}
		}
		now := e.clock()
		if err := q.UpdateRoomDiscordLink(ctx, room.ID, link, now); err != nil {
			return err
		}
		room.DiscordLink = link
		room.UpdatedAt = now
		updated = room
		return nil
	})
	if err != nil {
		if KindOf(err) != 0 {
			return nil, err
		}
		return nil, fmt.Errorf("set discord link: %w", err)
	}
	return updated, nil
}
