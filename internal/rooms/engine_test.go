package rooms_test

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/caiocezartg/squad-finder-sub000/internal/database"
	"github.com/caiocezartg/squad-finder-sub000/internal/models"
	"github.com/caiocezartg/squad-finder-sub000/internal/rooms"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCreateRoom_CodeFormatAndHostMembership(t *testing.T) {
	ctx := context.Background()
	store := seededStore()
	e := newEngine(t, store)
	codeRE := regexp.MustCompile(`^[A-Z0-9]{6}$`)

	for i := 0; i < 50; i++ {
		host := uuid.New()
		room := createRoom(t, e, host, nil)

		assert.Regexp(t, codeRE, room.Code)
		assert.Equal(t, models.RoomStatusWaiting, room.Status)
		assert.Equal(t, 5, room.MaxPlayers, "defaults to the game's maximum")
		assert.Nil(t, room.CompletedAt)

		member, err := store.GetMember(ctx, room.ID, host)
		require.NoError(t, err)
		assert.Equal(t, host, member.UserID)
		count, err := store.CountMembers(ctx, room.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	}
}

func TestCreateRoom_DefaultMaxPlayersIsClamped(t *testing.T) {
	e := newEngine(t, seededStore())

	room, err := e.CreateRoom(context.Background(), rooms.CreateParams{
		Name:   "Sus crew",
		GameID: amongUsID,
		HostID: uuid.New(),
	})
	require.NoError(t, err)
	assert.Equal(t, 15, room.MaxPlayers)
}

func TestCreateRoom_Metadata(t *testing.T) {
	e := newEngine(t, seededStore())

	room, err := e.CreateRoom(context.Background(), rooms.CreateParams{
		Name:        "  Late night  ",
		GameID:      valorantID,
		MaxPlayers:  intPtr(4),
		HostID:      uuid.New(),
		DiscordLink: strPtr("https://discord.gg/abc123"),
		IsPrivate:   true,
		Tags:        []string{" chill ", "pt-br"},
		Language:    strPtr("pt"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Late night", room.Name)
	assert.Equal(t, 4, room.MaxPlayers)
	assert.Equal(t, []string{"chill", "pt-br"}, room.Tags)
	assert.True(t, room.IsPrivate)
	require.NotNil(t, room.Language)
	assert.Equal(t, "pt", *room.Language)
}

func TestCreateRoom_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		params rooms.CreateParams
		kind   rooms.Kind
	}{
		{"empty name", rooms.CreateParams{Name: "   ", GameID: valorantID}, rooms.KindValidation},
		{"long name", rooms.CreateParams{Name: strings.Repeat("x", 101), GameID: valorantID}, rooms.KindValidation},
		{"too few players", rooms.CreateParams{Name: "a", GameID: valorantID, MaxPlayers: intPtr(1)}, rooms.KindValidation},
		{"too many players", rooms.CreateParams{Name: "a", GameID: valorantID, MaxPlayers: intPtr(21)}, rooms.KindValidation},
		{"too many tags", rooms.CreateParams{Name: "a", GameID: valorantID, Tags: []string{"1", "2", "3", "4", "5", "6"}}, rooms.KindValidation},
		{"empty tag", rooms.CreateParams{Name: "a", GameID: valorantID, Tags: []string{""}}, rooms.KindValidation},
		{"bad link", rooms.CreateParams{Name: "a", GameID: valorantID, DiscordLink: strPtr("not a url")}, rooms.KindValidation},
		{"short language", rooms.CreateParams{Name: "a", GameID: valorantID, Language: strPtr("p")}, rooms.KindValidation},
		{"unknown game", rooms.CreateParams{Name: "a", GameID: uuid.New()}, rooms.KindGameNotFound},
	}

	e := newEngine(t, seededStore())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.params.HostID = uuid.New()
			room, err := e.CreateRoom(context.Background(), tt.params)
			assert.Nil(t, room)
			assert.Equal(t, tt.kind, rooms.KindOf(err), "got %v", err)
		})
	}
}

func TestCreateRoom_RetriesOnCodeCollision(t *testing.T) {
	spy := &spyStore{Store: seededStore()}
	spy.On("InsertRoom", mock.Anything).Return(database.ErrDuplicateCode).Once()
	spy.On("InsertRoom", mock.Anything).Return(nil).Once()
	spy.On("InsertMember", mock.Anything, mock.Anything).Return().Once()
	e := newEngine(t, spy)

	host := uuid.New()
	room := createRoom(t, e, host, nil)

	spy.AssertExpectations(t)
	spy.AssertNumberOfCalls(t, "InsertRoom", 2)
	count, err := spy.CountMembers(context.Background(), room.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCreateRoom_GivesUpAfterRepeatedCollisions(t *testing.T) {
	spy := &spyStore{Store: seededStore()}
	spy.On("InsertRoom", mock.Anything).Return(database.ErrDuplicateCode)
	e := newEngine(t, spy)

	room, err := e.CreateRoom(context.Background(), rooms.CreateParams{Name: "a", GameID: valorantID, HostID: uuid.New()})
	assert.Nil(t, room)
	assert.ErrorIs(t, err, rooms.ErrCodeSpaceExhausted)
	assert.Zero(t, rooms.KindOf(err))
	spy.AssertNumberOfCalls(t, "InsertRoom", 5)
	spy.AssertNotCalled(t, "InsertMember", mock.Anything, mock.Anything)
}

func TestJoinRoom_IdempotentForExistingMember(t *testing.T) {
	ctx := context.Background()
	store := seededStore()
	room := createRoom(t, newEngine(t, store), uuid.New(), nil)

	spy := &spyStore{Store: store}
	e := newEngine(t, spy)
	u1 := uuid.New()
	spy.On("InsertMember", room.ID, u1).Return().Once()

	first, err := e.JoinRoom(ctx, room.ID, u1)
	require.NoError(t, err)
	assert.False(t, first.AlreadyMember)
	assert.Equal(t, 2, first.MemberCount)

	second, err := e.JoinRoom(ctx, room.ID, u1)
	require.NoError(t, err)
	assert.True(t, second.AlreadyMember)
	assert.Equal(t, *first.Member, *second.Member)
	assert.Equal(t, 2, second.MemberCount)

	spy.AssertExpectations(t)
	spy.AssertNumberOfCalls(t, "InsertMember", 1)
}

func TestJoinRoom_Preconditions(t *testing.T) {
	ctx := context.Background()
	store := seededStore()
	e := newEngine(t, store)

	_, err := e.JoinRoom(ctx, uuid.New(), uuid.New())
	assert.Equal(t, rooms.KindNotFound, rooms.KindOf(err))

	playing := &models.Room{
		ID: uuid.New(), Code: "PLAY01", Name: "busy", HostID: uuid.New(), GameID: valorantID,
		Status: models.RoomStatusPlaying, MaxPlayers: 5, CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	require.NoError(t, store.InsertRoom(ctx, playing))
	_, err = e.JoinRoom(ctx, playing.ID, uuid.New())
	assert.Equal(t, rooms.KindNotWaiting, rooms.KindOf(err))

	duo := createRoom(t, e, uuid.New(), intPtr(2))
	_, err = e.JoinRoom(ctx, duo.ID, uuid.New())
	require.NoError(t, err)
	_, err = e.JoinRoom(ctx, duo.ID, uuid.New())
	assert.Equal(t, rooms.KindFull, rooms.KindOf(err))
}

func TestJoinRoom_CapacityUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	store := seededStore()
	e := newEngine(t, store)
	room := createRoom(t, e, uuid.New(), intPtr(3))

	const joiners = 12
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		joined    int
		completed int
		full      int
	)
	for i := 0; i < joiners; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := e.JoinRoom(ctx, room.ID, uuid.New())
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if rooms.KindOf(err) == rooms.KindFull {
					full++
				}
				return
			}
			joined++
			if res.Completed {
				completed++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 2, joined)
	assert.Equal(t, joiners-2, full)
	assert.Equal(t, 1, completed, "only the join reaching capacity completes the room")

	count, err := store.CountMembers(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	got, err := store.GetRoom(ctx, room.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.CompletedAt)
}

func TestScenario_FillRoomThenLeaveIsRefused(t *testing.T) {
	ctx := context.Background()
	store := seededStore()
	e := newEngine(t, store)
	host, u1, u2 := uuid.New(), uuid.New(), uuid.New()
	room := createRoom(t, e, host, intPtr(3))

	res, err := e.JoinRoom(ctx, room.ID, u1)
	require.NoError(t, err)
	assert.Equal(t, 2, res.MemberCount)
	assert.False(t, res.Completed)
	assert.Nil(t, res.Room.CompletedAt)

	res, err = e.JoinRoom(ctx, room.ID, u2)
	require.NoError(t, err)
	assert.Equal(t, 3, res.MemberCount)
	assert.True(t, res.Completed)
	assert.NotNil(t, res.Room.CompletedAt)

	for _, who := range []uuid.UUID{u1, host} {
		_, err = e.LeaveRoom(ctx, room.ID, who)
		assert.Equal(t, rooms.KindCompleted, rooms.KindOf(err))
	}

	count, err := store.CountMembers(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	_, err = store.GetRoom(ctx, room.ID)
	assert.NoError(t, err)
}

func TestLeaveRoom_HostCascade(t *testing.T) {
	ctx := context.Background()
	store := seededStore()
	e := newEngine(t, store)
	host := uuid.New()
	room := createRoom(t, e, host, intPtr(6))
	for i := 0; i < 3; i++ {
		_, err := e.JoinRoom(ctx, room.ID, uuid.New())
		require.NoError(t, err)
	}

	res, err := e.LeaveRoom(ctx, room.ID, host)
	require.NoError(t, err)
	assert.True(t, res.Left)
	assert.True(t, res.WasHost)
	assert.True(t, res.RoomDeleted)

	_, err = store.GetRoom(ctx, room.ID)
	assert.ErrorIs(t, err, database.ErrNotFound)
	_, err = e.RoomByCode(ctx, strings.ToLower(room.Code))
	assert.Equal(t, rooms.KindNotFound, rooms.KindOf(err))
	members, err := store.ListMembers(ctx, room.ID)
	require.NoError(t, err)
	assert.Empty(t, members)
}

func TestLeaveRoom_MemberAndNonMember(t *testing.T) {
	ctx := context.Background()
	store := seededStore()
	e := newEngine(t, store)
	room := createRoom(t, e, uuid.New(), nil)
	u1 := uuid.New()
	_, err := e.JoinRoom(ctx, room.ID, u1)
	require.NoError(t, err)

	res, err := e.LeaveRoom(ctx, room.ID, uuid.New())
	require.NoError(t, err)
	assert.False(t, res.Left)

	res, err = e.LeaveRoom(ctx, room.ID, u1)
	require.NoError(t, err)
	assert.True(t, res.Left)
	assert.False(t, res.RoomDeleted)
	assert.Equal(t, 1, res.MemberCount)

	_, err = e.LeaveRoom(ctx, uuid.New(), u1)
	assert.Equal(t, rooms.KindNotFound, rooms.KindOf(err))
}

func TestDeleteExpiredRooms(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := seededStore()
	e := newEngine(t, store, rooms.WithClock(clock.Now))

	stale := createRoom(t, e, uuid.New(), nil)
	clock.Advance(90 * time.Minute)
	fresh := createRoom(t, e, uuid.New(), nil)
	clock.Advance(40 * time.Minute)

	deleted, err := e.DeleteExpiredRooms(ctx, 120)
	require.NoError(t, err)
	assert.Equal(t, []rooms.DeletedRoom{{ID: stale.ID, Code: stale.Code}}, deleted)

	_, err = store.GetRoom(ctx, stale.ID)
	assert.ErrorIs(t, err, database.ErrNotFound)
	_, err = store.GetRoom(ctx, fresh.ID)
	assert.NoError(t, err)
}

func TestDeleteExpiredRooms_JoinRefreshesActivity(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := seededStore()
	e := newEngine(t, store, rooms.WithClock(clock.Now))

	room := createRoom(t, e, uuid.New(), nil)
	clock.Advance(100 * time.Minute)
	_, err := e.JoinRoom(ctx, room.ID, uuid.New())
	require.NoError(t, err)
	clock.Advance(100 * time.Minute)

	deleted, err := e.DeleteExpiredRooms(ctx, 120)
	require.NoError(t, err)
	assert.Empty(t, deleted)
}

func TestReconcileCompletions(t *testing.T) {
	ctx := context.Background()
	store := seededStore()
	e := newEngine(t, store)
	now := time.Now().UTC()

	full := &models.Room{
		ID: uuid.New(), Code: "FULL22", Name: "full", HostID: uuid.New(), GameID: valorantID,
		Status: models.RoomStatusWaiting, MaxPlayers: 2, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, store.InsertRoom(ctx, full))
	for _, uid := range []uuid.UUID{full.HostID, uuid.New()} {
		require.NoError(t, store.InsertMember(ctx, &models.RoomMember{ID: uuid.New(), RoomID: full.ID, UserID: uid, JoinedAt: now}))
	}
	open := createRoom(t, e, uuid.New(), nil)

	stamped, err := e.ReconcileCompletions(ctx)
	require.NoError(t, err)
	require.Len(t, stamped, 1)
	assert.Equal(t, full.ID, stamped[0].ID)

	got, err := store.GetRoom(ctx, full.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.CompletedAt)
	got, err = store.GetRoom(ctx, open.ID)
	require.NoError(t, err)
	assert.Nil(t, got.CompletedAt)

	stamped, err = e.ReconcileCompletions(ctx)
	require.NoError(t, err)
	assert.Empty(t, stamped)
}

func TestSetDiscordLink(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, seededStore())
	host := uuid.New()
	room := createRoom(t, e, host, nil)

	_, err := e.SetDiscordLink(ctx, room.ID, uuid.New(), strPtr("https://discord.gg/x"))
	assert.Equal(t, rooms.KindNotHost, rooms.KindOf(err))

	_, err = e.SetDiscordLink(ctx, room.ID, host, strPtr("ftp://discord.gg/x"))
	assert.Equal(t, rooms.KindValidation, rooms.KindOf(err))

	updated, err := e.SetDiscordLink(ctx, room.ID, host, strPtr("https://discord.gg/x"))
	require.NoError(t, err)
	require.NotNil(t, updated.DiscordLink)
	assert.Equal(t, "https://discord.gg/x", *updated.DiscordLink)
}

func TestRosterAndMyRooms(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := seededStore()
	e := newEngine(t, store, rooms.WithClock(clock.Now))
	host, u1 := uuid.New(), uuid.New()
	store.PutUser(models.User{ID: host, Name: "Ana"})
	room := createRoom(t, e, host, nil)
	clock.Advance(time.Second)
	_, err := e.JoinRoom(ctx, room.ID, u1)
	require.NoError(t, err)

	players, err := e.Roster(ctx, room)
	require.NoError(t, err)
	require.Len(t, players, 2)
	assert.Equal(t, models.Player{ID: host, Name: "Ana", IsHost: true}, players[0])
	assert.Equal(t, u1, players[1].ID)
	assert.Equal(t, "Player", players[1].Name)
	assert.False(t, players[1].IsHost)

	mine, err := e.MyRooms(ctx, u1)
	require.NoError(t, err)
	assert.Empty(t, mine.Hosted)
	require.Len(t, mine.Joined, 1)
	assert.Equal(t, 2, mine.Joined[0].MemberCount)

	mine, err = e.MyRooms(ctx, host)
	require.NoError(t, err)
	require.Len(t, mine.Hosted, 1)
	assert.Empty(t, mine.Joined)
}

func TestRoomByCode_NormalizesInput(t *testing.T) {
	e := newEngine(t, seededStore())
	room := createRoom(t, e, uuid.New(), nil)

	got, err := e.RoomByCode(context.Background(), " "+strings.ToLower(room.Code)+" ")
	require.NoError(t, err)
	assert.Equal(t, room.ID, got.ID)

	_, err = e.RoomByCode(context.Background(), "nope")
	assert.Equal(t, rooms.KindNotFound, rooms.KindOf(err))
}
