package handlers

import (
	"context"
	"net/http"

	"github.com/caiocezartg/squad-finder-sub000/internal/models"
	"github.com/caiocezartg/squad-finder-sub000/internal/rooms"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type createRoomRequest struct {
	Name        string    `json:"name" binding:"required,max=100"`
	GameID      uuid.UUID `json:"gameId" binding:"required"`
	MaxPlayers  *int      `json:"maxPlayers" binding:"omitempty,min=2,max=20"`
	DiscordLink *string   `json:"discordLink" binding:"omitempty,url"`
	IsPrivate   bool      `json:"isPrivate"`
	Tags        []string  `json:"tags" binding:"omitempty,max=5,dive,min=1,max=20"`
	Language    *string   `json:"language" binding:"omitempty,min=2,max=8"`
}

type updateRoomRequest struct {
	DiscordLink *string `json:"discordLink" binding:"omitempty,url"`
}

// roomDetail is a room with its roster, as returned by GET /rooms/:code.
type roomDetail struct {
	models.RoomListing
	Players []models.Player `json:"players"`
}

type joinResponse struct {
	Member        *models.RoomMember `json:"member"`
	Room          *models.Room       `json:"room"`
	MemberCount   int                `json:"memberCount"`
	AlreadyMember bool               `json:"alreadyMember"`
}

type leaveResponse struct {
	Left        bool `json:"left"`
	RoomDeleted bool `json:"roomDeleted"`
	MemberCount int  `json:"memberCount"`
}

func (s *Server) createRoom(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.bindFailed(c, err)
		return
	}

	room, err := s.engine.CreateRoom(c.Request.Context(), rooms.CreateParams{
		Name:        req.Name,
		GameID:      req.GameID,
		MaxPlayers:  req.MaxPlayers,
		HostID:      currentUser(c),
		DiscordLink: req.DiscordLink,
		IsPrivate:   req.IsPrivate,
		Tags:        req.Tags,
		Language:    req.Language,
	})
	if err != nil {
		s.fail(c, err)
		return
	}

	listing := models.RoomListing{Room: *room, MemberCount: 1}
	s.hub.RoomCreated(listing)
	c.JSON(http.StatusCreated, listing)
}

func (s *Server) listRooms(c *gin.Context) {
	list, err := s.engine.ListOpenRooms(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": list})
}

func (s *Server) getRoom(c *gin.Context) {
	ctx := c.Request.Context()
	room, err := s.engine.RoomByCode(ctx, c.Param("code"))
	if err != nil {
		s.fail(c, err)
		return
	}
	players, err := s.engine.Roster(ctx, room)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, roomDetail{
		RoomListing: models.RoomListing{Room: *room, MemberCount: len(players)},
		Players:     players,
	})
}

func (s *Server) myRooms(c *gin.Context) {
	mine, err := s.engine.MyRooms(c.Request.Context(), currentUser(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, mine)
}

func (s *Server) updateRoom(c *gin.Context) {
	var req updateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.bindFailed(c, err)
		return
	}
	ctx := c.Request.Context()
	room, err := s.engine.RoomByCode(ctx, c.Param("code"))
	if err != nil {
		s.fail(c, err)
		return
	}
	updated, err := s.engine.SetDiscordLink(ctx, room.ID, currentUser(c), req.DiscordLink)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (s *Server) joinRoom(c *gin.Context) {
	ctx := c.Request.Context()
	userID := currentUser(c)

	room, err := s.engine.RoomByCode(ctx, c.Param("code"))
	if err != nil {
		s.fail(c, err)
		return
	}
	res, err := s.engine.JoinRoom(ctx, room.ID, userID)
	if err != nil {
		s.fail(c, err)
		return
	}

	if !res.AlreadyMember {
		s.hub.RoomUpdated(res.Room.ID, res.Room.Code, res.MemberCount)
	}
	if res.Completed {
		s.hub.RoomReady(res.Room)
		s.notifyRoomReady(ctx, res.Room)
	}

	c.JSON(http.StatusOK, joinResponse{
		Member:        res.Member,
		Room:          res.Room,
		MemberCount:   res.MemberCount,
		AlreadyMember: res.AlreadyMember,
	})
}

// notifyRoomReady records notifications on its own goroutine so the join
// response does not wait for them.
func (s *Server) notifyRoomReady(ctx context.Context, room *models.Room) {
	s.logger.WithFields(logrus.Fields{"room_id": room.ID, "room_code": room.Code}).Info("room ready, emitting notifications")
	go s.emitter.Emit(context.WithoutCancel(ctx), room.ID)
}

func (s *Server) leaveRoom(c *gin.Context) {
	ctx := c.Request.Context()
	userID := currentUser(c)

	room, err := s.engine.RoomByCode(ctx, c.Param("code"))
	if err != nil {
		s.fail(c, err)
		return
	}
	res, err := s.engine.LeaveRoom(ctx, room.ID, userID)
	if err != nil {
		s.fail(c, err)
		return
	}
	if !res.Left {
		s.fail(c, &rooms.Error{Kind: rooms.KindNotMember, RoomID: room.ID, RoomCode: room.Code, UserID: userID})
		return
	}

	if res.RoomDeleted {
		s.hub.RoomDeleted(room.ID, room.Code)
	} else {
		s.hub.DetachUser(room.ID, room.Code, userID)
		s.hub.RoomUpdated(room.ID, room.Code, res.MemberCount)
	}

	c.JSON(http.StatusOK, leaveResponse{
		Left:        true,
		RoomDeleted: res.RoomDeleted,
		MemberCount: res.MemberCount,
	})
}
