package handlers

import (
	"net/http"

	"github.com/caiocezartg/squad-finder-sub000/internal/rooms"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type listNotificationsQuery struct {
	UnreadOnly bool `form:"unreadOnly"`
}

func (s *Server) listNotifications(c *gin.Context) {
	var q listNotificationsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		s.bindFailed(c, err)
		return
	}
	list, err := s.engine.Notifications(c.Request.Context(), currentUser(c), q.UnreadOnly)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": list})
}

// notificationID parses :id; a malformed id is reported as not found.
func (s *Server) notificationID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.fail(c, &rooms.Error{Kind: rooms.KindNotificationNotFound, UserID: currentUser(c), Err: err})
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) readNotification(c *gin.Context) {
	id, ok := s.notificationID(c)
	if !ok {
		return
	}
	if err := s.engine.MarkNotificationRead(c.Request.Context(), id, currentUser(c)); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) dismissNotification(c *gin.Context) {
	id, ok := s.notificationID(c)
	if !ok {
		return
	}
	if err := s.engine.DismissNotification(c.Request.Context(), id, currentUser(c)); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
