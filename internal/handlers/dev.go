package handlers

import (
	"net/http"
	"strings"

	"github.com/caiocezartg/squad-finder-sub000/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type devSessionRequest struct {
	Name  string  `json:"name" binding:"required,max=50"`
	Image *string `json:"image" binding:"omitempty,url"`
}

// devSession creates a throwaway user and signs a session for it. It stands
// in for the identity provider when running locally.
func (s *Server) devSession(c *gin.Context) {
	var req devSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.bindFailed(c, err)
		return
	}

	user := models.User{ID: uuid.New(), Name: strings.TrimSpace(req.Name), Image: req.Image}
	s.opts.DevUsers.PutUser(user)

	token, err := s.sessions.Issue(user.ID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(s.opts.SessionCookie, token, 0, "/", "", false, true)
	c.JSON(http.StatusCreated, gin.H{"user": user, "token": token})
}
