package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) listGames(c *gin.Context) {
	games, err := s.engine.Games(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"games": games})
}
