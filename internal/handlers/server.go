// Package handlers exposes the room lifecycle over REST (gin) and a single
// websocket endpoint, and is the only place errors become HTTP statuses and
// client-facing codes.
package handlers

import (
	"net/http"
	"time"

	"github.com/caiocezartg/squad-finder-sub000/internal/database"
	"github.com/caiocezartg/squad-finder-sub000/internal/middleware"
	"github.com/caiocezartg/squad-finder-sub000/internal/models"
	"github.com/caiocezartg/squad-finder-sub000/internal/realtime"
	"github.com/caiocezartg/squad-finder-sub000/internal/rooms"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Sessions verifies (and in development, issues) session tokens.
type Sessions interface {
	Authenticate(token string) (uuid.UUID, error)
	Issue(userID uuid.UUID) (string, error)
}

// UserSeeder stores users created by the development login.
type UserSeeder interface {
	PutUser(u models.User)
}

// Options tune the transport layer.
type Options struct {
	SessionCookie  string
	PingPeriod     time.Duration
	WriteTimeout   time.Duration
	SendBuffer     int
	AllowedOrigins []string
	// DevUsers enables POST /dev/session when set.
	DevUsers UserSeeder
}

// Server holds the collaborators shared by every handler.
type Server struct {
	engine   *rooms.Engine
	hub      *realtime.Hub
	emitter  *rooms.Emitter
	sessions Sessions
	store    database.Store
	logger   *logrus.Logger
	opts     Options
}

func NewServer(engine *rooms.Engine, hub *realtime.Hub, emitter *rooms.Emitter, sessions Sessions, store database.Store, logger *logrus.Logger, opts Options) *Server {
	if opts.SessionCookie == "" {
		opts.SessionCookie = "auth_token"
	}
	if opts.PingPeriod <= 0 {
		opts.PingPeriod = 30 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Second
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 32
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	return &Server{
		engine:   engine,
		hub:      hub,
		emitter:  emitter,
		sessions: sessions,
		store:    store,
		logger:   logger,
		opts:     opts,
	}
}

// Router returns the service's HTTP handler. The websocket endpoint sits on
// the outer mux because the upgrade must hijack the raw ResponseWriter, which
// gin's writer refuses once the 101 status has been written.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.serveWS)
	mux.Handle("/", s.restRoutes())
	return mux
}

// restRoutes builds the gin engine serving every REST route.
func (s *Server) restRoutes() *gin.Engine {
	useJSONFieldNames()

	r := gin.New()
	r.Use(gin.Recovery(), middleware.LogMiddleware(s.logger))

	r.GET("/healthz", s.health)
	r.GET("/games", s.listGames)
	r.GET("/rooms", s.listRooms)

	authed := r.Group("/", middleware.RequireSession(s.sessions, s.opts.SessionCookie, s.unauthorized))
	authed.POST("/rooms", s.createRoom)
	authed.GET("/rooms/my", s.myRooms)
	authed.PATCH("/rooms/:code", s.updateRoom)
	authed.POST("/rooms/:code/join", s.joinRoom)
	authed.POST("/rooms/:code/leave", s.leaveRoom)
	authed.GET("/notifications", s.listNotifications)
	authed.POST("/notifications/:id/read", s.readNotification)
	authed.DELETE("/notifications/:id", s.dismissNotification)

	r.GET("/rooms/:code", s.getRoom)

	if s.opts.DevUsers != nil {
		r.POST("/dev/session", s.devSession)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, ErrorBody{Error: ErrorDetail{Code: CodeNotFound, Message: "Not found"}})
	})
	return r
}

func (s *Server) health(c *gin.Context) {
	if err := s.store.Ping(c.Request.Context()); err != nil {
		s.logger.WithError(err).Warn("health check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// currentUser returns the id set by RequireSession.
func currentUser(c *gin.Context) uuid.UUID {
	id, _ := middleware.UserID(c)
	return id
}
