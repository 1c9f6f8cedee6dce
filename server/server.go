// Package server exposes the tutor over HTTP: a JSON API mirroring the
// session lifecycle, read endpoints for profiles and memories, and a
// WebSocket relay for interactive clients.
package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/rafalkola/language-ai-bot/core"
	"github.com/rafalkola/language-ai-bot/memory"
	"github.com/rafalkola/language-ai-bot/profile"
	"github.com/rafalkola/language-ai-bot/prompt"
	"github.com/rafalkola/language-ai-bot/session"
)

// Server hosts the HTTP API over a set of per-user sessions.
//
// Sessions are created lazily on first use and serialized per user: the
// session type is single-writer, so concurrent requests for the same user
// queue on the session lock.
type Server struct {
	echo     *echo.Echo
	deps     session.Deps
	memories *memory.Service
	profiles *profile.Store

	mu       sync.Mutex
	sessions map[string]*sessionEntry
}

type sessionEntry struct {
	mu sync.Mutex
	s  *session.Session
}

// New creates a server over the given session collaborators.
func New(deps session.Deps, memories *memory.Service, profiles *profile.Store) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())

	srv := &Server{
		echo:     e,
		deps:     deps,
		memories: memories,
		profiles: profiles,
		sessions: make(map[string]*sessionEntry),
	}

	e.GET("/healthz", srv.handleHealth)
	e.POST("/api/session/start", srv.handleStart)
	e.POST("/api/session/mode", srv.handleMode)
	e.POST("/api/session/chat", srv.handleChat)
	e.POST("/api/session/end", srv.handleEnd)
	e.POST("/api/session/reset", srv.handleReset)
	e.GET("/api/profile/:id", srv.handleProfile)
	e.GET("/api/memories/:id", srv.handleMemories)
	e.GET("/ws", srv.handleWebSocket)

	return srv
}

// Handler exposes the routed handler for embedding and tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start runs the HTTP listener until it fails or Shutdown is called.
func (s *Server) Start(addr string) error {
	log.Printf("[SERVER] Listening on %s", addr)
	return s.echo.Start(addr)
}

// Shutdown gracefully stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// entry returns the user's session entry, creating it on first use.
func (s *Server) entry(userID string) *sessionEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[userID]
	if !ok {
		e = &sessionEntry{s: session.New(userID, s.deps)}
		s.sessions[userID] = e
	}
	return e
}

// withSession runs fn with the user's session held under its lock.
func (s *Server) withSession(userID string, fn func(*session.Session) error) error {
	e := s.entry(userID)
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.s)
}

type startRequest struct {
	UserID   string `json:"user_id"`
	Language string `json:"language"`
	Level    string `json:"level"`
}

type modeRequest struct {
	UserID string `json:"user_id"`
	Mode   string `json:"mode"`
}

type chatRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

type userRequest struct {
	UserID string `json:"user_id"`
}

type messageResponse struct {
	Message string `json:"message"`
	State   string `json:"state"`
}

type evaluationResponse struct {
	Score   *float64 `json:"score"`
	Summary string   `json:"summary"`
	State   string   `json:"state"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStart(c echo.Context) error {
	var req startRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.UserID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id is required")
	}
	if !core.ValidLanguage(req.Language) {
		return echo.NewHTTPError(http.StatusBadRequest, "unsupported language")
	}
	level, ok := core.ParseLevel(req.Level)
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "unsupported level")
	}

	var welcome string
	var state session.State
	err := s.withSession(req.UserID, func(sess *session.Session) error {
		var err error
		welcome, err = sess.Start(c.Request().Context(), req.Language, level)
		state = sess.State()
		return err
	})
	if err != nil {
		return sessionError(err)
	}
	return c.JSON(http.StatusOK, messageResponse{Message: welcome, State: state.String()})
}

func (s *Server) handleMode(c echo.Context) error {
	var req modeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.UserID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id is required")
	}
	mode, ok := prompt.ParseMode(req.Mode)
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "unsupported mode")
	}

	var response string
	var state session.State
	err := s.withSession(req.UserID, func(sess *session.Session) error {
		var err error
		response, err = sess.SelectMode(c.Request().Context(), mode)
		state = sess.State()
		return err
	})
	if err != nil {
		return sessionError(err)
	}
	return c.JSON(http.StatusOK, messageResponse{Message: response, State: state.String()})
}

func (s *Server) handleChat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.UserID == "" || req.Message == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id and message are required")
	}

	var reply string
	var state session.State
	err := s.withSession(req.UserID, func(sess *session.Session) error {
		var err error
		reply, err = sess.Chat(c.Request().Context(), req.Message)
		state = sess.State()
		return err
	})
	if err != nil {
		return sessionError(err)
	}
	return c.JSON(http.StatusOK, messageResponse{Message: reply, State: state.String()})
}

func (s *Server) handleEnd(c echo.Context) error {
	var req userRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.UserID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id is required")
	}

	var eval *session.Evaluation
	var state session.State
	err := s.withSession(req.UserID, func(sess *session.Session) error {
		var err error
		eval, err = sess.EndLesson(c.Request().Context())
		state = sess.State()
		return err
	})
	if err != nil {
		return sessionError(err)
	}
	return c.JSON(http.StatusOK, evaluationResponse{Score: eval.Score, Summary: eval.Summary, State: state.String()})
}

func (s *Server) handleReset(c echo.Context) error {
	var req userRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.UserID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id is required")
	}

	var state session.State
	_ = s.withSession(req.UserID, func(sess *session.Session) error {
		sess.Reset()
		state = sess.State()
		return nil
	})
	return c.JSON(http.StatusOK, messageResponse{State: state.String()})
}

func (s *Server) handleProfile(c echo.Context) error {
	p, err := s.profiles.Load(c.Param("id"))
	if err != nil {
		if errors.Is(err, profile.ErrBadUserID) {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid user id")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "profile load failed")
	}
	return c.JSON(http.StatusOK, p)
}

func (s *Server) handleMemories(c echo.Context) error {
	memories, err := s.memories.Retrieve(c.Request().Context(), c.QueryParam("q"), c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "memory retrieval failed")
	}
	if memories == nil {
		memories = []string{}
	}
	return c.JSON(http.StatusOK, map[string][]string{"memories": memories})
}

// sessionError maps lifecycle errors to HTTP status codes. Invalid
// transitions are client errors, everything else is a 502 from the model
// provider path.
func sessionError(err error) error {
	switch {
	case errors.Is(err, session.ErrNotStarted),
		errors.Is(err, session.ErrAlreadyStarted),
		errors.Is(err, session.ErrNoMode),
		errors.Is(err, session.ErrLessonEnded):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		log.Printf("[SERVER] Session error: %v", err)
		return echo.NewHTTPError(http.StatusBadGateway, "assistant unavailable")
	}
}
