// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/jeranaias/cortex/internal/model"
)

// Stream terminator markers. Everything before the marker is reply text.
const (
	endMarker   = "[END]"
	errorMarker = "[ERROR]"
)

// Server is the development chat backend.
type Server struct {
	echo      *echo.Echo
	store     *Store
	responder Responder
}

// Option configures a Server.
type Option func(*Server)

// WithResponder replaces the default echo responder.
func WithResponder(r Responder) Option {
	return func(s *Server) { s.responder = r }
}

// New builds a Server on top of store.
func New(store *Store, opts ...Option) *Server {
	s := &Server{
		store:     store,
		responder: &EchoResponder{Delay: 20 * time.Millisecond},
	}
	for _, opt := range opts {
		opt(s)
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(50))))

	e.GET("/ping", s.ping)
	e.GET("/health", s.health)
	e.GET("/chats", s.listChats)
	e.POST("/chats", s.createChat)
	e.GET("/chats/:id", s.getMessages)
	e.PUT("/chats/:id", s.renameChat)
	e.DELETE("/chats/:id", s.deleteChat)
	e.PUT("/chats/:id/personality", s.updatePersonality)
	e.GET("/personalities", s.listPersonalities)
	e.POST("/chat/:id", s.streamChat)

	s.echo = e
	return s
}

// Handler exposes the server as an http.Handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on addr and serves until Shutdown.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Close immediately stops the server.
func (s *Server) Close() error {
	return s.echo.Close()
}

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

type createChatRequest struct {
	ChatTitle     string `json:"chat_title"`
	PersonalityID string `json:"personality_id"`
}

type renameChatRequest struct {
	Title string `json:"title"`
}

type updatePersonalityRequest struct {
	PersonalityID string `json:"personality_id"`
}

type sendRequest struct {
	Message       string    `json:"message"`
	Files         []string  `json:"files"`
	PersonalityID string    `json:"personality_id"`
	CreatedAt     time.Time `json:"created_at"`
}

// =============================================================================
// HANDLERS
// =============================================================================

func (s *Server) ping(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// health reports liveness plus a database round-trip, so a probe catches a
// wedged sqlite handle and not just a listening socket.
func (s *Server) health(c echo.Context) error {
	if err := s.store.Healthy(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "degraded",
			"error":  err.Error(),
		})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listChats(c echo.Context) error {
	chats, err := s.store.ListChats(c.Request().Context())
	if err != nil {
		return internalError(c, err)
	}
	return c.JSON(http.StatusOK, chats)
}

func (s *Server) createChat(c echo.Context) error {
	var req createChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.ChatTitle == "" {
		req.ChatTitle = "New chat"
	}
	if req.PersonalityID == "" {
		req.PersonalityID = model.DefaultPersonalityID
	}

	chat := model.NewChat(req.ChatTitle, req.PersonalityID)
	if err := s.store.CreateChat(c.Request().Context(), chat); err != nil {
		return internalError(c, err)
	}
	return c.JSON(http.StatusOK, chat)
}

func (s *Server) getMessages(c echo.Context) error {
	ctx := c.Request().Context()
	if _, err := s.store.GetChat(ctx, c.Param("id")); err != nil {
		return storeError(c, err)
	}
	messages, err := s.store.ListMessages(ctx, c.Param("id"))
	if err != nil {
		return internalError(c, err)
	}
	return c.JSON(http.StatusOK, messages)
}

func (s *Server) renameChat(c echo.Context) error {
	var req renameChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Title == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "title is required"})
	}
	if err := s.store.UpdateChatTitle(c.Request().Context(), c.Param("id"), req.Title); err != nil {
		return storeError(c, err)
	}
	return c.NoContent(http.StatusOK)
}

func (s *Server) deleteChat(c echo.Context) error {
	if err := s.store.DeleteChat(c.Request().Context(), c.Param("id")); err != nil {
		return storeError(c, err)
	}
	return c.NoContent(http.StatusOK)
}

func (s *Server) updatePersonality(c echo.Context) error {
	var req updatePersonalityRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.PersonalityID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "personality_id is required"})
	}
	if err := s.store.UpdateChatPersonality(c.Request().Context(), c.Param("id"), req.PersonalityID); err != nil {
		return storeError(c, err)
	}
	return c.NoContent(http.StatusOK)
}

func (s *Server) listPersonalities(c echo.Context) error {
	personalities, err := s.store.ListPersonalities(c.Request().Context())
	if err != nil {
		return internalError(c, err)
	}
	return c.JSON(http.StatusOK, personalities)
}

// streamChat handles a send: it records the user message, streams the
// responder's reply as plain text chunks, and terminates the stream with an
// in-band marker. The assistant message is persisted only when the reply
// completes cleanly.
func (s *Server) streamChat(c echo.Context) error {
	ctx := c.Request().Context()
	chatID := c.Param("id")

	var req sendRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Message == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "message is required"})
	}

	chat, err := s.store.GetChat(ctx, chatID)
	if err != nil {
		return storeError(c, err)
	}
	history, err := s.store.ListMessages(ctx, chatID)
	if err != nil {
		return internalError(c, err)
	}

	personalityID := req.PersonalityID
	if personalityID == "" {
		personalityID = chat.PersonalityID
	}
	personality := s.lookupPersonality(c, personalityID)

	userMsg := model.NewUserMessage(chatID, req.Message, "user")
	if !req.CreatedAt.IsZero() {
		userMsg.Timestamp = req.CreatedAt
	}
	if err := s.store.AppendMessage(ctx, userMsg); err != nil {
		return internalError(c, err)
	}

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, echo.MIMETextPlainCharsetUTF8)
	resp.WriteHeader(http.StatusOK)

	var full strings.Builder
	replyErr := s.responder.Reply(ctx, &ReplyRequest{
		Chat:        chat,
		Personality: personality,
		History:     history,
		Message:     req.Message,
		Files:       req.Files,
	}, func(chunk string) error {
		full.WriteString(chunk)
		if _, err := io.WriteString(resp, chunk); err != nil {
			return err
		}
		resp.Flush()
		return nil
	})

	if replyErr != nil {
		// The client went away or the responder failed; either way the
		// partial reply is not persisted.
		if ctx.Err() == nil {
			io.WriteString(resp, errorMarker+replyErr.Error())
			resp.Flush()
		}
		return nil
	}

	reply := model.NewAssistantMessage(chatID, full.String())
	if err := s.store.AppendMessage(ctx, reply); err != nil {
		io.WriteString(resp, errorMarker+"failed to persist reply")
		resp.Flush()
		return nil
	}

	io.WriteString(resp, endMarker)
	resp.Flush()
	return nil
}

func (s *Server) lookupPersonality(c echo.Context, id string) *model.Personality {
	personalities, err := s.store.ListPersonalities(c.Request().Context())
	if err != nil {
		return nil
	}
	for _, p := range personalities {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func storeError(c echo.Context, err error) error {
	if errors.Is(err, ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "chat not found"})
	}
	return internalError(c, err)
}

func internalError(c echo.Context, err error) error {
	c.Logger().Errorf("request failed: %v", err)
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
}
