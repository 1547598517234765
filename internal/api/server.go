package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"guildwatch/internal/queue"
	"guildwatch/internal/storage"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

// moderatorHeader carries the acting moderator's user id. The community
// site fronting this service resolves the session and forwards the id.
const moderatorHeader = "X-Moderator-ID"

type Server struct {
	queue  *queue.Service
	logger *zap.Logger
	echo   *echo.Echo
	addr   string
}

func New(queueService *queue.Service, logger *zap.Logger, addr string) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{queue: queueService, logger: logger, echo: e, addr: addr}

	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/api/moderation/flags", s.handleListFlags)
	e.POST("/api/moderation/flags", s.handleActFlag)

	return s
}

func (s *Server) Start() error {
	return s.echo.Start(s.addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

type paginationBody struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

type listResponse struct {
	Flags      []queue.FlagView `json:"flags"`
	Pagination paginationBody   `json:"pagination"`
}

func (s *Server) handleListFlags(c echo.Context) error {
	params := queue.ListParams{}
	if p := c.QueryParam("page"); p != "" {
		value, err := strconv.Atoi(p)
		if err != nil {
			return c.JSON(http.StatusBadRequest, errorBody("invalid page"))
		}
		params.Page = value
	}
	if p := c.QueryParam("limit"); p != "" {
		value, err := strconv.Atoi(p)
		if err != nil {
			return c.JSON(http.StatusBadRequest, errorBody("invalid limit"))
		}
		params.Limit = value
	}
	if p := c.QueryParam("resolved"); p != "" {
		value, err := strconv.ParseBool(p)
		if err != nil {
			return c.JSON(http.StatusBadRequest, errorBody("invalid resolved"))
		}
		params.Resolved = value
	}
	params.FlagType = c.QueryParam("flagType")

	result, err := s.queue.List(c.Request().Context(), c.Request().Header.Get(moderatorHeader), params)
	if err != nil {
		return s.writeError(c, err)
	}

	flags := result.Flags
	if flags == nil {
		flags = []queue.FlagView{}
	}
	return c.JSON(http.StatusOK, listResponse{
		Flags: flags,
		Pagination: paginationBody{
			Page:  result.Page,
			Limit: result.Limit,
			Total: result.Total,
			Pages: result.Pages,
		},
	})
}

type actRequest struct {
	FlagID int64  `json:"flagId"`
	Action string `json:"action"`
}

func (s *Server) handleActFlag(c echo.Context) error {
	var req actRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
	}
	if req.FlagID == 0 {
		return c.JSON(http.StatusBadRequest, errorBody("flagId is required"))
	}

	err := s.queue.Act(c.Request().Context(), c.Request().Header.Get(moderatorHeader), req.FlagID, req.Action)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "action": req.Action})
}

// writeError maps service errors onto status codes. Everything unexpected
// collapses into a generic 500; detail stays in the server log.
func (s *Server) writeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, queue.ErrForbidden):
		return c.JSON(http.StatusForbidden, errorBody("forbidden"))
	case errors.Is(err, queue.ErrBadAction):
		return c.JSON(http.StatusBadRequest, errorBody("invalid action"))
	case errors.Is(err, storage.ErrFlagNotFound):
		return c.JSON(http.StatusNotFound, errorBody("flag not found"))
	default:
		s.logger.Error("queue request failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, errorBody("an error occurred"))
	}
}

func errorBody(message string) map[string]string {
	return map[string]string{"error": message}
}
