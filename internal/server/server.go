package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/tablo-labs/tablo-bridge/internal/config"
	"github.com/tablo-labs/tablo-bridge/internal/model"
	"github.com/tablo-labs/tablo-bridge/internal/service"
	"github.com/tablo-labs/tablo-bridge/internal/tablo"
)

// Server wires the bridge HTTP handlers. The channel and tune endpoints are
// what the home-automation platform calls; setup and log endpoints sit
// behind admin auth.
type Server struct {
	app      *fiber.App
	setupSvc *service.SetupService
	tuneSvc  *service.TuneService
	logSvc   *service.TuneLogService
	authSvc  *service.AuthService
	cfg      *config.Config
	log      zerolog.Logger
}

// New builds a server instance.
func New(cfg *config.Config, setupSvc *service.SetupService, tuneSvc *service.TuneService, logSvc *service.TuneLogService, authSvc *service.AuthService, log zerolog.Logger) *Server {
	app := fiber.New(fiber.Config{
		IdleTimeout:  cfg.HTTP.ReadTimeout,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		AppName:      "tablo-bridge",
	})
	s := &Server{
		app:      app,
		setupSvc: setupSvc,
		tuneSvc:  tuneSvc,
		logSvc:   logSvc,
		authSvc:  authSvc,
		cfg:      cfg,
		log:      log,
	}
	s.registerRoutes()
	return s
}

// Start listens and serves HTTP traffic.
func (s *Server) Start() error {
	return s.app.Listen(s.cfg.HTTP.Addr)
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) registerRoutes() {
	s.app.Get("/healthz", s.handleHealth)

	s.app.Post("/auth/login", s.handleLogin)
	s.app.Get("/auth/profile", s.handleProfile)

	// Platform-facing endpoints
	s.app.Get("/channels", s.handleChannels)
	s.app.Post("/tune", s.handleTunePost)
	s.app.Get("/tune/:channel", s.handleTunePath)

	// Admin endpoints
	admin := s.app.Group("/api", s.requireAuth)
	admin.Post("/setup", s.handleSetup)
	admin.Get("/status", s.handleStatus)
	admin.Get("/credentials", s.handleCredentials)
	admin.Delete("/credentials", s.handleReset)
	admin.Get("/channels/:id/airings/:date", s.handleAirings)

	logGroup := admin.Group("/tune/log")
	logGroup.Get("/list", s.handleLogList)
	logGroup.Get("/count/date", s.handleLogCountDate)
	logGroup.Get("/count/status", s.handleLogCountStatus)
	logGroup.Get("/count/channel", s.handleLogCountChannel)
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	resp := fiber.Map{"status": "ok"}
	ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
	defer cancel()
	status, err := s.setupSvc.Status(ctx)
	if err != nil {
		resp["device"] = fiber.Map{"status": "unknown", "error": err.Error()}
	} else {
		resp["device"] = status
	}
	return c.Status(http.StatusOK).JSON(resp)
}

func (s *Server) handleLogin(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.JSON(model.Error("malformed request body"))
	}
	if s.authSvc == nil || !s.authSvc.Enabled() {
		return c.JSON(model.Success("auth disabled", fiber.Map{
			"token":    "",
			"enabled":  false,
			"username": "guest",
		}))
	}
	token, err := s.authSvc.Authenticate(req.Username, req.Password)
	if err != nil {
		return c.Status(http.StatusUnauthorized).JSON(model.Error(err.Error()))
	}
	return c.JSON(model.Success("login ok", fiber.Map{
		"token":    token,
		"enabled":  true,
		"username": s.authSvc.Username(),
	}))
}

func (s *Server) handleProfile(c *fiber.Ctx) error {
	if s.authSvc == nil || !s.authSvc.Enabled() {
		return c.JSON(model.Success("ok", fiber.Map{
			"enabled":  false,
			"username": "guest",
		}))
	}
	token := extractBearerToken(c.Get("Authorization"))
	if token == "" {
		return c.Status(http.StatusUnauthorized).JSON(model.Error("not logged in"))
	}
	claims, err := s.authSvc.Validate(token)
	if err != nil {
		return c.Status(http.StatusUnauthorized).JSON(model.Error("session expired"))
	}
	return c.JSON(model.Success("ok", fiber.Map{
		"enabled":  true,
		"username": claims.Username,
	}))
}

func (s *Server) handleSetup(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Force    bool   `json:"force"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(model.Error("malformed request body"))
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		return c.Status(http.StatusBadRequest).JSON(model.Error("username and password are required"))
	}
	creds, err := s.setupSvc.Setup(c.Context(), req.Username, req.Password, req.Force)
	if err != nil {
		return s.serviceError(c, err)
	}
	return c.JSON(model.Success("bridge configured", creds.View()))
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	status, err := s.setupSvc.Status(c.Context())
	if err != nil {
		return s.serviceError(c, err)
	}
	return c.JSON(model.Success("ok", status))
}

func (s *Server) handleCredentials(c *fiber.Ctx) error {
	creds, err := s.setupSvc.Credentials(c.Context())
	if err != nil {
		return s.serviceError(c, err)
	}
	return c.JSON(model.Success("ok", creds.View()))
}

func (s *Server) handleReset(c *fiber.Ctx) error {
	if err := s.setupSvc.Reset(c.Context()); err != nil {
		return s.serviceError(c, err)
	}
	return c.JSON(model.Success("credentials removed", nil))
}

func (s *Server) handleChannels(c *fiber.Ctx) error {
	channels, err := s.tuneSvc.Channels(c.Context())
	if err != nil {
		return s.serviceError(c, err)
	}
	return c.JSON(model.Success("ok", channels))
}

func (s *Server) handleAirings(c *fiber.Ctx) error {
	airings, err := s.tuneSvc.Airings(c.Context(), c.Params("id"), c.Params("date"))
	if err != nil {
		return s.serviceError(c, err)
	}
	return c.JSON(model.Success("ok", airings))
}

func (s *Server) handleTunePost(c *fiber.Ctx) error {
	var req service.TuneRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(model.Error("malformed request body"))
	}
	return s.dispatchTune(c, req)
}

// handleTunePath accepts either a channel number ("7.1") or an identifier in
// the path, mirroring the POST form for callers that can only issue GETs.
func (s *Server) handleTunePath(c *fiber.Ctx) error {
	channel := strings.TrimSpace(c.Params("channel"))
	req := service.TuneRequest{ChannelID: channel}
	if looksLikeChannelNumber(channel) {
		req = service.TuneRequest{ChannelNumber: channel}
	}
	return s.dispatchTune(c, req)
}

func (s *Server) dispatchTune(c *fiber.Ctx, req service.TuneRequest) error {
	result, err := s.tuneSvc.Tune(c.Context(), req)
	if err != nil {
		return s.serviceError(c, err)
	}
	return c.JSON(model.Success("tuned", result))
}

func (s *Server) handleLogList(c *fiber.Ctx) error {
	filter := parseLogFilter(c)
	page, err := s.logSvc.Query(c.Context(), filter)
	if err != nil {
		return s.serviceError(c, err)
	}
	return c.JSON(model.Success("ok", page))
}

func (s *Server) handleLogCountDate(c *fiber.Ctx) error {
	begin, end := parseTimeRange(c)
	dateType := c.Query("dateType", "day")
	data, err := s.logSvc.CountByDate(c.Context(), dateType, begin, end)
	if err != nil {
		return s.serviceError(c, err)
	}
	return c.JSON(model.Success("ok", data))
}

func (s *Server) handleLogCountStatus(c *fiber.Ctx) error {
	begin, end := parseTimeRange(c)
	data, err := s.logSvc.CountByStatus(c.Context(), begin, end)
	if err != nil {
		return s.serviceError(c, err)
	}
	return c.JSON(model.Success("ok", data))
}

func (s *Server) handleLogCountChannel(c *fiber.Ctx) error {
	begin, end := parseTimeRange(c)
	data, err := s.logSvc.CountByChannel(c.Context(), begin, end)
	if err != nil {
		return s.serviceError(c, err)
	}
	return c.JSON(model.Success("ok", data))
}

// serviceError maps service and client errors onto HTTP statuses so callers
// can tell "not configured" from "channel not found" from "device
// unreachable".
func (s *Server) serviceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrNotConfigured):
		return c.Status(http.StatusPreconditionFailed).JSON(model.Error(err.Error()))
	case errors.Is(err, service.ErrAlreadyConfigured):
		return c.Status(http.StatusConflict).JSON(model.Error(err.Error()))
	case errors.Is(err, service.ErrChannelNotFound):
		return c.Status(http.StatusNotFound).JSON(model.Error(err.Error()))
	case errors.Is(err, service.ErrMissingChannel):
		return c.Status(http.StatusBadRequest).JSON(model.Error(err.Error()))
	case tablo.IsAuthenticationError(err):
		return c.Status(http.StatusUnauthorized).JSON(model.Error(err.Error()))
	case tablo.IsConnectionError(err):
		return c.Status(http.StatusBadGateway).JSON(model.Error(err.Error()))
	default:
		s.log.Error().Err(err).Msg("request failed")
		return c.Status(http.StatusInternalServerError).JSON(model.Error(err.Error()))
	}
}

func (s *Server) requireAuth(c *fiber.Ctx) error {
	if s.authSvc == nil || !s.authSvc.Enabled() {
		return c.Next()
	}
	token := extractBearerToken(c.Get("Authorization"))
	if token == "" {
		return c.Status(http.StatusUnauthorized).JSON(model.Error("not logged in"))
	}
	claims, err := s.authSvc.Validate(token)
	if err != nil {
		return c.Status(http.StatusUnauthorized).JSON(model.Error("session expired"))
	}
	c.Locals("username", claims.Username)
	return c.Next()
}

func extractBearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// looksLikeChannelNumber reports whether value has the "major.minor" shape.
func looksLikeChannelNumber(value string) bool {
	major, minor, ok := strings.Cut(value, ".")
	if !ok || major == "" || minor == "" {
		return false
	}
	if _, err := strconv.Atoi(major); err != nil {
		return false
	}
	_, err := strconv.Atoi(minor)
	return err == nil
}

func parseLogFilter(c *fiber.Ctx) model.TuneLogFilter {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	pageSize, _ := strconv.Atoi(c.Query("pageSize", "10"))
	begin, end := parseTimeRange(c)
	return model.TuneLogFilter{
		ChannelID: c.Query("channelId"),
		Status:    c.Query("status"),
		BeginTime: begin,
		EndTime:   end,
		Page:      page,
		PageSize:  pageSize,
	}
}

func parseTimeRange(c *fiber.Ctx) (*time.Time, *time.Time) {
	begin := parseTime(c.Query("beginTime"))
	end := parseTime(c.Query("endTime"))
	return begin, end
}

func parseTime(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	layouts := []string{
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			utc := t.UTC()
			return &utc
		}
	}
	return nil
}
