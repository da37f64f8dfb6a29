package server

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/penwyp/go-optrace/internal/config"
	corecache "github.com/penwyp/go-optrace/internal/core/cache"
	"github.com/penwyp/go-optrace/internal/core/model"
	"github.com/penwyp/go-optrace/internal/core/report"
	"github.com/penwyp/go-optrace/internal/core/session"
	"github.com/penwyp/go-optrace/internal/core/simplify"
	"github.com/penwyp/go-optrace/internal/data/parser"
	"github.com/penwyp/go-optrace/internal/presentation/formatter"
	"github.com/penwyp/go-optrace/internal/util"
)

// Handler handles HTTP requests.
type Handler struct {
	cfg     *config.Config
	reports *corecache.MemoryCache

	mu       sync.Mutex
	sessions map[string]*session.Session
}

func NewHandler(cfg *config.Config) *Handler {
	return &Handler{
		cfg:      cfg,
		reports:  corecache.NewMemoryCache(corecache.DefaultCapacity),
		sessions: make(map[string]*session.Session),
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/v1/reports", h.CreateReport)
	e.POST("/v1/simplify", h.Simplify)
	e.POST("/v1/uploads", h.CreateUpload)

	e.POST("/v1/sessions", h.StartSession)
	e.GET("/v1/sessions/:session_id/entries", h.ListEntries)
	e.POST("/v1/sessions/:session_id/actions", h.RecordAction)
	e.POST("/v1/sessions/:session_id/network", h.RecordNetwork)
	e.DELETE("/v1/sessions/:session_id/entries/:entry_id", h.RemoveEntry)
	e.POST("/v1/sessions/:session_id/stop", h.StopSession)
	e.POST("/v1/sessions/:session_id/submit", h.SubmitSession)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
}

// compression resolves the simplification settings of a request. Query
// parameters override the configured ones.
func (h *Handler) compression(c echo.Context) (simplify.Config, error) {
	cfg := h.cfg.Compression
	if m := c.QueryParam("mode"); m != "" {
		mode, err := config.ParseMode(m)
		if err != nil {
			return cfg, echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		cfg.Mode = mode
	}
	if t := c.QueryParam("threshold"); t != "" {
		cfg.Threshold = simplify.ParseThreshold(t)
	}
	return cfg, nil
}

// reportFor generates the report of the posted trace. Reports of documents
// seen before are served from memory.
func (h *Handler) reportFor(c echo.Context, cfg simplify.Config) (*report.Report, error) {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "failed to read body").SetInternal(err)
	}

	key := corecache.Key(body, cfg)
	if r, ok := h.reports.Get(key); ok {
		return r, nil
	}

	trace, err := parser.Parse(body)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
	}
	r := report.Generate(trace, cfg)
	h.reports.Set(key, r)
	return r, nil
}

// CreateReport renders the deduplicated report of the posted trace in the
// requested format, text by default.
func (h *Handler) CreateReport(c echo.Context) error {
	cfg, err := h.compression(c)
	if err != nil {
		return err
	}
	format := c.QueryParam("format")
	if format == "" {
		format = "text"
	}
	f, err := formatter.New(format)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	r, err := h.reportFor(c, cfg)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := f.Format(&buf, r); err != nil {
		return err
	}

	logInfo(c, "report generated",
		util.F("case_id", r.CaseID),
		util.F("entries", r.Stats.Kept()),
		util.F("duplicates", r.Stats.Duplicates),
	)

	contentType := echo.MIMETextPlainCharsetUTF8
	if format == "json" || format == "upload" {
		contentType = echo.MIMEApplicationJSON
	}
	return c.Blob(http.StatusOK, contentType, buf.Bytes())
}

// Simplify compacts an arbitrary JSON document.
func (h *Handler) Simplify(c echo.Context) error {
	cfg, err := h.compression(c)
	if err != nil {
		return err
	}
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "failed to read body").SetInternal(err)
	}
	out, err := simplify.SimplifyJSON(body, cfg)
	if err != nil {
		if errors.Is(err, simplify.ErrInvalidJSON) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return err
	}
	return c.JSONBlob(http.StatusOK, out)
}

// UploadRequest is a report upload ready to be sent to the test platform.
type UploadRequest struct {
	Headers map[string]string   `json:"headers"`
	Payload model.UploadPayload `json:"payload"`
}

// CreateUpload builds the upload request of the posted trace. Nothing is
// transmitted.
func (h *Handler) CreateUpload(c echo.Context) error {
	cfg, err := h.compression(c)
	if err != nil {
		return err
	}
	r, err := h.reportFor(c, cfg)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, UploadRequest{
		Headers: h.cfg.UploadHeaders(),
		Payload: r.Upload(),
	})
}

func logInfo(c echo.Context, msg string, fields ...util.Field) {
	if l := util.LogContext(c.Request().Context()); l != nil {
		l.Info(msg, fields...)
	}
}
