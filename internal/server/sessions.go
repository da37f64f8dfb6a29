package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/penwyp/go-optrace/internal/core/model"
	"github.com/penwyp/go-optrace/internal/core/session"
	"github.com/penwyp/go-optrace/internal/util"
)

type startSessionRequest struct {
	CaseID    string `json:"caseId"`
	URL       string `json:"url"`
	UserAgent string `json:"userAgent"`
}

type actionRequest struct {
	ActionType string             `json:"actionType"`
	Target     *model.Fingerprint `json:"target"`
	Value      *string            `json:"value"`
}

// networkRequest carries bodies as the raw text seen by the page. Absent
// bodies stay absent in the timeline.
type networkRequest struct {
	Method  string  `json:"method"`
	URL     string  `json:"url"`
	Status  int     `json:"status"`
	ReqBody *string `json:"reqBody"`
	ResBody *string `json:"resBody"`
}

// submitRequest selects entries by id, mapping each to an edited title or ""
// to keep it. A missing selection submits every entry.
type submitRequest struct {
	Result     string            `json:"result"`
	DefectInfo *string           `json:"defectInfo"`
	Selected   map[string]string `json:"selected"`
}

func bodyBytes(s *string) []byte {
	if s == nil {
		return nil
	}
	return []byte(*s)
}

func (h *Handler) session(c echo.Context) (*session.Session, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.sessions[c.Param("session_id")]
	if !ok {
		return nil, echo.NewHTTPError(http.StatusNotFound, "session not found")
	}
	return s, nil
}

// StartSession begins recording a test case.
func (h *Handler) StartSession(c echo.Context) error {
	var req startSessionRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	s := session.New(req.CaseID, session.Options{
		Compression: h.cfg.Compression,
		Whitelist:   h.cfg.Whitelist,
		PageURL:     req.URL,
		UserAgent:   req.UserAgent,
	})
	id := s.Start()

	h.mu.Lock()
	h.sessions[id] = s
	h.mu.Unlock()

	logInfo(c, "session started", util.F("session_id", id), util.F("case_id", req.CaseID))
	return c.JSON(http.StatusCreated, map[string]string{"sessionId": id})
}

func (h *Handler) ListEntries(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.Entries())
}

// RecordAction appends a user action. Actions arriving after the session
// stopped are ignored with 204.
func (h *Handler) RecordAction(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	var req actionRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if req.ActionType == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "actionType is required")
	}

	entry, ok := s.RecordAction(req.ActionType, req.Target, req.Value)
	if !ok {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusCreated, entry)
}

// RecordNetwork appends a completed request. Calls outside the whitelist and
// calls made while the session is stopped are ignored with 204.
func (h *Handler) RecordNetwork(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	var req networkRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if req.Method == "" || req.URL == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "method and url are required")
	}

	entry, ok := s.RecordNetwork(session.NetworkEvent{
		Method:  req.Method,
		URL:     req.URL,
		Status:  req.Status,
		ReqBody: bodyBytes(req.ReqBody),
		ResBody: bodyBytes(req.ResBody),
	})
	if !ok {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusCreated, entry)
}

func (h *Handler) RemoveEntry(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	if !s.Remove(c.Param("entry_id")) {
		return echo.NewHTTPError(http.StatusNotFound, "entry not found")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) StopSession(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	s.Stop()
	return c.NoContent(http.StatusNoContent)
}

// SubmitSession stops the session and returns the submitted trace. The
// session is forgotten afterwards.
func (h *Handler) SubmitSession(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	var req submitRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if req.Result != model.ResultPass && req.Result != model.ResultFail {
		return echo.NewHTTPError(http.StatusBadRequest, "result must be PASS or FAIL")
	}

	s.Stop()
	var timeline []model.TimelineEntry
	if req.Selected != nil {
		timeline = s.Review(req.Selected)
	}
	trace := s.Submit(req.Result, req.DefectInfo, timeline)

	h.mu.Lock()
	delete(h.sessions, s.ID())
	h.mu.Unlock()

	logInfo(c, "session submitted",
		util.F("session_id", s.ID()),
		util.F("case_id", trace.Meta.CaseID),
		util.F("entries", len(trace.Timeline)),
	)
	return c.JSON(http.StatusOK, trace)
}
