package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"visitor-counter/internal/classifier"
	"visitor-counter/internal/domain"
	"visitor-counter/internal/service"
	apperrors "visitor-counter/pkg/errors"
	"visitor-counter/pkg/logger"
)

const (
	defaultPage        = "home"
	maxVisitBodyBytes  = 4 << 10
	defaultHistoryDays = 30
	unknownPageName    = "صفحة غير محددة"
)

// VisitorHandler handles visitor tracking HTTP requests
type VisitorHandler struct {
	services *service.Services
	catalog  domain.PageCatalog
	location *time.Location
	logger   *logger.Logger
	now      func() time.Time
}

// NewVisitorHandler creates a new visitor handler. Dates in query strings
// are read as calendar days in location.
func NewVisitorHandler(services *service.Services, catalog domain.PageCatalog, location *time.Location, log *logger.Logger) *VisitorHandler {
	if location == nil {
		location = time.Local
	}
	return &VisitorHandler{
		services: services,
		catalog:  catalog,
		location: location,
		logger:   log.Component("visitor_handler"),
		now:      time.Now,
	}
}

// VisitRequest is the optional JSON body of a count request
type VisitRequest struct {
	Page        string `json:"page"`
	Governorate string `json:"governorate"`
}

// VisitorInfo describes the recorded visit with display names
type VisitorInfo struct {
	DeviceType string `json:"device_type"`
	Browser    string `json:"browser"`
	Page       string `json:"page"`
}

// VisitResponse represents the response for visit recording
type VisitResponse struct {
	Success     bool                  `json:"success"`
	Message     string                `json:"message"`
	VisitorInfo *VisitorInfo          `json:"visitor_info,omitempty"`
	RateLimit   *domain.RateLimitInfo `json:"rate_limit,omitempty"`
}

// RegisterRoutes registers visitor handler routes with the router
func (h *VisitorHandler) RegisterRoutes(r chi.Router) {
	r.Route("/visitors", func(r chi.Router) {
		r.Post("/count/", h.RecordVisit)
		r.Get("/stats/", h.GetStats)
		r.Get("/pages/", h.GetPageStats)
		r.Get("/hourly/", h.GetHourlyStats)
		r.Get("/tracked-pages/", h.GetTrackedPages)
		r.Get("/recent/", h.GetRecentVisits)
		r.Get("/history/", h.GetHistory)
		r.Post("/reset/", h.ResetCounters)
	})
}

// RecordVisit handles POST /api/visitors/count/
func (h *VisitorHandler) RecordVisit(w http.ResponseWriter, r *http.Request) {
	req, err := decodeVisitRequest(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	userAgent := r.UserAgent()
	client := classifier.Classify(userAgent)

	record := domain.VisitRecord{
		ClientIdentity: clientIP(r),
		Page:           req.Page,
		Timestamp:      h.now(),
		DeviceClass:    client.Device,
		BrowserClass:   client.Browser,
		Region:         req.Governorate,
		UserAgent:      truncate(userAgent, 512),
		IsAutomated:    client.Automated,
	}

	result, err := h.services.Visitor.RecordVisit(r.Context(), record)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	switch result.Outcome {
	case domain.OutcomeRejected:
		writeJSON(w, h.logger, http.StatusOK, MessageResponse{
			Success: true,
			Message: "ignored",
			Reason:  result.Reason,
		})

	case domain.OutcomeRateLimited:
		setRateLimitHeaders(w, result.RateLimit)
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(result.RateLimit, h.now())))
		writeError(w, r, h.logger, apperrors.NewRateLimitError("visit limit exceeded, please try again later"))

	default:
		setRateLimitHeaders(w, result.RateLimit)
		writeJSON(w, h.logger, http.StatusCreated, VisitResponse{
			Success: true,
			Message: "Visit recorded successfully",
			VisitorInfo: &VisitorInfo{
				DeviceType: classifier.DeviceName(record.DeviceClass),
				Browser:    classifier.BrowserName(record.BrowserClass),
				Page:       h.pageName(record.Page),
			},
			RateLimit: result.RateLimit,
		})
	}
}

// GetStats handles GET /api/visitors/stats/
func (h *VisitorHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, DataResponse{
		Success: true,
		Data:    h.services.Stats.GetGlobalStats(r.Context()),
	})
}

// GetPageStats handles GET /api/visitors/pages/
func (h *VisitorHandler) GetPageStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, DataResponse{
		Success: true,
		Data:    h.services.Stats.GetPageStats(r.Context()),
	})
}

// GetHourlyStats handles GET /api/visitors/hourly/
func (h *VisitorHandler) GetHourlyStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, DataResponse{
		Success: true,
		Data:    h.services.Stats.GetHourlyStats(r.Context()),
	})
}

// GetTrackedPages handles GET /api/visitors/tracked-pages/
func (h *VisitorHandler) GetTrackedPages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, DataResponse{
		Success: true,
		Data:    h.catalog,
	})
}

// GetRecentVisits handles GET /api/visitors/recent/?date=YYYY-MM-DD&limit=N
func (h *VisitorHandler) GetRecentVisits(w http.ResponseWriter, r *http.Request) {
	date := h.now()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, h.location)
		if err != nil {
			writeError(w, r, h.logger, apperrors.NewValidationError("invalid date", map[string]interface{}{
				"date": "expected YYYY-MM-DD",
			}))
			return
		}
		date = parsed
	}

	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	visits, err := h.services.Visitor.GetRecentVisits(r.Context(), date, int64(limit))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, DataResponse{Success: true, Data: visits})
}

// GetHistory handles GET /api/visitors/history/?days=N
func (h *VisitorHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	if h.services.Snapshot == nil {
		writeError(w, r, h.logger, apperrors.NewNotFoundError("snapshot history is not enabled"))
		return
	}

	days, err := queryInt(r, "days", defaultHistoryDays)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	history, err := h.services.Snapshot.GetHistory(r.Context(), days)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, DataResponse{Success: true, Data: history})
}

// ResetCounters handles POST /api/visitors/reset/
func (h *VisitorHandler) ResetCounters(w http.ResponseWriter, r *http.Request) {
	if err := h.services.Reset.ResetDaily(r.Context()); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.logger.Info("Daily counters reset via API")
	writeJSON(w, h.logger, http.StatusOK, MessageResponse{
		Success: true,
		Message: "Counters reset successfully",
	})
}

func (h *VisitorHandler) pageName(page string) string {
	if p, ok := h.catalog.Lookup(page); ok {
		return p.DisplayName
	}
	return unknownPageName
}

// decodeVisitRequest accepts an empty body; page defaults to home
func decodeVisitRequest(r *http.Request) (VisitRequest, error) {
	var req VisitRequest

	err := json.NewDecoder(io.LimitReader(r.Body, maxVisitBodyBytes)).Decode(&req)
	if err != nil && !errors.Is(err, io.EOF) {
		return req, apperrors.NewValidationError("invalid request body", map[string]interface{}{
			"body": err.Error(),
		})
	}

	if req.Page == "" {
		req.Page = defaultPage
	}
	return req, nil
}

// clientIP reads RemoteAddr, which chi's RealIP middleware has already
// replaced with the first forwarded address when one was sent.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.NewValidationError("invalid query parameter", map[string]interface{}{
			name: "must be an integer",
		})
	}
	return n, nil
}

// setRateLimitHeaders sets standard rate limit headers
func setRateLimitHeaders(w http.ResponseWriter, info *domain.RateLimitInfo) {
	if info == nil || info.Limit <= 0 {
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(info.Remaining, 10))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetAt.Unix(), 10))
}

func retryAfterSeconds(info *domain.RateLimitInfo, now time.Time) int {
	if info == nil {
		return 1
	}
	return max(1, int(info.ResetAt.Sub(now).Seconds()))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
