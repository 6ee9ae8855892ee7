// Package server exposes the converter over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	zip2pdf "github.com/alnah/go-zip2pdf"
	"github.com/alnah/go-zip2pdf/internal/classify"
	"github.com/alnah/go-zip2pdf/internal/fileutil"
	"github.com/alnah/go-zip2pdf/internal/history"
)

// Name is reported by the info and root endpoints.
const Name = "Zip to PDF Converter API"

// multipartOverhead is the slack allowed on top of the archive limit for
// form fields and part headers.
const multipartOverhead = 1 << 20

// defaultHistoryLimit is used when the conversions endpoint gets no limit.
const defaultHistoryLimit = 50

// Converter converts uploaded archives.
type Converter interface {
	Convert(ctx context.Context, data []byte, title string, includeTOC bool) (*zip2pdf.Result, error)
}

// HistoryReader lists past conversions.
type HistoryReader interface {
	Recent(ctx context.Context, n int) ([]history.Record, error)
}

// Config holds the values the handlers report or enforce.
type Config struct {
	Version        string
	Environment    string
	MaxUploadSize  int64
	PageFormats    []string
	AllowedOrigins []string
}

// Server routes HTTP requests to a Converter.
type Server struct {
	conv    Converter
	history HistoryReader
	cfg     Config
	logger  *slog.Logger
	now     func() time.Time
	started time.Time
	router  *chi.Mux
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithHistory enables the conversions endpoint.
func WithHistory(h HistoryReader) Option {
	return func(s *Server) { s.history = h }
}

// WithClock replaces time.Now for timestamps and uptime.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// New builds a Server with its routes mounted.
func New(conv Converter, cfg Config, opts ...Option) *Server {
	s := &Server{
		conv:   conv,
		cfg:    cfg,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.cfg.Version == "" {
		s.cfg.Version = "dev"
	}
	s.started = s.now()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestContext)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(s.cors)
	s.RegisterHTTP(r)
	s.router = r
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// RegisterHTTP mounts the API routes on r.
func (s *Server) RegisterHTTP(r chi.Router) {
	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/convert", s.handleConvert)
		r.Get("/info", s.handleInfo)
		r.Get("/status", s.handleStatus)
		r.Get("/conversions", s.handleConversions)
	})
}

// ---------------------------------------------------------------------------
// Middleware
// ---------------------------------------------------------------------------

// requestContext makes the chi request id visible to the converter and
// echoes it to the client.
func requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := middleware.GetReqID(r.Context())
		if id != "" {
			w.Header().Set("X-Request-ID", id)
			r = r.WithContext(zip2pdf.ContextWithRequestID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
		)
	})
}

func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" || !s.originAllowed(origin) {
			next.ServeHTTP(w, r)
			return
		}

		h := w.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Credentials", "true")
		h.Add("Vary", "Origin")
		h.Set("Access-Control-Expose-Headers", "Content-Disposition, X-Request-ID, X-Unresolved-Images")

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			if reqHeaders := r.Header.Get("Access-Control-Request-Headers"); reqHeaders != "" {
				h.Set("Access-Control-Allow-Headers", reqHeaders)
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) originAllowed(origin string) bool {
	for _, o := range s.cfg.AllowedOrigins {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Handlers
// ---------------------------------------------------------------------------

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	limit := s.cfg.MaxUploadSize
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		switch {
		case errors.As(err, &tooBig):
			s.writeError(w, r, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE",
				"file exceeds maximum allowed size", map[string]any{"max_size": limit})
		case errors.Is(err, http.ErrMissingFile):
			s.writeError(w, r, http.StatusBadRequest, "NO_FILE_PROVIDED", "no file provided", nil)
		default:
			s.writeError(w, r, http.StatusBadRequest, "INVALID_REQUEST",
				"request must be multipart/form-data", map[string]any{"error": err.Error()})
		}
		return
	}
	defer func() { _ = file.Close() }()

	title := r.FormValue("title")
	if strings.TrimSpace(title) == "" {
		s.writeError(w, r, http.StatusBadRequest, "EMPTY_TITLE", "title cannot be empty", nil)
		return
	}

	includeTOC, err := parseBool(r.FormValue("include_toc"), true)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, "INVALID_BOOLEAN",
			"invalid boolean value for include_toc",
			map[string]any{"parameter": "include_toc", "value": r.FormValue("include_toc")})
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, "FILE_READ_ERROR", "failed to read file", nil)
		return
	}
	if int64(len(data)) > limit {
		s.writeError(w, r, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE",
			"file exceeds maximum allowed size",
			map[string]any{"max_size": limit, "filename": header.Filename})
		return
	}

	res, err := s.conv.Convert(r.Context(), data, title, includeTOC)
	if err != nil {
		s.writeConversionError(w, r, err, header.Filename)
		return
	}

	name := fileutil.SanitizeFilename(strings.TrimSpace(title) + ".pdf")
	h := w.Header()
	h.Set("Content-Type", "application/pdf")
	h.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	h.Set("Content-Length", strconv.Itoa(len(res.PDF)))
	if len(res.Unresolved) > 0 {
		h.Set("X-Unresolved-Images", strings.Join(res.Unresolved, ", "))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(res.PDF); err != nil {
		s.logger.Warn("writing PDF response", "error", err)
	}
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    Name,
		"version": s.cfg.Version,
		"status":  "operational",
		"health":  "/health",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"version":   s.cfg.Version,
	})
}

func (s *Server) handleInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":              Name,
		"version":           s.cfg.Version,
		"supported_formats": []string{"zip"},
		"max_file_size":     fmt.Sprintf("%dMB", s.cfg.MaxUploadSize>>20),
		"supported_images":  classify.ResourceFormats(),
		"page_formats":      s.cfg.PageFormats,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "operational",
		"uptime":      formatUptime(s.now().Sub(s.started)),
		"version":     s.cfg.Version,
		"environment": s.cfg.Environment,
	})
}

func (s *Server) handleConversions(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.writeError(w, r, http.StatusNotFound, "HISTORY_DISABLED", "conversion history is not enabled", nil)
		return
	}

	n := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			s.writeError(w, r, http.StatusBadRequest, "INVALID_LIMIT", "limit must be a positive integer",
				map[string]any{"value": v})
			return
		}
		n = parsed
	}

	records, err := s.history.Recent(r.Context(), n)
	if err != nil {
		s.logger.Error("listing conversions", "error", err)
		s.writeError(w, r, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "an internal server error occurred", nil)
		return
	}
	if records == nil {
		records = []history.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversions": records})
}

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details"`
	Timestamp string         `json:"timestamp"`
	RequestID string         `json:"request_id,omitempty"`
}

// kindStatus maps failure kinds to an HTTP status and a stable error code.
var kindStatus = map[zip2pdf.Kind]struct {
	status int
	code   string
}{
	zip2pdf.KindInvalidArchiveFormat: {http.StatusBadRequest, "INVALID_FILE_FORMAT"},
	zip2pdf.KindArchiveTooLarge:      {http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE"},
	zip2pdf.KindUnsafePath:           {http.StatusBadRequest, "UNSAFE_PATH"},
	zip2pdf.KindNoDocumentFound:      {http.StatusBadRequest, "NO_MARKDOWN_FOUND"},
	zip2pdf.KindInvalidInput:         {http.StatusBadRequest, "VALIDATION_ERROR"},
	zip2pdf.KindTemplateMissing:      {http.StatusInternalServerError, "TEMPLATE_MISSING"},
	zip2pdf.KindRenderFailure:        {http.StatusInternalServerError, "PDF_GENERATION_FAILED"},
	zip2pdf.KindTimeout:              {http.StatusGatewayTimeout, "TIMEOUT"},
	zip2pdf.KindCanceled:             {http.StatusServiceUnavailable, "REQUEST_CANCELED"},
	zip2pdf.KindInternal:             {http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"},
}

// StatusFor returns the HTTP status for a conversion error.
func StatusFor(err error) int {
	if m, ok := kindStatus[zip2pdf.KindOf(err)]; ok {
		return m.status
	}
	return http.StatusInternalServerError
}

func (s *Server) writeConversionError(w http.ResponseWriter, r *http.Request, err error, filename string) {
	kind := zip2pdf.KindOf(err)
	m, ok := kindStatus[kind]
	if !ok {
		m = kindStatus[zip2pdf.KindInternal]
	}

	message := "an internal server error occurred"
	var ce *zip2pdf.ConversionError
	if errors.As(err, &ce) && ce.Message != "" {
		message = ce.Message
	}

	details := map[string]any{"filename": filename}
	if m.status < http.StatusInternalServerError && ce != nil && ce.Err != nil {
		details["reason"] = ce.Err.Error()
	}

	if m.status >= http.StatusInternalServerError {
		s.logger.Error("conversion failed", "kind", string(kind), "error", err,
			"request_id", middleware.GetReqID(r.Context()))
	} else {
		s.logger.Warn("conversion rejected", "kind", string(kind), "error", err,
			"request_id", middleware.GetReqID(r.Context()))
	}
	s.writeError(w, r, m.status, m.code, message, details)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, details map[string]any) {
	if details == nil {
		details = map[string]any{}
	}
	writeJSON(w, status, errorBody{Error: errorDetail{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: s.now().UTC().Format(time.RFC3339),
		RequestID: middleware.GetReqID(r.Context()),
	}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// parseBool accepts true/1/yes/on and false/0/no/off, case-insensitively.
// An empty value yields def.
func parseBool(v string, def bool) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "":
		return def, nil
	case "true", "1", "yes", "on":
		return true, nil
	case "false", "0", "no", "off":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", v)
}

// formatUptime renders d as "Xh Ym Zs".
func formatUptime(d time.Duration) string {
	secs := int(d / time.Second)
	return fmt.Sprintf("%dh %dm %ds", secs/3600, (secs%3600)/60, secs%60)
}
