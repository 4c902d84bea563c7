package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/iwvelando/vest-optimizer/internal/config"
	"github.com/iwvelando/vest-optimizer/internal/scenario"
	"github.com/iwvelando/vest-optimizer/internal/sweep"
	"github.com/iwvelando/vest-optimizer/pkg/constants"
	"github.com/iwvelando/vest-optimizer/pkg/milp"
	"github.com/iwvelando/vest-optimizer/pkg/output"
	"go.uber.org/zap"
)

type handler struct {
	logger        *zap.Logger
	optimizer     sweep.Optimizer
	maxUploadSize int64
	version       string
}

// Options tunes the router beyond the required handler dependencies.
type Options struct {
	AllowedOrigins []string
	RequestTimeout time.Duration
}

// NewHandler constructs the HTTP handler that serves the scenario and sweep API.
// Single scenarios are solved by optimizer; sweeps build their own solver from
// the uploaded configuration.
func NewHandler(logger *zap.Logger, optimizer sweep.Optimizer, maxUploadSize int64, version string) http.Handler {
	return NewHandlerWithOptions(logger, optimizer, maxUploadSize, version, Options{})
}

// NewHandlerWithOptions is NewHandler with CORS origins and a request timeout.
func NewHandlerWithOptions(logger *zap.Logger, optimizer sweep.Optimizer, maxUploadSize int64, version string, opts Options) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	if maxUploadSize <= 0 {
		maxUploadSize = constants.DefaultMaxUploadSizeBytes
	}

	trimmedVersion := strings.TrimSpace(version)
	if trimmedVersion == "" {
		trimmedVersion = "dev"
	}

	h := &handler{logger: logger, optimizer: optimizer, maxUploadSize: maxUploadSize, version: trimmedVersion}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(h.loggingMiddleware)
	if opts.RequestTimeout > 0 {
		r.Use(middleware.Timeout(opts.RequestTimeout))
	}
	if len(opts.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", h.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/scenario", h.handleScenario)
		r.Post("/sweep", h.handleSweep)
		r.Get("/version", h.handleVersion)
	})

	return r
}

type sweepResponse struct {
	*sweep.Report
	Warnings []string `json:"warnings,omitempty"`
	TSV      string   `json:"tsv"`
	Elapsed  string   `json:"elapsed"`
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

func (h *handler) handleScenario(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleScenario"

	if h.optimizer == nil {
		h.respondErrorWithOp(w, http.StatusServiceUnavailable, "scenario optimizer not configured", op)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	var in scenario.Inputs
	if err := decoder.Decode(&in); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondErrorWithOp(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request exceeds limit of %d bytes", h.maxUploadSize), op)
			return
		}
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to decode scenario: %v", err), op)
		return
	}

	result, err := h.optimizer.Optimize(r.Context(), in)
	if err != nil {
		h.respondErrorWithOp(w, statusFor(err), err.Error(), op)
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

func (h *handler) handleSweep(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleSweep"
	start := time.Now()

	configBytes, status, err := h.readConfig(w, r)
	if err != nil {
		h.respondErrorWithOp(w, status, err.Error(), op)
		return
	}

	cfg, err := config.LoadConfigurationFromReader(bytes.NewReader(configBytes))
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
		return
	}

	solver := milp.NewHiGHS(h.logger, cfg.Solver.Tolerance)
	optimizer, err := scenario.NewOptimizer(h.logger, solver, cfg.Solver.Timeout)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusInternalServerError, fmt.Sprintf("failed to initialize optimizer: %v", err), op)
		return
	}

	runner, err := sweep.NewRunner(h.logger, optimizer, cfg)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
		return
	}

	report, err := runner.Run(r.Context())
	if err != nil {
		h.respondErrorWithOp(w, statusFor(err), fmt.Sprintf("sweep failed: %v", err), op)
		return
	}

	var tsv bytes.Buffer
	if err := output.TSV(&tsv, report); err != nil {
		h.respondErrorWithOp(w, http.StatusInternalServerError, fmt.Sprintf("failed to render report: %v", err), op)
		return
	}

	elapsed := time.Since(start)
	h.logger.Info("sweep computed",
		zap.String("op", op),
		zap.String("runId", report.RunID),
		zap.Int("scenarios", len(report.Cells)),
		zap.Int("failures", report.Failures),
		zap.Duration("duration", elapsed),
	)

	h.writeJSON(w, http.StatusOK, sweepResponse{
		Report:   report,
		Warnings: cfg.ValidateConfiguration(),
		TSV:      tsv.String(),
		Elapsed:  elapsed.String(),
	})
}

// readConfig returns the YAML body of a sweep request, either raw or as the
// "file" field of a multipart upload.
func (h *handler) readConfig(w http.ResponseWriter, r *http.Request) ([]byte, int, error) {
	if r.ContentLength > h.maxUploadSize {
		return nil, http.StatusRequestEntityTooLarge, fmt.Errorf("upload exceeds limit of %d bytes", h.maxUploadSize)
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)

	var body io.Reader = r.Body
	if mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
			return nil, tooLargeOr(err, http.StatusBadRequest), h.uploadError("failed to parse upload", err)
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			return nil, http.StatusBadRequest, errors.New("missing configuration file")
		}
		defer func() {
			if closeErr := file.Close(); closeErr != nil {
				h.logger.Warn("failed to close uploaded file",
					zap.String("op", "server.readConfig"),
					zap.Error(closeErr),
				)
			}
		}()
		body = file
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, tooLargeOr(err, http.StatusInternalServerError), h.uploadError("failed to read configuration", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, http.StatusBadRequest, errors.New("missing configuration")
	}
	return data, http.StatusOK, nil
}

func (h *handler) uploadError(msg string, err error) error {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return fmt.Errorf("upload exceeds limit of %d bytes", h.maxUploadSize)
	}
	return fmt.Errorf("%s: %v", msg, err)
}

func tooLargeOr(err error, status int) int {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return http.StatusRequestEntityTooLarge
	}
	return status
}

// statusFor maps optimizer errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, scenario.ErrInvalidModelInput):
		return http.StatusBadRequest
	case errors.Is(err, scenario.ErrInfeasibleOrUnsolved):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (h *handler) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		h.logger.Debug("HTTP request",
			zap.String("op", "server.loggingMiddleware"),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("requestId", middleware.GetReqID(r.Context())),
		)
	})
}

func (h *handler) respondErrorWithOp(w http.ResponseWriter, status int, msg string, op string) {
	h.logger.Error("request failed",
		zap.String("op", op),
		zap.Int("status", status),
		zap.String("error", msg),
	)

	h.writeJSON(w, status, map[string]string{"error": msg})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}
