package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"volterra/admin-service/internal/auth"
	"volterra/admin-service/internal/models"
	"volterra/admin-service/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Options struct {
	Logger *zap.Logger
	// RateLimit enables per-IP and per-user token buckets when set.
	RateLimit *RateLimitConfig
	// Registry receives the HTTP metrics. A fresh registry is used when nil.
	Registry *prometheus.Registry
}

type Handler struct {
	store    store.Store
	resolver *auth.Resolver
	logger   *zap.Logger
	validate *validator.Validate
	limiter  *RateLimiter
	metrics  *metrics
	registry *prometheus.Registry
}

type errorResponse struct {
	Error responseError `json:"error"`
}

type responseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewHandler(st store.Store, resolver *auth.Resolver, opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	registry := opts.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	h := &Handler{
		store:    st,
		resolver: resolver,
		logger:   logger,
		validate: newValidator(),
		metrics:  newMetrics(registry),
		registry: registry,
	}
	if opts.RateLimit != nil {
		h.limiter = NewRateLimiter(*opts.RateLimit)
	}
	return h
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(h.logRequests)
	r.Use(middleware.Recoverer)
	if h.limiter != nil {
		r.Use(h.limiter.IPMiddleware)
	}
	r.Use(h.resolver.Middleware)
	r.Use(tagUser)
	if h.limiter != nil {
		r.Use(h.limiter.UserMiddleware)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", h.authRoutes)
		r.Route("/brands", h.brandRoutes)
		r.Route("/cars", h.carRoutes)
		r.Route("/features", h.featureRoutes)
		r.Route("/members", h.memberRoutes)
		r.Route("/bookings", h.bookingRoutes)
		r.Route("/sell-listings", h.listingRoutes)
		r.Route("/tickets", h.ticketRoutes)
		r.With(requirePermission(permissionDashboardRead)).Get("/dashboard/summary", h.handleDashboard)
		r.With(auth.RequireUser).Method(http.MethodGet, "/audit", auth.Guard{
			Allowed:  auth.NewRoleSet(rolesWith(permissionAuditRead)...),
			Content:  http.HandlerFunc(h.handleAudit),
			Fallback: http.HandlerFunc(h.handleOwnAudit),
		})
	})
	return r
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeRequest reads a JSON body into target and validates it. It writes
// the 400 response itself and reports whether the handler may continue.
func (h *Handler) decodeRequest(w http.ResponseWriter, r *http.Request, target interface{}) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return false
	}
	if err := h.validate.Struct(target); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return "invalid request"
	}
	fields := make([]string, 0, len(fieldErrs))
	seen := map[string]bool{}
	for _, fe := range fieldErrs {
		name := fe.Field()
		if seen[name] {
			continue
		}
		seen[name] = true
		fields = append(fields, name)
	}
	return "invalid fields: " + strings.Join(fields, ", ")
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: responseError{Code: code, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

// parseID reads the {id} URL parameter. Malformed, zero and negative ids are
// reported as 404 like any other missing record.
func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusNotFound, "not_found", "not found")
		return 0, false
	}
	return id, true
}

func writeNotFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, "not_found", "not found")
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error("request failed",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
}

// writeStoreError maps store sentinels onto the error envelope.
func (h *Handler) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeNotFound(w)
	case errors.Is(err, store.ErrBrandHasCars):
		writeError(w, http.StatusConflict, "brand_has_cars", "brand still has cars")
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, "conflict", "record conflicts with an existing one")
	case errors.Is(err, store.ErrInvalidReference):
		writeError(w, http.StatusConflict, "invalid_reference", "referenced record does not exist")
	case errors.Is(err, store.ErrInvalidState):
		writeError(w, http.StatusConflict, "invalid_state", "invalid state transition")
	default:
		h.internalError(w, r, err)
	}
}

// recordAudit stores an audit entry for a successful write. Failures are
// logged and never change the response.
func (h *Handler) recordAudit(r *http.Request, action, targetType string, targetID int64) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		return
	}
	entry := models.AuditEntry{
		ActorUserID: user.ID,
		Action:      action,
		TargetType:  targetType,
		TargetID:    targetID,
		IP:          clientIP(r),
		UserAgent:   r.UserAgent(),
	}
	if err := h.store.InsertAudit(r.Context(), entry); err != nil {
		h.logger.Warn("audit insert failed",
			zap.String("action", action),
			zap.Int64("target_id", targetID),
			zap.Error(err))
	}
}
