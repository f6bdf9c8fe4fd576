package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"predictd/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	ListServices() []types.ServiceInfo
	Status() types.StatusResponse
	Ready() bool
	Predict(ctx context.Context, id string, instances [][]any) (types.PredictionPayload, error)
}

// JournalReader backs GET /journal.
type JournalReader interface {
	Recent(ctx context.Context, service string, limit int) ([]types.JournalEntry, error)
}

var journal JournalReader

// SetJournal enables GET /journal. nil disables it.
func SetJournal(j JournalReader) { journal = j }

// NewMux builds the router. Prediction routes are taken from
// svc.ListServices at construction time.
func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	r.Use(middleware.Compress(5))
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
			MaxAge:         300,
		}))
	}
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, http.StatusNotFound, "not found: "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/models", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, types.ModelsResponse{Models: svc.ListServices()})
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, svc.Status())
	})

	r.Get("/journal", journalHandler)

	for _, info := range svc.ListServices() {
		r.Post(info.Endpoint, predictHandler(svc, info.ID))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("loading"))
	})

	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)
	return r
}

// predictHandler serves POST <endpoint> for service id.
//
// @Summary      Score a batch of instances
// @Tags         predict
// @Accept       json
// @Produce      json
// @Param        service  path  string                true  "Service id"
// @Param        body     body  types.PredictRequest  true  "Instances to score"
// @Success      200  {object}  types.PredictResponse
// @Failure      400  {object}  types.ErrorResponse
// @Failure      404  {object}  types.ErrorResponse
// @Failure      415  {object}  types.ErrorResponse
// @Failure      429  {object}  types.ErrorResponse
// @Failure      502  {object}  types.ErrorResponse
// @Failure      503  {object}  types.ErrorResponse
// @Router       /{service}/predict [post]
func predictHandler(svc Service, id string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lvl := requestLogLevel(r)
		ct := r.Header.Get("Content-Type")
		if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
			writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		dec := json.NewDecoder(r.Body)
		dec.UseNumber()
		var req types.PredictRequest
		if err := dec.Decode(&req); err != nil {
			// Oversized bodies get the same answer so the limit is not disclosed.
			writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if len(req.Payload.Instances) == 0 {
			writeJSONError(w, http.StatusBadRequest, "payload.instances is required")
			return
		}

		ctx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		if predictTimeout > 0 {
			var tcancel context.CancelFunc
			ctx, tcancel = context.WithTimeout(ctx, predictTimeout)
			defer tcancel()
		}
		p := predictLog{service: id, instances: len(req.Payload.Instances), start: start}
		out, err := svc.Predict(ctx, id, req.Payload.Instances)
		if err != nil {
			// Client went away or the server is shutting down.
			if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
				return
			}
			p.status, p.err = statusFor(err), err
			if p.status == http.StatusTooManyRequests {
				IncrementBackpressure(id)
			}
			writeJSONError(w, p.status, err.Error())
			logPredict(r, lvl, p)
			return
		}
		p.status, p.predictions = http.StatusOK, out.Predictions
		writeJSON(w, types.PredictResponse{Payload: out})
		logPredict(r, lvl, p)
	}
}

// journalHandler lists recent prediction calls.
//
// @Summary   Recent prediction calls
// @Tags      journal
// @Produce   json
// @Param     limit    query  int     false  "Max entries (default 50)"
// @Param     service  query  string  false  "Filter by service id"
// @Success   200  {object}  types.JournalResponse
// @Failure   404  {object}  types.ErrorResponse
// @Router    /journal [get]
func journalHandler(w http.ResponseWriter, r *http.Request) {
	if journal == nil {
		writeJSONError(w, http.StatusNotFound, "journal disabled")
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSONError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	entries, err := journal.Recent(r.Context(), r.URL.Query().Get("service"), limit)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, types.JournalResponse{Entries: entries})
}
