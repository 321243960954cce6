package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cqframework/cqftooling/cmd/drool/coverage"
	"github.com/cqframework/cqftooling/cmd/drool/generator"
	"github.com/cqframework/cqftooling/cmd/drool/mapping"
	"github.com/cqframework/cqftooling/cmd/drool/render"
	"github.com/cqframework/cqftooling/cmd/drool/valueset"
	"github.com/cqframework/cqftooling/models/drool"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// DiagnosticsHeader carries the number of diagnostics a conversion raised.
const DiagnosticsHeader = "X-Drool-Diagnostics"

const maxRequestSize = 64 << 20

type DroolRouter struct {
	generator *generator.Generator
	renderer  *render.CQLRenderer
	valueSets *valueset.Builder
	table     *mapping.Table
	cache     *ResultCache
	library   string
	log       zerolog.Logger
}

// NewDroolRouter creates the HTTP surface. A nil cache disables caching.
func NewDroolRouter(
	gen *generator.Generator,
	renderer *render.CQLRenderer,
	valueSets *valueset.Builder,
	table *mapping.Table,
	cache *ResultCache,
	library string,
	log zerolog.Logger,
) *DroolRouter {
	return &DroolRouter{
		generator: gen,
		renderer:  renderer,
		valueSets: valueSets,
		table:     table,
		cache:     cache,
		library:   library,
		log:       log,
	}
}

func (dr *DroolRouter) SetupRoutes() http.Handler {
	r := mux.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(dr.logRequests)

	r.HandleFunc("/health", dr.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/cql", dr.handleCQL).Methods(http.MethodPost)
	r.HandleFunc("/coverage", dr.handleCoverage).Methods(http.MethodPost)
	r.HandleFunc("/valueset", dr.handleValueSet).Methods(http.MethodPost)

	return r
}

func (dr *DroolRouter) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (dr *DroolRouter) handleCQL(w http.ResponseWriter, r *http.Request) {
	result, ok := dr.generate(w, r)
	if !ok {
		return
	}

	text, err := dr.renderer.RenderString(result.Output)
	if err != nil {
		dr.log.Error().Err(err).Msg("Failed to render CQL")
		respondWithError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "text/cql; charset=utf-8")
	w.Header().Set(DiagnosticsHeader, strconv.Itoa(len(result.Report.Diagnostics)))
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, text)
}

func (dr *DroolRouter) handleCoverage(w http.ResponseWriter, r *http.Request) {
	result, ok := dr.generate(w, r)
	if !ok {
		return
	}

	w.Header().Set(DiagnosticsHeader, strconv.Itoa(len(result.Report.Diagnostics)))
	respondWithJSON(w, http.StatusOK, coverage.Build(result.Fields, dr.table))
}

func (dr *DroolRouter) handleValueSet(w http.ResponseWriter, r *http.Request) {
	result, ok := dr.generate(w, r)
	if !ok {
		return
	}

	w.Header().Set(DiagnosticsHeader, strconv.Itoa(len(result.Report.Diagnostics)))
	respondWithJSON(w, http.StatusOK, dr.valueSets.Build(dr.library, result.Output.Codes()))
}

// generate decodes the request body and runs a conversion, reusing a cached
// result for an identical body. It writes the error response itself and
// reports false on failure.
func (dr *DroolRouter) generate(w http.ResponseWriter, r *http.Request) (*generator.Result, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestSize))
	if err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		respondWithError(w, status, fmt.Errorf("failed to read request body: %w", err))
		return nil, false
	}

	var key string
	if dr.cache != nil {
		key = dr.cache.Key(body)
		if result, ok := dr.cache.Get(key); ok {
			dr.log.Debug().Str("key", key).Msg("Serving conversion from cache")
			return result, true
		}
	}

	doc, err := drool.Unmarshal(body)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err)
		return nil, false
	}

	result, err := dr.generator.Generate(doc)
	if err != nil {
		dr.log.Error().Err(err).Msg("Failed to generate CQL")
		respondWithError(w, http.StatusInternalServerError, err)
		return nil, false
	}

	if dr.cache != nil {
		dr.cache.Store(key, result)
	}
	return result, true
}

func (dr *DroolRouter) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		dr.log.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Msg("Handled request")
	})
}

func respondWithError(w http.ResponseWriter, status int, err error) {
	respondWithJSON(w, status, map[string]string{"error": fmt.Sprint(err)})
}

func respondWithJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
