package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/platinummonkey/protorules/pkg/api/protobuf"
	"github.com/platinummonkey/protorules/pkg/cache"
	"github.com/platinummonkey/protorules/pkg/compiler"
	"github.com/platinummonkey/protorules/pkg/httputil"
	"github.com/platinummonkey/protorules/pkg/observability"
	"github.com/platinummonkey/protorules/pkg/rules"
)

const healthTimeout = 5 * time.Second

// handlerFunc is an HTTP handler that reports failures by returning them
type handlerFunc func(w http.ResponseWriter, r *http.Request) error

// handle adapts fn to http.Handler. Errors without an HTTP status are
// logged and reported as 500.
func (s *Server) handle(fn handlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := fn(w, r)
		if err == nil {
			return
		}
		var herr *httputil.Error
		if !errors.As(err, &herr) {
			observability.GetLogger(r.Context()).WithError(err).Error("request failed")
		}
		httputil.WriteError(w, err)
	})
}

// compileSchema handles POST /v1/schemas
func (s *Server) compileSchema(w http.ResponseWriter, r *http.Request) error {
	var req CompileRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		return err
	}
	if req.Source == "" {
		return httputil.Errorf(http.StatusBadRequest, "source is required")
	}

	set, err := s.cache.Get(r.Context(), req.Source)
	if err != nil {
		return compileError(err)
	}

	return httputil.WriteJSON(w, http.StatusCreated, SchemaResponse{
		Key:      cache.Key(req.Source),
		Messages: set.Describe(),
	})
}

// getSchema handles GET /v1/schemas/{key}
func (s *Server) getSchema(w http.ResponseWriter, r *http.Request) error {
	key, set, err := s.lookup(r)
	if err != nil {
		return err
	}
	return httputil.WriteJSON(w, http.StatusOK, SchemaResponse{Key: key, Messages: set.Describe()})
}

// deleteSchema handles DELETE /v1/schemas/{key}
func (s *Server) deleteSchema(w http.ResponseWriter, r *http.Request) error {
	key, err := httputil.PathVar(r, "key")
	if err != nil {
		return err
	}
	err = s.cache.Delete(r.Context(), key)
	switch {
	case errors.Is(err, cache.ErrInvalidCacheKey):
		return httputil.NewError(http.StatusBadRequest, err)
	case errors.Is(err, cache.ErrStoreUnavailable):
		return httputil.NewError(http.StatusServiceUnavailable, err)
	case err != nil:
		return err
	}
	httputil.WriteNoContent(w)
	return nil
}

// validateMessage handles POST /v1/schemas/{key}/messages/{message}/validate
func (s *Server) validateMessage(w http.ResponseWriter, r *http.Request) error {
	message, err := httputil.PathVar(r, "message")
	if err != nil {
		return err
	}
	_, set, err := s.lookup(r)
	if err != nil {
		return err
	}

	var data any
	if err := httputil.DecodeJSONNumbers(r, &data); err != nil {
		return err
	}

	value, err := set.Validate(message, data)
	if verrs, ok := rules.AsValidationErrors(err); ok {
		return httputil.WriteJSON(w, http.StatusUnprocessableEntity, ValidateResponse{
			Valid:  false,
			Errors: verrs.Errors,
		})
	}
	if errors.Is(err, compiler.ErrUnknownMessage) {
		return httputil.NewError(http.StatusNotFound, err)
	}
	if err != nil {
		return err
	}

	return httputil.WriteJSON(w, http.StatusOK, ValidateResponse{Valid: true, Value: value})
}

// cacheStats handles GET /v1/cache/stats
func (s *Server) cacheStats(w http.ResponseWriter, r *http.Request) error {
	return httputil.WriteJSON(w, http.StatusOK, s.cache.Stats())
}

// health handles GET /healthz. A failing source store makes the service
// unavailable since evicted schemas can no longer be restored.
func (s *Server) health(w http.ResponseWriter, r *http.Request) error {
	resp := HealthResponse{
		Status:        "ok",
		CachedSchemas: s.cache.Len(),
	}
	if !s.cache.HasStore() {
		return httputil.WriteJSON(w, http.StatusOK, resp)
	}

	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()
	start := time.Now()
	err := s.cache.Ping(ctx)
	resp.Store = &DependencyStatus{Status: "ok", LatencyMS: time.Since(start).Milliseconds()}
	if err != nil {
		resp.Status = "unavailable"
		resp.Store.Status = "unavailable"
		resp.Store.Message = err.Error()
		return httputil.WriteJSON(w, http.StatusServiceUnavailable, resp)
	}
	return httputil.WriteJSON(w, http.StatusOK, resp)
}

// lookup resolves the {key} route variable to a cached validator set
func (s *Server) lookup(r *http.Request) (string, *compiler.ValidatorSet, error) {
	key, err := httputil.PathVar(r, "key")
	if err != nil {
		return "", nil, err
	}

	set, err := s.cache.Lookup(r.Context(), key)
	switch {
	case errors.Is(err, cache.ErrInvalidCacheKey):
		return "", nil, httputil.NewError(http.StatusBadRequest, err)
	case errors.Is(err, cache.ErrCacheMiss):
		return "", nil, httputil.Errorf(http.StatusNotFound, "schema not found: %s", key)
	case errors.Is(err, cache.ErrStoreUnavailable):
		return "", nil, httputil.NewError(http.StatusServiceUnavailable, err)
	case err != nil:
		return "", nil, compileError(err)
	}
	return key, set, nil
}

// compileError attaches the HTTP status a compilation failure is reported with
func compileError(err error) error {
	var (
		parseErr   *protobuf.SchemaParseError
		unresolved *compiler.UnresolvedTypeError
		depthErr   *compiler.RecursionLimitError
	)
	switch {
	case errors.As(err, &parseErr):
		return httputil.NewError(http.StatusBadRequest, err).
			WithDetail("line", parseErr.Line).
			WithDetail("column", parseErr.Column)
	case errors.As(err, &unresolved), errors.As(err, &depthErr):
		return httputil.NewError(http.StatusUnprocessableEntity, err)
	default:
		return err
	}
}
