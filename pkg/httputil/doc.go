// Package httputil holds the JSON plumbing and middleware shared by the
// protorules HTTP API.
//
// Handlers report failures as errors. An *Error carries the status it is
// written with; any other error becomes a 500:
//
//	if err := httputil.DecodeJSON(r, &req); err != nil {
//		return err // 400 or 413
//	}
//	if req.Source == "" {
//		return httputil.Errorf(http.StatusBadRequest, "source is required")
//	}
//	return httputil.WriteJSON(w, http.StatusCreated, resp)
//
// The caller's adapter writes returned errors with WriteError.
//
// # Middleware
//
//	handler := httputil.Chain(
//		httputil.RequestIDMiddleware,
//		httputil.LoggingMiddleware(logger),
//		httputil.RecoveryMiddleware(logger),
//		httputil.MaxBytesMiddleware(1<<20),
//	)(router)
package httputil
