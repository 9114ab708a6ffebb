package core

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

type StackOptions struct {
	Logger  Logger
	Timeout time.Duration
}

// DefaultStack returns the middleware every service mounts first.
func DefaultStack(opts StackOptions) []func(http.Handler) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = NewNoopLogger()
	}
	stack := []func(http.Handler) http.Handler{
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		requestLogger(logger),
	}
	if opts.Timeout > 0 {
		stack = append(stack, middleware.Timeout(opts.Timeout))
	}
	return stack
}

func requestLogger(logger Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start).String(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
