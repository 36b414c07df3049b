// Package trace tags each request with an ID and logs its completion.
package trace

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"monthlynet/internal/log"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// HeaderRequestID carries the request ID in both directions.
const HeaderRequestID = "X-Request-ID"

// Middleware assigns request IDs and logs the outcome of every request.
type Middleware struct {
	logger   *log.Logger
	clientIP func(*http.Request) string
	total    atomic.Int64
}

// NewMiddleware creates the middleware. clientIP may be nil.
func NewMiddleware(logger *log.Logger, clientIP func(*http.Request) string) *Middleware {
	if clientIP == nil {
		clientIP = func(r *http.Request) string { return r.RemoteAddr }
	}
	return &Middleware{logger: logger.WithComponent(log.ComponentHTTP), clientIP: clientIP}
}

// Handler wraps next. The request-scoped logger is derived from the one
// installed by log.Middleware, tagged with the request ID.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	tagged := log.RequestIDMiddleware(func(r *http.Request) string { return RequestID(r.Context()) })(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.total.Add(1)

		id := r.Header.Get(HeaderRequestID)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, id)
		ctx := context.WithValue(r.Context(), requestIDKey, id)
		r = r.WithContext(ctx)

		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		tagged.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		log.NewStructuredLogger(m.logger.With(log.FieldRequestID, id)).
			LogHTTPEnd(ctx, r, status, time.Since(start).Milliseconds(), m.clientIP(r))
	})
}

// Total returns the number of requests seen.
func (m *Middleware) Total() int64 {
	return m.total.Load()
}

// RequestID returns the ID assigned to the request carrying ctx.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
