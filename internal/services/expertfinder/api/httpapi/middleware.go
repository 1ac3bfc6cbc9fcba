package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/louisbranch/expertfinder/internal/platform/id"
	"github.com/louisbranch/expertfinder/internal/platform/requestctx"
)

// RequestIDHeader carries the request correlation id.
const RequestIDHeader = "X-Request-Id"

// withRequestID reuses an incoming request id or mints one, stores it in the
// request context, and echoes it on the response.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get(RequestIDHeader))
		if requestID == "" {
			generated, err := id.NewID()
			if err == nil {
				requestID = generated
			}
		}
		if requestID != "" {
			w.Header().Set(RequestIDHeader, requestID)
			r = r.WithContext(requestctx.WithRequestID(r.Context(), requestID))
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	if r.status == 0 {
		r.status = status
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(body []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(body)
}

// withAccessLog logs one line per request. Liveness probes are not logged.
func withAccessLog(next http.Handler, logf func(string, ...any)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/up" {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(recorder, r)
		status := recorder.status
		if status == 0 {
			status = http.StatusOK
		}
		logf("http %s %s %d %s request=%s", r.Method, r.URL.Path, status, time.Since(start).Round(time.Millisecond), requestctx.RequestIDFromContext(r.Context()))
	})
}
