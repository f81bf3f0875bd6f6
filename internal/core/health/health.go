package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

func Liveness() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// Storage reports ready while the store answers a ping within a second.
func Storage(p Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), time.Second)
		defer cancel()

		out := struct {
			Status string `json:"status"`
			Error  string `json:"error,omitempty"`
		}{Status: "ready"}
		code := http.StatusOK
		if err := p.Ping(ctx); err != nil {
			out.Status, out.Error = "not_ready", err.Error()
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(out)
	}
}

// Assignment is implemented by the import job consumer.
type Assignment interface {
	Readiness() (ready bool, partitions []int32)
}

// Worker reports ready once the consumer group has handed this worker partitions of the
// job topic and the entity store answers. Without both, jobs would be claimed but never
// committed.
func Worker(topic string, a Assignment, p Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out := struct {
			Status     string  `json:"status"`
			Topic      string  `json:"topic"`
			Partitions []int32 `json:"partitions,omitempty"`
			Error      string  `json:"error,omitempty"`
		}{Status: "not_ready", Topic: topic}

		assigned, parts := a.Readiness()
		switch {
		case !assigned:
			out.Error = "no partitions assigned"
		case p != nil:
			ctx, cancel := context.WithTimeout(r.Context(), time.Second)
			err := p.Ping(ctx)
			cancel()
			if err != nil {
				out.Error = "store: " + err.Error()
				break
			}
			fallthrough
		default:
			out.Status, out.Partitions = "ready", parts
		}

		code := http.StatusOK
		if out.Status != "ready" {
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(out)
	}
}
