package route

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"rsvpbot/src-server/model"
)

// EventLister is the read side of the scheduler the HTTP API needs.
type EventLister interface {
	ListEvents(ctx context.Context, scopeID string) ([]model.Event, error)
	Scheduled() int
}

func Events(muxer *http.ServeMux, events EventLister) {
	type OneEventRespBody struct {
		ID           int64  `json:"id"`
		Title        string `json:"title"`
		OwnerID      string `json:"ownerId"`
		ChannelID    string `json:"channelId"`
		DueAtUnixUTC int64  `json:"dueAtUnixUTC"`
		URL          string `json:"url"`
	}

	// all events of a guild, soonest first
	muxer.HandleFunc("GET /api/events", func(w http.ResponseWriter, r *http.Request) {
		scope := strings.TrimSpace(r.URL.Query().Get("scope"))
		if scope == "" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("Please provide a scope"))
			return
		}

		eventModels, err := events.ListEvents(r.Context(), scope)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Can't get events"))
			slog.Error("can't list events", "scope", scope, "error", err)
			return
		}

		respBody := make([]OneEventRespBody, 0, len(eventModels))
		for _, event := range eventModels {
			respBody = append(respBody, OneEventRespBody{
				ID:           event.ID,
				Title:        event.Name(),
				OwnerID:      event.OwnerID,
				ChannelID:    event.ChannelID,
				DueAtUnixUTC: event.DueAtUnixUTC,
				URL:          event.URL(),
			})
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(respBody); err != nil {
			slog.Warn("can't encode events response", "error", err)
		}
	})

	muxer.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"scheduled": events.Scheduled(),
		}); err != nil {
			slog.Warn("can't encode health response", "error", err)
		}
	})
}
