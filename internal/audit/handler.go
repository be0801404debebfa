package audit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/lyceum-app/lyceum/internal/platform/httpx"
)

type entryResponse struct {
	ID        int64     `json:"id"`
	ActorID   int64     `json:"actorId"`
	Action    string    `json:"action"`
	Entity    string    `json:"entity"`
	EntityID  string    `json:"entityId"`
	Detail    string    `json:"detail"`
	CreatedAt time.Time `json:"createdAt"`
}

// RecentHandler serves the newest audit entries. Access control happens
// upstream in the endpoint table; this path lives under /api/admin.
func RecentHandler(recorder *Recorder) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		entries, err := recorder.Recent(r.Context(), limit)
		if err != nil {
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
			return
		}
		out := make([]entryResponse, 0, len(entries))
		for _, e := range entries {
			out = append(out, entryResponse{
				ID:        e.ID,
				ActorID:   e.ActorID,
				Action:    e.Action,
				Entity:    e.Entity,
				EntityID:  e.EntityID,
				Detail:    e.Detail,
				CreatedAt: e.CreatedAt,
			})
		}
		httpx.JSON(w, http.StatusOK, map[string]any{"entries": out})
	})
}
