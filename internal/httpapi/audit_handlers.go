package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"shopadmin.app/internal/audit"
)

const streamKeepAlive = 25 * time.Second

type archiveResponse struct {
	Message string      `json:"message"`
	Log     audit.Entry `json:"log"`
}

func (a *API) handleListLogs(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", 1)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := queryInt(r, "limit", audit.DefaultPageSize)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	filter := audit.Filter{Action: audit.Action(strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("actionType"))))}
	result, err := a.audit.List(r.Context(), filter, page, limit)
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) handleGetLog(w http.ResponseWriter, r *http.Request) {
	entry, err := a.audit.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (a *API) handleArchiveLog(w http.ResponseWriter, r *http.Request) {
	entry, err := a.audit.Archive(r.Context(), r.PathValue("id"))
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	a.recordCaller(r, audit.ActionArchiveLog, entry.ID, map[string]any{
		"action": string(entry.Action),
	})
	writeJSON(w, http.StatusOK, archiveResponse{Message: "Log archived", Log: entry})
}

// handleLogStream streams newly persisted log entries as server-sent events.
func (a *API) handleLogStream(w http.ResponseWriter, r *http.Request) {
	if a.feed == nil {
		writeError(w, r, http.StatusServiceUnavailable, "Log stream is not available.")
		return
	}
	ctx := r.Context()
	entries := a.feed.Subscribe(ctx)
	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if _, err := fmt.Fprint(w, ": connected\n\n"); err != nil {
		return
	}
	if err := rc.Flush(); err != nil {
		a.logger.Warn("log_stream_flush_unsupported", zap.Error(err))
		return
	}

	ticker := time.NewTicker(streamKeepAlive)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
		case e, ok := <-entries:
			if !ok {
				return
			}
			data, err := json.Marshal(e)
			if err != nil {
				a.logger.Error("log_stream_encode_failed", zap.Error(err))
				continue
			}
			if _, err := fmt.Fprintf(w, "id: %s\nevent: log\ndata: %s\n\n", e.ID, data); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
