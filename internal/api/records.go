package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ppc-network/tasklist/internal/domain"
)

func (s *Server) handleTaskRecords(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	if _, err := s.tasks.GetTask(id); err != nil {
		writeTaskError(w, err)
		return
	}
	recs, err := s.tasks.TaskRecords(id)
	if err != nil {
		writeTaskError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": nonNilRecords(recs)})
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	after, err := queryInt(r, "after", 0)
	if err != nil || after < 0 {
		writeError(w, http.StatusBadRequest, "invalid after")
		return
	}
	limit, err := queryInt(r, "limit", defaultListLimit)
	if err != nil || limit < 0 {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	recs, err := s.tasks.Records(after, int(limit))
	if err != nil {
		writeTaskError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": nonNilRecords(recs)})
}

// handleRecordsSSE streams committed records as server-sent events until
// the client disconnects or the hub closes.
func (s *Server) handleRecordsSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	sub := s.hub.Subscribe()
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case rec, ok := <-sub.Records:
			if !ok {
				return
			}
			data, err := json.Marshal(rec)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: record\nid: %d\ndata: %s\n\n", rec.Seq, data)
			flusher.Flush()
		}
	}
}

func nonNilRecords(recs []domain.Record) []domain.Record {
	if recs == nil {
		return []domain.Record{}
	}
	return recs
}
