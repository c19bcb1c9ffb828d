package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/net/html"

	"github.com/wikithread/talkparse/internal/pipeline"
	"github.com/wikithread/talkparse/internal/thread"
)

// itemJSON is the wire form of one thread item, replies nested.
type itemJSON struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Type            string     `json:"type"`
	Level           int        `json:"level"`
	Author          string     `json:"author,omitempty"`
	Timestamp       *time.Time `json:"timestamp,omitempty"`
	HeadingLevel    int        `json:"heading_level,omitempty"`
	Placeholder     bool       `json:"placeholder,omitempty"`
	Uneditable      bool       `json:"uneditable,omitempty"`
	Transcluded     bool       `json:"transcluded,omitempty"`
	TranscludedFrom string     `json:"transcluded_from,omitempty"`
	Replies         []itemJSON `json:"replies,omitempty"`
}

type parseResponse struct {
	Title    string     `json:"title,omitempty"`
	Empty    bool       `json:"empty"`
	Comments int        `json:"comments"`
	Threads  []itemJSON `json:"threads"`
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		jsonError(w, "failed to read document", http.StatusRequestEntityTooLarge)
		return
	}
	if len(data) == 0 {
		jsonError(w, "empty document", http.StatusBadRequest)
		return
	}

	tree, err := html.Parse(strings.NewReader(string(data)))
	if err != nil {
		jsonError(w, "invalid html: "+err.Error(), http.StatusBadRequest)
		return
	}
	set, err := s.parser.Parse(tree)
	if err != nil {
		s.log.Error("parse failed", "error", err)
		jsonError(w, "parse failed", http.StatusUnprocessableEntity)
		return
	}

	resp := parseResponse{
		Title:    r.URL.Query().Get("title"),
		Empty:    set.IsEmpty(),
		Comments: len(set.Comments()),
		Threads:  make([]itemJSON, 0, len(set.Threads())),
	}
	for _, h := range set.Threads() {
		resp.Threads = append(resp.Threads, itemToJSON(h))
	}
	writeJSON(w, http.StatusOK, resp)
}

func itemToJSON(item thread.ThreadItem) itemJSON {
	out := itemJSON{
		ID:    item.ID(),
		Name:  item.Name(),
		Level: item.Level(),
	}
	out.Transcluded, out.TranscludedFrom = item.Transcluded()
	switch it := item.(type) {
	case *thread.CommentItem:
		out.Type = "comment"
		out.Author = it.Author()
		ts := it.Timestamp()
		out.Timestamp = &ts
	case *thread.HeadingItem:
		out.Type = "heading"
		out.HeadingLevel = it.HeadingLevel()
		out.Placeholder = it.PlaceholderHeading()
		out.Uneditable = it.UneditableSection()
	}
	for _, reply := range item.Replies() {
		out.Replies = append(out.Replies, itemToJSON(reply))
	}
	return out
}

type batchRequest struct {
	Documents []struct {
		RevisionID int64  `json:"revision_id"`
		Title      string `json:"title"`
		HTML       string `json:"html"`
	} `json:"documents"`
}

func (s *Server) handleBatchParse(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.Documents) == 0 {
		jsonError(w, "documents is required", http.StatusBadRequest)
		return
	}

	docs := make([]pipeline.Document, 0, len(req.Documents))
	for _, d := range req.Documents {
		docs = append(docs, pipeline.Document{
			RevisionID: d.RevisionID,
			Title:      d.Title,
			HTML:       []byte(d.HTML),
		})
	}

	job, err := s.orchestrator.Enqueue(docs)
	if err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusAccepted, job.Snapshot())
}

func (s *Server) handleBatchStatus(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "unknown job", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"error": msg})
}
