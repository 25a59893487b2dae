package server

import (
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/docsentry/docsentry/internal/session"
	"github.com/docsentry/docsentry/internal/vectordb"
)

// searchFilter builds a metadata filter from optional query parameters.
func searchFilter(r *http.Request) *vectordb.SearchFilter {
	var f vectordb.SearchFilter
	set := false
	if v := r.URL.Query().Get("classification"); v != "" {
		f.Classification = &v
		set = true
	}
	if v := r.URL.Query().Get("document_id"); v != "" {
		f.DocumentID = &v
		set = true
	}
	if !set {
		return nil
	}
	return &f
}

// maxUploadSize bounds multipart uploads (64 MB).
const maxUploadSize = 64 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// handleUpload accepts a multipart file, stores it in the inbox, and
// runs it through the ingestion pipeline synchronously.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "parsing upload: "+err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	if name == "" || name == "." || name == "/" {
		writeError(w, http.StatusBadRequest, "invalid filename")
		return
	}

	if err := os.MkdirAll(s.cfg.InboxDir, 0o755); err != nil {
		writeError(w, http.StatusInternalServerError, "preparing inbox: "+err.Error())
		return
	}
	dest := filepath.Join(s.cfg.InboxDir, name)
	out, err := os.Create(dest)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "storing upload: "+err.Error())
		return
	}
	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		writeError(w, http.StatusInternalServerError, "storing upload: "+err.Error())
		return
	}
	out.Close()

	report, err := s.pipeline.File(r.Context(), dest)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "ingesting upload: "+err.Error())
		return
	}

	resp := map[string]any{
		"document_id": report.DocumentID,
		"status":      string(report.Status),
		"keywords":    report.Keywords,
		"category":    report.Category,
		"skipped":     report.Skipped,
	}
	if report.Err != nil {
		resp["detail"] = report.Err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.catalog.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]map[string]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.ToMap())
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": out})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "q parameter is required")
		return
	}

	limit := 5
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	filter := searchFilter(r)
	results, err := s.vectors.Query(r.Context(), query, limit, filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	type hit struct {
		DocumentID     string  `json:"document_id"`
		ChunkIndex     int     `json:"chunk_index"`
		Filename       string  `json:"filename"`
		Classification string  `json:"classification"`
		Content        string  `json:"content"`
		Similarity     float32 `json:"similarity"`
	}
	hits := make([]hit, 0, len(results))
	for _, res := range results {
		hits = append(hits, hit{
			DocumentID:     res.Record.Metadata.DocumentID,
			ChunkIndex:     res.Record.Metadata.ChunkIndex,
			Filename:       res.Record.Metadata.Filename,
			Classification: res.Record.Metadata.Classification,
			Content:        res.Record.Content,
			Similarity:     res.Similarity,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": hits})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	sess, err := s.sessions.CreateSession(r.Context(), req.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"session_id": sess.ID,
		"user_id":    sess.UserID,
	})
}

func (s *Server) handleListTurns(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, err := s.sessions.GetSession(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if sess == nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	turns, err := s.sessions.Turns(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"turns": turnsJSON(turns)})
}

func (s *Server) handleHistorySearch(w http.ResponseWriter, r *http.Request) {
	user := r.URL.Query().Get("user")
	query := r.URL.Query().Get("q")
	if user == "" || query == "" {
		writeError(w, http.StatusBadRequest, "user and q parameters are required")
		return
	}

	opts := s.cfg.HistorySearch
	if opts.TopK <= 0 {
		opts = session.DefaultSearchOptions
	}
	matches, err := s.sessions.Search(r.Context(), user, query, opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	type matchJSON struct {
		SessionID string  `json:"session_id"`
		Role      string  `json:"role"`
		Content   string  `json:"content"`
		Score     float64 `json:"score"`
	}
	out := make([]matchJSON, 0, len(matches))
	for _, m := range matches {
		out = append(out, matchJSON{
			SessionID: m.Turn.SessionID,
			Role:      string(m.Turn.Role),
			Content:   m.Turn.Content,
			Score:     m.Score,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"matches": out})
}

func turnsJSON(turns []session.Turn) []map[string]any {
	out := make([]map[string]any, 0, len(turns))
	for _, t := range turns {
		entry := map[string]any{
			"id":         t.ID,
			"seq":        t.Seq,
			"role":       string(t.Role),
			"content":    t.Content,
			"created_at": t.CreatedAt,
		}
		if len(t.ChunkRefs) > 0 {
			entry["chunk_refs"] = t.ChunkRefs
		}
		if t.FunctionResult != "" {
			entry["function_result"] = json.RawMessage(t.FunctionResult)
		}
		out = append(out, entry)
	}
	return out
}
