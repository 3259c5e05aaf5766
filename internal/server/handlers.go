package server

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/vxlab/malsift/internal/retrieval"
)

type searchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

type searchMatch struct {
	Score    float64  `json:"score"`
	File     string   `json:"file"`
	Family   string   `json:"family,omitempty"`
	Type     string   `json:"type"`
	Text     string   `json:"text,omitempty"`
	APICalls []string `json:"api_calls,omitempty"`
}

type searchResponse struct {
	Matches []searchMatch `json:"matches"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	topK := req.TopK
	if topK <= 0 {
		topK = s.cfg.SearchTopK
	}

	matches, err := s.searcher.Hybrid(r.Context(), req.Query, topK)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "search failed: "+err.Error())
		return
	}

	resp := searchResponse{Matches: make([]searchMatch, len(matches))}
	for i, m := range matches {
		resp.Matches[i] = toSearchMatch(m)
	}
	writeJSON(w, http.StatusOK, resp)
}

func toSearchMatch(m retrieval.Match) searchMatch {
	return searchMatch{
		Score:    m.Score,
		File:     m.Meta.File,
		Family:   m.Meta.Family,
		Type:     string(m.Meta.Type),
		Text:     m.Text,
		APICalls: m.Meta.APICalls,
	}
}

type featuresRequest struct {
	Code string `json:"code"`
}

func (s *Server) handleFeatures(w http.ResponseWriter, r *http.Request) {
	var req featuresRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Code == "" {
		writeError(w, http.StatusBadRequest, "code is required")
		return
	}
	writeJSON(w, http.StatusOK, s.extractor.Extract(req.Code))
}

type analyzeRequest struct {
	Code   string `json:"code"`
	Source string `json:"source,omitempty"`
}

type analyzeResponse struct {
	Category string        `json:"category"`
	Family   string        `json:"family"`
	Matches  []searchMatch `json:"matches"`
	YaraRule string        `json:"yara_rule,omitempty"`
	Report   string        `json:"report"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if s.analyzer == nil {
		writeError(w, http.StatusServiceUnavailable, "analysis is not configured")
		return
	}

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Code == "" {
		writeError(w, http.StatusBadRequest, "code is required")
		return
	}
	source := req.Source
	if source == "" {
		source = "api"
	}

	rep, err := s.analyzer.Analyze(r.Context(), source, req.Code)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "analysis failed: "+err.Error())
		return
	}

	resp := analyzeResponse{
		Category: rep.Category,
		Family:   rep.Family,
		Matches:  make([]searchMatch, len(rep.Matches)),
		YaraRule: rep.YaraRule,
		Report:   rep.Content,
	}
	for i, m := range rep.Matches {
		resp.Matches[i] = toSearchMatch(m)
	}
	writeJSON(w, http.StatusOK, resp)
}

type statsResponse struct {
	CodePoints int           `json:"code_points"`
	DocPoints  int           `json:"doc_points"`
	LastRun    *runStats     `json:"last_run,omitempty"`
	Analyses   []statsReport `json:"recent_analyses,omitempty"`
}

type runStats struct {
	CorpusRoot     string `json:"corpus_root"`
	FilesTotal     int    `json:"files_total"`
	FilesIngested  int    `json:"files_ingested"`
	FilesFailed    int    `json:"files_failed"`
	PointsUpserted int    `json:"points_upserted"`
}

type statsReport struct {
	Source   string `json:"source"`
	Category string `json:"category"`
	Family   string `json:"family"`
	Model    string `json:"model"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	resp := statsResponse{
		CodePoints: s.store.Count(s.cfg.CodeCollection),
		DocPoints:  s.store.Count(s.cfg.TextCollection),
	}

	if s.ledger != nil {
		if run, err := s.ledger.LastRun(); err == nil && run != nil {
			resp.LastRun = &runStats{
				CorpusRoot:     run.CorpusRoot,
				FilesTotal:     run.FilesTotal,
				FilesIngested:  run.FilesIngested,
				FilesFailed:    run.FilesFailed,
				PointsUpserted: run.PointsUpserted,
			}
		}
		if records, err := s.ledger.RecentAnalyses(5); err == nil {
			for _, a := range records {
				resp.Analyses = append(resp.Analyses, statsReport{
					Source:   a.Source,
					Category: a.Category,
					Family:   a.Family,
					Model:    a.Model,
				})
			}
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("server: encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
