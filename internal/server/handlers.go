package server

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kshou/lualab/internal/questions"
	"github.com/kshou/lualab/internal/sandbox"
	"github.com/kshou/lualab/internal/storage"
)

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// --- Health handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"uptime_seconds": int(time.Since(s.started) / time.Second),
		"timeout":        s.runner.Timeout().String(),
		"questions":      s.repo != nil,
		"ai":             s.advisor != nil,
		"scores":         s.store != nil,
	})
}

// --- Sandbox handlers ---

type executeRequest struct {
	Code   string   `json:"code"`
	Inputs []string `json:"inputs"`
}

type executeResponse struct {
	Success  bool   `json:"success"`
	Output   string `json:"output,omitempty"`
	Error    string `json:"error,omitempty"`
	TimedOut bool   `json:"timed_out,omitempty"`
}

// handleExecute validates and runs a submission. Rejections and runtime
// failures are normal outcomes, reported as 200 with success:false; only a
// malformed request is a 400.
func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	if err := sandbox.CheckLimits(req.Code, req.Inputs); err != nil {
		writeJSON(w, http.StatusOK, executeResponse{Success: false, Error: err.Error()})
		return
	}

	if verdict := s.validator.Validate(req.Code); !verdict.OK {
		writeJSON(w, http.StatusOK, executeResponse{Success: false, Error: verdict.Reason})
		return
	}

	result := s.runner.Run(r.Context(), req.Code, req.Inputs)
	resp := executeResponse{
		Success:  result.Err == "" && !result.TimedOut,
		Output:   result.Output,
		Error:    result.Err,
		TimedOut: result.TimedOut,
	}
	writeJSON(w, http.StatusOK, resp)
}

type validateRequest struct {
	Code string `json:"code"`
}

type validateResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	if err := sandbox.CheckLimits(req.Code, nil); err != nil {
		writeJSON(w, http.StatusOK, validateResponse{Message: "request rejected", Error: err.Error()})
		return
	}

	verdict := s.validator.Validate(req.Code)
	if !verdict.OK {
		writeJSON(w, http.StatusOK, validateResponse{Message: "validation failed", Error: verdict.Reason})
		return
	}
	writeJSON(w, http.StatusOK, validateResponse{Success: true, Message: "code is allowed to run"})
}

// --- Question handlers ---

type questionsResponse struct {
	Questions       []questions.Question `json:"questions"`
	FromCache       bool                 `json:"from_cache"`
	CacheAgeMinutes int                  `json:"cache_age_minutes"`
}

func (s *Server) handleListQuestions(w http.ResponseWriter, r *http.Request) {
	if s.repo == nil {
		writeError(w, http.StatusServiceUnavailable, "question source not configured")
		return
	}

	qs, fromCache, err := s.repo.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if qs == nil {
		qs = []questions.Question{}
	}
	writeJSON(w, http.StatusOK, questionsResponse{
		Questions:       qs,
		FromCache:       fromCache,
		CacheAgeMinutes: int(s.repo.CacheAge() / time.Minute),
	})
}

func (s *Server) handleGetQuestion(w http.ResponseWriter, r *http.Request) {
	if s.repo == nil {
		writeError(w, http.StatusServiceUnavailable, "question source not configured")
		return
	}

	id := chi.URLParam(r, "id")
	q, err := s.repo.Get(r.Context(), id)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeError(w, http.StatusNotFound, "question not found")
		} else {
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, q)
}

func (s *Server) handleRefreshQuestions(w http.ResponseWriter, r *http.Request) {
	if s.repo == nil {
		writeError(w, http.StatusServiceUnavailable, "question source not configured")
		return
	}

	qs, err := s.repo.Refresh(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, questionsResponse{Questions: qs})
}

// --- Score handlers ---

type submitScoreRequest struct {
	StudentName     string `json:"student_name"`
	QuestionID      string `json:"question_id"`
	QuestionTitle   string `json:"question_title"`
	Overall         int    `json:"overall_score"`
	TimeComplexity  int    `json:"time_complexity"`
	SpaceComplexity int    `json:"space_complexity"`
	Readability     int    `json:"readability"`
	Stability       int    `json:"stability"`
	Code            string `json:"code"`
}

func (s *Server) handleSubmitScore(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "score store not configured")
		return
	}

	var req submitScoreRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.StudentName == "" || req.QuestionID == "" {
		writeError(w, http.StatusBadRequest, "student_name and question_id are required")
		return
	}

	score := &storage.Score{
		StudentName:     req.StudentName,
		QuestionID:      req.QuestionID,
		QuestionTitle:   req.QuestionTitle,
		Overall:         req.Overall,
		TimeComplexity:  req.TimeComplexity,
		SpaceComplexity: req.SpaceComplexity,
		Readability:     req.Readability,
		Stability:       req.Stability,
		Code:            req.Code,
	}

	changed, err := s.store.SubmitScore(r.Context(), score)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Mirror accepted rows to the shared sheet; a failure there never
	// fails the submission.
	if changed && s.sheet != nil {
		if err := s.sheet.AppendScore(r.Context(), score); err != nil {
			log.Printf("score sheet append failed: %v", err)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"recorded":   changed,
		"is_highest": changed,
	})
}

func (s *Server) handleStudentScores(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "score store not configured")
		return
	}

	student := chi.URLParam(r, "student")
	scores, err := s.store.StudentScores(r.Context(), student)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if scores == nil {
		scores = []storage.Score{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"student": student,
		"scores":  scores,
	})
}
