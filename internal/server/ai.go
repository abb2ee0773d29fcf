package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/kshou/lualab/internal/advisor"
)

type aiRequest struct {
	Code       string `json:"code"`
	QuestionID string `json:"question_id"`
	Question   string `json:"question"`
	Output     string `json:"output"`
	Expected   string `json:"expected"`
}

// submission resolves the request into an advisor submission, pulling the
// question text from the repository when only an ID was sent.
func (s *Server) submission(r *http.Request, req aiRequest) advisor.Submission {
	question := req.Question
	if question == "" && req.QuestionID != "" && s.repo != nil {
		if q, err := s.repo.Get(r.Context(), req.QuestionID); err == nil {
			question = q.Title + "\n" + q.Description
		}
	}
	return advisor.Submission{
		Code:     req.Code,
		Question: question,
		Output:   req.Output,
		Expected: req.Expected,
	}
}

func (s *Server) decodeAIRequest(w http.ResponseWriter, r *http.Request) (aiRequest, bool) {
	var req aiRequest
	if s.advisor == nil {
		writeError(w, http.StatusServiceUnavailable, "AI advisor not configured")
		return req, false
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return req, false
	}
	if req.Code == "" {
		writeError(w, http.StatusBadRequest, "code is required")
		return req, false
	}
	return req, true
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeAIRequest(w, r)
	if !ok {
		return
	}

	analysis, err := s.advisor.Analyze(r.Context(), s.submission(r, req))
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("analyzing code: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeAIRequest(w, r)
	if !ok {
		return
	}

	result, err := s.advisor.Check(r.Context(), s.submission(r, req))
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("checking output: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeAIRequest(w, r)
	if !ok {
		return
	}

	hint, err := s.advisor.Suggest(r.Context(), s.submission(r, req))
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("generating hint: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"suggestion": hint})
}

type chatRequest struct {
	aiRequest
	Messages []advisor.ChatMessage `json:"messages"`
}

// handleChat streams a tutoring reply as server-sent events. Each delta goes
// out as `data: {"text":...}` and the stream ends with `data: [DONE]`.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if s.advisor == nil {
		writeError(w, http.StatusServiceUnavailable, "AI advisor not configured")
		return
	}

	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "messages are required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	var mu sync.Mutex
	send := func(payload string) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(w, "data: %s\n\n", payload)
		flusher.Flush()
	}

	err := s.advisor.ChatStream(r.Context(), s.submission(r, req.aiRequest), req.Messages, func(delta string) {
		chunk, merr := json.Marshal(map[string]string{"text": delta})
		if merr != nil {
			return
		}
		send(string(chunk))
	})
	if err != nil {
		chunk, _ := json.Marshal(map[string]string{"error": err.Error()})
		send(string(chunk))
	}
	send("[DONE]")
}
