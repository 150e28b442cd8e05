package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/subgrab/subgrab/internal/captions"
	"github.com/subgrab/subgrab/internal/config"
	"github.com/subgrab/subgrab/internal/jobs"
	"github.com/subgrab/subgrab/internal/subtitle"
	"github.com/subgrab/subgrab/pkg/icron"
)

type fetchSubtitlesRequest struct {
	VideoID string `json:"videoId"`
}

func (s *Server) handleFetchSubtitles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req fetchSubtitlesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if strings.TrimSpace(req.VideoID) == "" {
		writeError(w, http.StatusBadRequest, "videoId is required")
		return
	}

	tracks, err := s.svc.ListTracks(r.Context(), req.VideoID)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	if tracks == nil {
		tracks = []captions.Track{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"subtitles": tracks,
	})
}

func (s *Server) handleDownloadSubtitle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	query := r.URL.Query()
	videoID := strings.TrimSpace(query.Get("videoId"))
	lang := strings.TrimSpace(query.Get("lang"))
	format := strings.TrimSpace(query.Get("format"))
	if videoID == "" || lang == "" {
		writeError(w, http.StatusBadRequest, "videoId and lang are required")
		return
	}
	if format == "" {
		format = subtitle.FormatSRT
	}

	doc, err := s.svc.DownloadTrack(r.Context(), videoID, lang, format)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	w.Header().Set("Content-Type", doc.MIMEType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Content)
}

// statusForError maps fetch failures onto response codes: missing captions
// are the caller's problem, upstream trouble is not.
func statusForError(err error) int {
	switch {
	case errors.Is(err, captions.ErrCaptionsDisabled), errors.Is(err, captions.ErrNoTranscript):
		return http.StatusNotFound
	case errors.Is(err, subtitle.ErrUnsupportedFormat):
		return http.StatusBadRequest
	case captions.IsUpstream(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

type enqueueJobRequest struct {
	Source  string `json:"source"`
	VideoID string `json:"videoId"`
	Lang    string `json:"lang"`
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.queue.List())
	case http.MethodPost:
		var req enqueueJobRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		if req.Source == "" {
			req.Source = "manual"
		}
		if strings.TrimSpace(req.VideoID) == "" {
			writeError(w, http.StatusBadRequest, "videoId is required")
			return
		}
		if strings.TrimSpace(req.Lang) == "" {
			writeError(w, http.StatusBadRequest, "lang is required")
			return
		}

		job, created := s.queue.Enqueue(jobs.EnqueueRequest{
			Source:    req.Source,
			DedupeKey: req.VideoID + "|" + req.Lang,
			Payload: jobs.JobPayload{
				VideoID:  req.VideoID,
				Language: req.Lang,
			},
		})
		code := http.StatusCreated
		if !created {
			code = http.StatusOK
		}
		writeJSON(w, code, map[string]any{
			"created": created,
			"job":     job,
		})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	if s.settings == nil {
		writeError(w, http.StatusNotImplemented, "settings store is not configured")
		return
	}

	switch r.Method {
	case http.MethodGet:
		settings, err := s.settings.GetRuntimeSettings()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, settings)
	case http.MethodPut:
		var req config.RuntimeSettings
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		if err := req.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		saved, err := s.settings.UpdateRuntimeSettings(req)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if s.apply != nil {
			if err := s.apply(saved); err != nil {
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
		}
		writeJSON(w, http.StatusOK, saved)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

type statusResponse struct {
	UptimeSeconds float64           `json:"uptime_seconds"`
	ProxyCount    int               `json:"proxy_count"`
	JobCount      int               `json:"job_count"`
	CacheSweep    *cacheSweepStatus `json:"cache_sweep,omitempty"`
}

type cacheSweepStatus struct {
	Expression string    `json:"expression"`
	Last       time.Time `json:"last"`
	Next       time.Time `json:"next"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	ret := statusResponse{
		UptimeSeconds: time.Since(s.startedAt).Seconds(),
	}
	if s.pool != nil {
		ret.ProxyCount = s.pool.Size()
	}
	if s.queue != nil {
		ret.JobCount = len(s.queue.List())
	}
	if s.settings != nil {
		if settings, err := s.settings.GetRuntimeSettings(); err == nil {
			if info, err := icron.GetTriggerInfo(settings.CacheSweepCron, time.Now()); err == nil {
				ret.CacheSweep = &cacheSweepStatus{
					Expression: settings.CacheSweepCron,
					Last:       info.Last,
					Next:       info.Next,
				}
			}
		}
	}
	writeJSON(w, http.StatusOK, ret)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"success": false,
		"message": msg,
	})
}
