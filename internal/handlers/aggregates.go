package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/example/engagement-platform/internal/aggregate"
	"github.com/example/engagement-platform/internal/platform/api"
)

// ReactionSummary handles GET /v1/content/{content_id}/reactions/summary
func ReactionSummary(e *aggregate.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		contentID, ok := urlParam(w, r, "content_id")
		if !ok {
			return
		}
		s, err := e.ReactionSummary(r.Context(), requestActor(r), contentID)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, s)
	}
}

// CommentStatistics handles GET /v1/content/{content_id}/comments/statistics
func CommentStatistics(e *aggregate.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		contentID, ok := urlParam(w, r, "content_id")
		if !ok {
			return
		}
		st, err := e.CommentStatistics(r.Context(), contentID)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, st)
	}
}

// IntensityAnalysis handles GET /v1/content/{content_id}/reactions/intensity
func IntensityAnalysis(e *aggregate.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		contentID, ok := urlParam(w, r, "content_id")
		if !ok {
			return
		}
		p, err := e.IntensityAnalysis(r.Context(), contentID)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, p)
	}
}

func trendParams(r *http.Request) (window time.Duration, limit int) {
	q := r.URL.Query()
	if d, err := strconv.Atoi(q.Get("window_days")); err == nil && d > 0 {
		window = time.Duration(d) * 24 * time.Hour
	}
	if n, err := strconv.Atoi(q.Get("limit")); err == nil {
		limit = n
	}
	return window, limit
}

// TrendingHashtags handles GET /v1/trending/hashtags
func TrendingHashtags(e *aggregate.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		window, limit := trendParams(r)
		tags, err := e.TrendingHashtags(r.Context(), window, limit)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, map[string]any{"hashtags": tags})
	}
}

// TrendingReactions handles GET /v1/trending/reactions
func TrendingReactions(e *aggregate.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		window, limit := trendParams(r)
		var cohort *int
		if c, err := strconv.Atoi(r.URL.Query().Get("cohort")); err == nil {
			cohort = &c
		}
		types, err := e.TrendingReactions(r.Context(), cohort, window, limit)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, map[string]any{"reactions": types})
	}
}
