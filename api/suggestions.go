// Copyright 2025 The Ubica Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/chambape/ubica/location"
	"github.com/chambape/ubica/suggest"
)

// SelectionRequest names a location either as input to resolve or as a
// ResolvedLocation handed out earlier, which may be unverified.
type SelectionRequest struct {
	Location *LocationInput             `json:"location"`
	Resolved *location.ResolvedLocation `json:"resolved"`
}

// FavoriteRequest is a SelectionRequest with a label and a kind.
type FavoriteRequest struct {
	SelectionRequest
	Label string `json:"label"`
	Kind  string `json:"kind"`
}

// MutationResponse reports whether the change reached storage. The change is
// applied in memory either way.
type MutationResponse struct {
	Persisted bool           `json:"persisted"`
	Warning   string         `json:"warning,omitempty"`
	Entry     *suggest.Entry `json:"entry,omitempty"`
}

func (s *Server) store(c *gin.Context) (*suggest.Store, bool) {
	store, err := s.suggestions.Get(c.Request.Context(), c.Param("owner"))
	switch {
	case errors.Is(err, suggest.ErrInvalidOwner):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return nil, false
	case err != nil:
		_ = c.Error(err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "suggestions unavailable"})

		return nil, false
	}

	return store, true
}

// selected turns the request into a location, answering the request itself
// when it cannot.
func (s *Server) selected(c *gin.Context, req SelectionRequest) (location.ResolvedLocation, bool) {
	switch {
	case req.Resolved != nil:
		return *req.Resolved, true
	case req.Location != nil:
		loc, step := req.Location.Resolve(s.resolver)
		s.metrics.ResolutionSteps.WithLabelValues(step.String()).Inc()

		if loc == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "location not found"})

			return location.ResolvedLocation{}, false
		}

		return *loc, true
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "location or resolved is required"})

		return location.ResolvedLocation{}, false
	}
}

// mutated answers a store mutation. Persist failures are answered with 200
// and persisted=false: the session keeps the change.
func (s *Server) mutated(c *gin.Context, status int, entry *suggest.Entry, err error) {
	switch {
	case err == nil:
		c.JSON(status, MutationResponse{Persisted: true, Entry: entry})
	case errors.Is(err, suggest.ErrPersist):
		s.metrics.PersistFailures.Inc()
		s.logger.Warn("suggestion kept in memory only", zap.String("owner", c.Param("owner")), zap.Error(err))
		c.JSON(http.StatusOK, MutationResponse{Persisted: false, Warning: "change not saved, it will be lost when the session ends", Entry: entry})
	case errors.Is(err, suggest.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, suggest.ErrInvalidLocation), errors.Is(err, suggest.ErrInvalidKind):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (s *Server) quickSuggestions(c *gin.Context) {
	limit, ok := s.limit(c)
	if !ok {
		return
	}

	store, ok := s.store(c)
	if !ok {
		return
	}

	entries := store.QuickSuggestions(limit)
	if entries == nil {
		entries = []suggest.Entry{}
	}

	c.JSON(http.StatusOK, gin.H{"suggestions": entries})
}

func (s *Server) recordSelection(c *gin.Context) {
	var req SelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	store, ok := s.store(c)
	if !ok {
		return
	}

	loc, ok := s.selected(c, req)
	if !ok {
		return
	}

	entry, err := store.RecordSelection(c.Request.Context(), loc)

	var out *suggest.Entry
	if entry.ID != "" {
		out = &entry
	}

	s.mutated(c, http.StatusOK, out, err)
}

func (s *Server) addFavorite(c *gin.Context) {
	var req FavoriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	kind, err := suggest.ParseKind(req.Kind)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	store, ok := s.store(c)
	if !ok {
		return
	}

	loc, ok := s.selected(c, req.SelectionRequest)
	if !ok {
		return
	}

	entry, err := store.AddFavorite(c.Request.Context(), loc, req.Label, kind)

	var out *suggest.Entry
	if entry.ID != "" {
		out = &entry
	}

	s.mutated(c, http.StatusCreated, out, err)
}

func (s *Server) removeFavorite(c *gin.Context) {
	store, ok := s.store(c)
	if !ok {
		return
	}

	s.mutated(c, http.StatusOK, nil, store.RemoveFavorite(c.Request.Context(), c.Param("id")))
}
