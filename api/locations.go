// Copyright 2025 The Ubica Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/chambape/ubica/geocoding"
	"github.com/chambape/ubica/location"
	"github.com/chambape/ubica/spatial"
)

// SearchResult is one hit as returned by the search route.
type SearchResult struct {
	Level     location.Level            `json:"level"`
	ID        string                    `json:"id"`
	Name      string                    `json:"name"`
	Label     string                    `json:"label"`
	Ancestors []string                  `json:"ancestors,omitempty"`
	Tier      string                    `json:"tier"`
	Distance  int                       `json:"distance,omitempty"`
	Score     float64                   `json:"score"`
	Location  location.ResolvedLocation `json:"location"`
}

// ResolveResponse carries the match, if any, and the step that produced it.
type ResolveResponse struct {
	Location *location.ResolvedLocation `json:"location"`
	Step     string                     `json:"step"`
}

// GeocodeRequest is either coordinates to reverse geocode or raw geocoder
// text resolved directly. Coordinates are optional with raw text and are
// attached to the result when both are given.
type GeocodeRequest struct {
	Lat *float64               `json:"lat"`
	Lng *float64               `json:"lng"`
	Raw *geocoding.RawLocation `json:"raw"`
}

// point returns nil when neither coordinate is given.
func (r GeocodeRequest) point() (*spatial.Point, error) {
	switch {
	case r.Lat == nil && r.Lng == nil:
		return nil, nil
	case r.Lat == nil || r.Lng == nil:
		return nil, errors.New("lat and lng must be given together")
	}

	return &spatial.Point{Lat: *r.Lat, Lng: *r.Lng}, nil
}

// GeocodeResponse has a nil Location when nothing is known at the point.
type GeocodeResponse struct {
	Location *location.ResolvedLocation `json:"location"`
	Verified bool                       `json:"verified"`
}

// NodeResponse is a dataset node in browsing responses.
type NodeResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (s *Server) limit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return s.opts.DefaultLimit, true
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})

		return 0, false
	}

	return min(n, s.opts.MaxLimit), true
}

func (s *Server) searchLocations(c *gin.Context) {
	limit, ok := s.limit(c)
	if !ok {
		return
	}

	query := c.Query("q")
	hits := s.search.Search(query, limit)
	s.metrics.SearchRequests.Inc()

	results := make([]SearchResult, 0, len(hits))
	for _, h := range hits {
		results = append(results, SearchResult{
			Level:     h.Level,
			ID:        h.ID,
			Name:      h.Name,
			Label:     h.Label(),
			Ancestors: h.Ancestors,
			Tier:      h.Tier.String(),
			Distance:  h.Distance,
			Score:     h.Score,
			Location:  h.Location(),
		})
	}

	c.JSON(http.StatusOK, gin.H{"query": query, "results": results})
}

func (s *Server) resolveLocation(c *gin.Context) {
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	in := req.input()
	loc, step := in.Resolve(s.resolver)
	s.metrics.ResolutionSteps.WithLabelValues(step.String()).Inc()

	s.logger.Debug("resolved", zap.Stringer("input", in), zap.Stringer("step", step))

	c.JSON(http.StatusOK, ResolveResponse{Location: loc, Step: step.String()})
}

func (s *Server) geocode(c *gin.Context) {
	var req GeocodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	point, err := req.point()
	if err == nil && point != nil {
		err = point.ValidateWithin(s.bridge.Bounds())
	}

	if err == nil && point == nil && req.Raw == nil {
		err = errors.New("lat and lng, or raw, are required")
	}

	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	var loc *location.ResolvedLocation

	if req.Raw != nil {
		loc = s.bridge.FromGeocode(*req.Raw, point)
	} else {
		loc, err = s.bridge.Locate(c.Request.Context(), *point)
	}

	switch {
	case geocoding.IsUnavailable(err):
		s.metrics.GeocodeFallbacks.WithLabelValues("unavailable").Inc()
		_ = c.Error(err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no coordinates based suggestion available"})

		return
	case err != nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	case loc == nil:
		s.metrics.GeocodeFallbacks.WithLabelValues("empty").Inc()
	case loc.Unverified:
		s.metrics.GeocodeFallbacks.WithLabelValues("unverified").Inc()
	default:
		s.metrics.GeocodeFallbacks.WithLabelValues("verified").Inc()
	}

	c.JSON(http.StatusOK, GeocodeResponse{Location: loc, Verified: loc != nil && !loc.Unverified})
}

func (s *Server) listRegions(c *gin.Context) {
	regions := s.ds.Regions()

	out := make([]NodeResponse, 0, len(regions))
	for _, r := range regions {
		out = append(out, NodeResponse{ID: r.ID, Name: r.Name})
	}

	c.JSON(http.StatusOK, gin.H{"regions": out})
}

func (s *Server) listSubRegions(c *gin.Context) {
	region := s.ds.RegionByID(c.Param("id"))
	if region == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown region"})

		return
	}

	subs := s.ds.SubRegionsOf(region)

	out := make([]NodeResponse, 0, len(subs))
	for _, sr := range subs {
		out = append(out, NodeResponse{ID: sr.ID, Name: sr.Name})
	}

	c.JSON(http.StatusOK, gin.H{"region": NodeResponse{ID: region.ID, Name: region.Name}, "subregions": out})
}

func (s *Server) listLocalities(c *gin.Context) {
	sub := s.ds.SubRegionByID(c.Param("id"))
	if sub == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown subregion"})

		return
	}

	locs := s.ds.LocalitiesOf(sub)

	out := make([]NodeResponse, 0, len(locs))
	for _, l := range locs {
		out = append(out, NodeResponse{ID: l.ID, Name: l.Name})
	}

	c.JSON(http.StatusOK, gin.H{"subregion": NodeResponse{ID: sub.ID, Name: sub.Name}, "localities": out})
}
