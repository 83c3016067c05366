package main

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"safepath-route-server/routing"
)

type server struct {
	engine   *routing.Engine
	gatherer prometheus.Gatherer
	log      *slog.Logger
}

// endpointParams are the coordinates every routing endpoint takes.
type endpointParams struct {
	OriginLon    *float64 `form:"origin_lon" binding:"required,longitude"`
	OriginLat    *float64 `form:"origin_lat" binding:"required,latitude"`
	DestLon      *float64 `form:"dest_lon" binding:"required,longitude"`
	DestLat      *float64 `form:"dest_lat" binding:"required,latitude"`
	Optimization string   `form:"optimization"`
}

func (p endpointParams) origin() routing.Coordinate {
	return routing.Coordinate{Lon: *p.OriginLon, Lat: *p.OriginLat}
}

func (p endpointParams) destination() routing.Coordinate {
	return routing.Coordinate{Lon: *p.DestLon, Lat: *p.DestLat}
}

func (p endpointParams) profile() (routing.Profile, error) {
	if p.Optimization == "" {
		return routing.ProfileCombined, nil
	}
	return routing.ParseProfile(p.Optimization)
}

type routeParams struct {
	endpointParams
	Algorithm    string  `form:"algorithm"`
	CameraReward float64 `form:"camera_reward" binding:"gte=0"`
}

// compareParams ranks algorithms by default; with profiles set it runs a
// single algorithm once per profile instead.
type compareParams struct {
	endpointParams
	Algorithms string `form:"algorithms"`
	Profiles   string `form:"profiles" binding:"excluded_with=Algorithms"`
	Algorithm  string `form:"algorithm"`
}

type alternativesParams struct {
	endpointParams
	K int `form:"k" binding:"gte=0"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, routing.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, routing.ErrNodeNotFound), errors.Is(err, routing.ErrNoPathFound):
		return http.StatusNotFound
	case errors.Is(err, routing.ErrNegativeCycleDetected),
		errors.Is(err, routing.ErrDeadEnd),
		errors.Is(err, routing.ErrSearchBudgetExceeded):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", "path", c.FullPath(), "error", err)
	} else {
		s.log.Info("request rejected", "path", c.FullPath(), "kind", routing.Kind(err), "error", err)
	}
	c.JSON(status, gin.H{"error": err.Error(), "kind": routing.Kind(err)})
}

func (s *server) badRequest(c *gin.Context, err error) {
	s.log.Warn("Failed to parse request", "path", c.FullPath(), "error", err)
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": routing.Kind(routing.ErrInvalidArgument)})
}

func (s *server) handleHealth(c *gin.Context) {
	snap, err := s.engine.Snapshot()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "loading", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "snapshot": snap.ID})
}

func (s *server) handleRoute(c *gin.Context) {
	s.log.Info("=== Received route request ===")

	var req routeParams
	if err := c.ShouldBindQuery(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	profile, err := req.profile()
	if err != nil {
		s.fail(c, err)
		return
	}
	var alg routing.Algorithm
	if req.Algorithm != "" {
		if alg, err = routing.ParseAlgorithm(req.Algorithm); err != nil {
			s.fail(c, err)
			return
		}
	}

	s.log.Info("Request details",
		"origin", req.origin(), "destination", req.destination(),
		"optimization", profile, "algorithm", alg, "camera_reward", req.CameraReward)

	route, err := s.engine.RouteWithFallback(routing.RouteQuery{
		Origin:       req.origin(),
		Destination:  req.destination(),
		Profile:      profile,
		Algorithm:    alg,
		CameraReward: req.CameraReward,
	})
	if err != nil {
		s.fail(c, err)
		return
	}

	s.log.Info("Sending route",
		"algorithm", route.Algorithm,
		"segments", route.Statistics.NumSegments,
		"distance_m", route.Statistics.TotalDistance,
		"cost", route.Statistics.Cost)
	c.JSON(http.StatusOK, route.FeatureCollection())
}

func (s *server) handleCompare(c *gin.Context) {
	s.log.Info("=== Received compare request ===")

	var req compareParams
	if err := c.ShouldBindQuery(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	if req.Profiles != "" {
		s.compareProfiles(c, req)
		return
	}
	profile, err := req.profile()
	if err != nil {
		s.fail(c, err)
		return
	}
	var algs []routing.Algorithm
	if req.Algorithms != "" {
		if algs, err = routing.ParseAlgorithms(req.Algorithms); err != nil {
			s.fail(c, err)
			return
		}
	}

	cmp, err := s.engine.Compare(routing.CompareQuery{
		Origin:      req.origin(),
		Destination: req.destination(),
		Profile:     profile,
		Algorithms:  algs,
	})
	if err != nil {
		s.fail(c, err)
		return
	}

	s.log.Info("Comparison completed", "results", len(cmp.Results), "ranking", cmp.Ranking)
	c.JSON(http.StatusOK, gin.H{
		"request_id":   uuid.NewString(),
		"optimization": cmp.Profile,
		"results":      cmp.Results,
		"ranking":      cmp.Ranking,
	})
}

func (s *server) compareProfiles(c *gin.Context, req compareParams) {
	profiles, err := routing.ParseProfiles(req.Profiles)
	if err != nil {
		s.fail(c, err)
		return
	}
	var alg routing.Algorithm
	if req.Algorithm != "" {
		if alg, err = routing.ParseAlgorithm(req.Algorithm); err != nil {
			s.fail(c, err)
			return
		}
	}

	cmp, err := s.engine.CompareProfiles(routing.ProfileCompareQuery{
		Origin:      req.origin(),
		Destination: req.destination(),
		Algorithm:   alg,
		Profiles:    profiles,
	})
	if err != nil {
		s.fail(c, err)
		return
	}

	s.log.Info("Profile comparison completed", "algorithm", cmp.Algorithm, "results", len(cmp.Results))
	c.JSON(http.StatusOK, gin.H{
		"request_id": uuid.NewString(),
		"algorithm":  cmp.Algorithm,
		"results":    cmp.Results,
	})
}

func (s *server) handleAlternatives(c *gin.Context) {
	s.log.Info("=== Received alternatives request ===")

	var req alternativesParams
	if err := c.ShouldBindQuery(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	profile, err := req.profile()
	if err != nil {
		s.fail(c, err)
		return
	}

	routes, err := s.engine.Alternatives(routing.AlternativesQuery{
		Origin:      req.origin(),
		Destination: req.destination(),
		Profile:     profile,
		K:           req.K,
	})
	if err != nil {
		s.fail(c, err)
		return
	}

	s.log.Info("Alternatives found", "routes", len(routes))
	c.JSON(http.StatusOK, gin.H{
		"request_id": uuid.NewString(),
		"routes":     routes,
	})
}

func (s *server) handleStats(c *gin.Context) {
	snap, err := s.engine.Snapshot()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"snapshot": snap.ID,
		"built_at": snap.BuiltAt,
		"source":   snap.Source,
		"graph":    snap.Graph.Stats(),
	})
}

func (s *server) metricsHandler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
}
