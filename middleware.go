package main

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"safepath-route-server/config"
)

// maxTrackedClients bounds the per-IP limiter table; the least recently seen
// client is forgotten first.
const maxTrackedClients = 4096

func corsMiddleware(cfg config.ServerConfig) gin.HandlerFunc {
	cc := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) == 0 {
		cc.AllowAllOrigins = true
	} else {
		cc.AllowOrigins = cfg.AllowedOrigins
	}
	cc.AllowMethods = []string{"GET", "OPTIONS"}
	cc.AllowHeaders = []string{"*"}
	return cors.New(cc)
}

// rateLimit applies a token bucket per client IP. rps <= 0 disables it.
func rateLimit(rps float64, burst int) gin.HandlerFunc {
	if rps <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	clients, _ := lru.New[string, *rate.Limiter](maxTrackedClients)
	burst = max(burst, 1)

	return func(c *gin.Context) {
		ip := c.ClientIP()
		lim, ok := clients.Get(ip)
		if !ok {
			lim = rate.NewLimiter(rate.Limit(rps), burst)
			if prev, found, _ := clients.PeekOrAdd(ip, lim); found {
				lim = prev
			}
		}
		if !lim.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

func newRouter(s *server, cfg config.ServerConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(corsMiddleware(cfg))

	r.GET("/health", s.handleHealth)
	r.GET("/metrics", s.metricsHandler())

	api := r.Group("/", rateLimit(cfg.RateLimit, cfg.RateBurst))
	api.GET("/route", s.handleRoute)
	api.GET("/compare", s.handleCompare)
	api.GET("/alternatives", s.handleAlternatives)
	api.GET("/stats", s.handleStats)
	return r
}
