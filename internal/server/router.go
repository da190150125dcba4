package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redwatch/redwatch/internal/status"
)

// Triggerer requests an out-of-cadence comment refresh.
type Triggerer interface {
	ForceTrigger()
}

// Router provides embeddable read-mostly HTTP handlers for a running
// supervisor. Endpoints:
//
//	GET  {basePath}/status   current Snapshot as JSON
//	GET  {basePath}/healthz  200 when an instance is active, 503 otherwise
//	POST {basePath}/trigger  request a comment refresh on the next tick
//
// basePath may be empty or start with '/'; no trailing slash.
type Router struct {
	reporter *status.Reporter
	trig     Triggerer
	basePath string
}

// NewRouter constructs a Router. trig may be nil, in which case /trigger
// returns 404.
func NewRouter(reporter *status.Reporter, trig Triggerer, basePath string) *Router {
	return &Router{reporter: reporter, trig: trig, basePath: sanitizeBase(basePath)}
}

// Handler returns an http.Handler powered by gin that can be mounted in
// any server/mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	group := g.Group(r.basePath)
	group.GET("/status", r.handleStatus)
	group.GET("/healthz", r.handleHealthz)
	if r.trig != nil {
		group.POST("/trigger", r.handleTrigger)
	}
	return g
}

// NewServer starts a standalone HTTP server on addr using this router.
// Call Close or Shutdown on the returned server to stop it.
func NewServer(addr, basePath string, reporter *status.Reporter, trig Triggerer) *http.Server {
	r := NewRouter(reporter, trig, basePath)
	server := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() { _ = server.ListenAndServe() }()
	return server
}

type okResp struct {
	OK bool `json:"ok"`
}

func (r *Router) handleStatus(c *gin.Context) {
	writeJSON(c, http.StatusOK, r.reporter.Report())
}

func (r *Router) handleHealthz(c *gin.Context) {
	snap := r.reporter.Report()
	code := http.StatusOK
	if !snap.Active {
		code = http.StatusServiceUnavailable
	}
	writeJSON(c, code, gin.H{"active": snap.Active})
}

func (r *Router) handleTrigger(c *gin.Context) {
	r.trig.ForceTrigger()
	writeJSON(c, http.StatusAccepted, okResp{OK: true})
}
