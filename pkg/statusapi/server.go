// Package statusapi implements the scheduler's optional HTTP status and
// control surface: a JSON snapshot endpoint, a WebSocket progress feed,
// and a cancellation endpoint, all guarded by an optional bearer token.
// Grounded on the teacher's pkg/api server/websocket/middleware trio,
// trimmed from a multi-tenant cluster API down to the single-run surface
// this scheduler needs.
package statusapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RunStats is the snapshot a Provider returns for /v1/stats and the
// periodic WebSocket broadcast.
type RunStats struct {
	RunID     string
	Iteration int64
	BestObj   float64
	Mean      float64
	Worst     float64
	Elapsed   time.Duration
	Finished  bool
}

// Provider is implemented by the running scheduler to expose a read-only
// snapshot and accept a cancellation request.
type Provider interface {
	Snapshot() RunStats
	Cancel()
}

// Server is the status/control HTTP surface.
type Server struct {
	addr   string
	logger *slog.Logger
	auth   *TokenAuthority
	hub    *Hub
	prov   Provider
	srv    *http.Server
	tick   time.Duration
}

// Options configures a Server.
type Options struct {
	Addr          string
	Logger        *slog.Logger
	TokenSecret   string // empty disables auth
	TokenTTL      time.Duration
	BroadcastTick time.Duration // cadence for pushing RunStats over the hub; default 1s
}

// New creates a status API server bound to prov.
func New(prov Provider, opts Options) *Server {
	tick := opts.BroadcastTick
	if tick <= 0 {
		tick = time.Second
	}
	s := &Server{
		addr:   opts.Addr,
		logger: opts.Logger,
		auth:   NewTokenAuthority(opts.TokenSecret, opts.TokenTTL),
		hub:    NewHub(opts.Logger),
		prov:   prov,
		tick:   tick,
	}
	return s
}

// Start runs the HTTP server and the broadcast loop until ctx is
// cancelled, returning once both have shut down.
func (s *Server) Start(ctx context.Context) error {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(loggingMiddleware(s.logger), gin.Recovery(), cors.Default())

	v1 := router.Group("/v1")
	v1.Use(authMiddleware(s.auth))
	v1.GET("/stats", s.statsHandler)
	v1.GET("/ws", func(c *gin.Context) { s.hub.ServeWS(c.Writer, c.Request) })
	v1.POST("/cancel", s.cancelHandler)

	s.srv = &http.Server{Addr: s.addr, Handler: router}

	go s.hub.Run(ctx)
	go s.broadcastLoop(ctx)

	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

func (s *Server) broadcastLoop(ctx context.Context) {
	ticker := time.NewTicker(s.tickOrDefault())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st := s.prov.Snapshot()
			s.hub.Broadcast(StatusEvent{
				RunID:     st.RunID,
				Iteration: st.Iteration,
				BestObj:   st.BestObj,
				Mean:      st.Mean,
				Worst:     st.Worst,
				Elapsed:   st.Elapsed.Seconds(),
				Finished:  st.Finished,
			})
		}
	}
}

func (s *Server) tickOrDefault() time.Duration {
	if s.tick <= 0 {
		return time.Second
	}
	return s.tick
}

func (s *Server) statsHandler(c *gin.Context) {
	st := s.prov.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"run_id":         st.RunID,
		"iteration":      st.Iteration,
		"best_objective": st.BestObj,
		"mean_objective": st.Mean,
		"worst_objective": st.Worst,
		"elapsed_seconds": st.Elapsed.Seconds(),
		"finished":        st.Finished,
	})
}

func (s *Server) cancelHandler(c *gin.Context) {
	s.prov.Cancel()
	c.JSON(http.StatusAccepted, gin.H{"status": "cancelling"})
}
