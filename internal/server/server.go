package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/orgmesh/orgmesh/internal/config"
	"github.com/orgmesh/orgmesh/internal/observability"
	obsmiddleware "github.com/orgmesh/orgmesh/internal/observability/logger"
	obsmetrics "github.com/orgmesh/orgmesh/internal/observability/metrics"
	obstracing "github.com/orgmesh/orgmesh/internal/observability/tracing"
	"github.com/orgmesh/orgmesh/internal/relations"
	relationsdomain "github.com/orgmesh/orgmesh/internal/relations/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	relations.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	addr := cfg.ListenAddr
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine       *gin.Engine
	cfg          config.Config
	catalog      *config.CatalogHolder
	relationsSvc relationsdomain.Service
	genID        *snowflake.Node
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	Catalog      *config.CatalogHolder
	RelationsSvc relationsdomain.Service
	GenID        *snowflake.Node
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		catalog:      p.Catalog,
		relationsSvc: p.RelationsSvc,
		genID:        p.GenID,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")
	api.Use(s.ActorContext())

	api.GET("/overview", s.GetOverview)
	api.POST("/refresh", s.PostRefresh)

	// -------- Partnerships --------
	api.GET("/partnerships", s.ListPartnerships)
	api.POST("/partnerships", s.ProposePartnership)
	api.POST("/partnerships/:id/accept", s.AcceptPartnership)
	api.POST("/partnerships/:id/reject", s.RejectPartnership)
	api.DELETE("/partnerships/:id", s.CancelPartnership)

	// -------- Branch requests --------
	api.GET("/branch-requests", s.ListBranchRequests)
	api.POST("/branch-requests", s.RequestBranch)
	api.POST("/branch-requests/:id/confirm", s.ConfirmBranch)
	api.POST("/branch-requests/:id/reject", s.RejectBranch)
	api.DELETE("/branch-requests/:id", s.CancelBranch)

	api.GET("/sub-organizations", s.ListSubOrganizations)

	// -------- Memberships --------
	api.GET("/membership-requests", s.ListMembershipRequests)
	api.POST("/organizations/:kind/:id/join", s.JoinOrganization)

	// -------- Network --------
	api.GET("/network/members", s.ListNetworkMembers)
	api.GET("/organizations/search", s.SearchOrganizations)
	api.GET("/network/filters", s.GetFilterCatalog)
}
