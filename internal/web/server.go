// Package web gin server
package web

import (
	"fmt"
	"net/http"
	"strings"

	gmw "github.com/Laisky/gin-middlewares/v7"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	filesCtl "github.com/Laisky/fingenius-compliance/internal/web/files/controller"
	orgCtl "github.com/Laisky/fingenius-compliance/internal/web/organization/controller"
	"github.com/Laisky/fingenius-compliance/library/apierr"
	"github.com/Laisky/fingenius-compliance/library/auth"
)

// APIPrefix is the second mount point of every route.
const APIPrefix = "/api"

// maxMultipartMemory keeps small uploads in memory, larger parts spill to disk.
const maxMultipartMemory = 16 << 20

// Options are the dependencies of the HTTP API.
type Options struct {
	Logger         logSDK.Logger
	AllowedOrigins []string
	Auth           *auth.Auth
	Organizations  *orgCtl.Controller
	Files          *filesCtl.Controller
}

// NewServer builds the gin engine serving the REST API.
// The gin mode is left to the caller.
func NewServer(opt Options) *gin.Engine {
	server := gin.New()
	server.ContextWithFallback = true
	server.MaxMultipartMemory = maxMultipartMemory
	server.Use(
		gin.CustomRecovery(func(ctx *gin.Context, recovered any) {
			opt.Logger.Error("panic in handler",
				zap.String("path", ctx.Request.URL.Path),
				zap.Any("recovered", recovered))
			ctx.AbortWithStatusJSON(http.StatusInternalServerError,
				apierr.Response{Message: "internal server error", Error: fmt.Sprint(recovered)})
		}),
		gmw.NewLoggerMiddleware(
			gmw.WithLogger(opt.Logger.Named("gin")),
		),
		cors.New(corsConfig(opt.AllowedOrigins)),
	)

	server.GET("/metrics", gin.WrapH(promhttp.Handler()))
	for _, prefix := range []string{"", APIPrefix} {
		registerRoutes(server.Group(prefix), opt)
	}
	server.NoRoute(func(ctx *gin.Context) {
		apierr.Abort(ctx, apierr.New(apierr.CodeNotFound, "Route not found"))
	})

	return server
}

func registerRoutes(r *gin.RouterGroup, opt Options) {
	health := newStatusHandler()
	r.GET("/health", health)
	r.HEAD("/health", health)
	r.OPTIONS("/health", health)

	required := opt.Auth.Required()

	for _, g := range []*gin.RouterGroup{r, r.Group("/auth")} {
		g.POST("/register", opt.Organizations.Register)
		g.POST("/login", opt.Organizations.Login)
		g.GET("/profile", required, opt.Organizations.Profile)
	}
	r.GET("/organization", required, opt.Organizations.Profile)
	r.POST("/organization/photo", required, opt.Organizations.UpdatePhoto)
	r.GET("/organizations/:id", opt.Organizations.GetByID)

	files := r.Group("/files")
	files.POST("/upload", required, opt.Files.Upload)
	files.GET("", opt.Files.List)
	files.GET("/organization/:id", opt.Files.ListByOrganization)
	files.GET("/organizations/:id", opt.Organizations.GetByID)
	files.DELETE("/:id", opt.Files.Delete)
}

// newStatusHandler answers liveness probes.
func newStatusHandler() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.Header("Allow", "GET, HEAD, OPTIONS")
		if ctx.Request.Method != http.MethodGet {
			ctx.Status(http.StatusOK)
			return
		}

		ctx.String(http.StatusOK, "ok")
	}
}

// corsConfig allows any origin unless an explicit list is configured.
func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AddAllowHeaders("Authorization")

	var allowed []string
	for _, origin := range origins {
		origin = strings.TrimSpace(origin)
		if origin == "*" {
			allowed = nil
			break
		}
		if origin != "" {
			allowed = append(allowed, strings.TrimSuffix(origin, "/"))
		}
	}

	if len(allowed) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = allowed
		cfg.AllowCredentials = true
	}

	return cfg
}
