package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Laisky/errors/v2"
	gcmd "github.com/Laisky/go-utils/v6/cmd"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Laisky/fingenius-compliance/internal/web"
	filesCtl "github.com/Laisky/fingenius-compliance/internal/web/files/controller"
	filesDao "github.com/Laisky/fingenius-compliance/internal/web/files/dao"
	filesService "github.com/Laisky/fingenius-compliance/internal/web/files/service"
	orgCtl "github.com/Laisky/fingenius-compliance/internal/web/organization/controller"
	orgDao "github.com/Laisky/fingenius-compliance/internal/web/organization/dao"
	orgService "github.com/Laisky/fingenius-compliance/internal/web/organization/service"
	"github.com/Laisky/fingenius-compliance/library/apierr"
	"github.com/Laisky/fingenius-compliance/library/assets"
	"github.com/Laisky/fingenius-compliance/library/auth"
	"github.com/Laisky/fingenius-compliance/library/config"
	"github.com/Laisky/fingenius-compliance/library/jwt"
	"github.com/Laisky/fingenius-compliance/library/log"
)

const shutdownTimeout = 10 * time.Second

var apiCMD = &cobra.Command{
	Use:   "api",
	Short: "api",
	Long:  `REST API service for compliance documents`,
	Args:  gcmd.NoExtraArgs,
	PreRun: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		if err := initialize(ctx, cmd); err != nil {
			log.Logger.Panic("init", zap.Error(err))
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		if err := runAPI(cmd.Context()); err != nil {
			log.Logger.Panic("run api", zap.Error(err))
		}
	},
}

func runAPI(ctx context.Context) error {
	if err := validateStartupConfig(); err != nil {
		return errors.WithStack(err)
	}
	settings := config.Load()
	if !settings.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := connectMongo(ctx, settings)
	if err != nil {
		return errors.WithStack(err)
	}
	defer func() {
		if err := db.Close(context.Background()); err != nil {
			log.Logger.Error("close mongo", zap.Error(err))
		}
	}()

	assetStore, err := assets.New(ctx, settings.Assets)
	if err != nil {
		return errors.Wrap(err, "new asset store")
	}
	if err = assetStore.Ping(ctx); err != nil {
		log.Logger.Warn("asset store is not reachable, uploads will fail until it is",
			zap.String("driver", settings.Assets.Driver), zap.Error(err))
	}

	issuer, err := jwt.NewIssuer([]byte(settings.Secret))
	if err != nil {
		return errors.Wrap(err, "new jwt issuer")
	}

	stager, err := filesService.NewStager(afero.NewOsFs(), settings.Upload.StagingDir)
	if err != nil {
		return errors.WithStack(err)
	}

	organizations := orgDao.New(log.Logger.Named("organization_dao"), db)
	files := filesDao.New(log.Logger.Named("files_dao"), db)
	if err = ensureIndexes(ctx, organizations, files); err != nil {
		log.Logger.Warn("ensure indexes", zap.Error(err))
	}

	orgSvc := orgService.New(log.Logger.Named("organization"), organizations, issuer, assetStore)
	filesSvc := filesService.New(log.Logger.Named("files"), files, organizations, assetStore, stager)

	httpSrv := &http.Server{
		Addr: settings.Listen,
		Handler: web.NewServer(web.Options{
			Logger:         log.Logger,
			AllowedOrigins: settings.CORS.AllowedOrigins,
			Auth:           auth.New(issuer, apierr.Abort),
			Organizations:  orgCtl.New(orgSvc),
			Files:          filesCtl.New(filesSvc),
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Logger.Info("listening on http", zap.String("addr", settings.Listen))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "http server")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Logger.Info("shutting down http server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutdown http server")
		}
		return nil
	})

	return g.Wait()
}

func init() {
	rootCMD.AddCommand(apiCMD)
}
