package cmd

import (
	"context"

	"github.com/Laisky/errors/v2"
	gcmd "github.com/Laisky/go-utils/v6/cmd"
	"github.com/Laisky/zap"
	"github.com/spf13/cobra"

	filesDao "github.com/Laisky/fingenius-compliance/internal/web/files/dao"
	orgDao "github.com/Laisky/fingenius-compliance/internal/web/organization/dao"
	"github.com/Laisky/fingenius-compliance/library/config"
	"github.com/Laisky/fingenius-compliance/library/log"
)

// indexer creates the indexes of one collection.
type indexer interface {
	EnsureIndexes(ctx context.Context) error
}

var migrateCMD = &cobra.Command{
	Use:   "migrate",
	Short: "migrate",
	Long:  `create mongodb indexes`,
	Args:  gcmd.NoExtraArgs,
	PreRun: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		if err := initialize(ctx, cmd); err != nil {
			log.Logger.Panic("init", zap.Error(err))
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		db, err := connectMongo(ctx, config.Load())
		if err != nil {
			log.Logger.Panic("connect mongo", zap.Error(err))
		}
		defer db.Close(context.Background()) // nolint: errcheck

		if err = ensureIndexes(ctx,
			orgDao.New(log.Logger.Named("organization_dao"), db),
			filesDao.New(log.Logger.Named("files_dao"), db),
		); err != nil {
			log.Logger.Panic("migrate", zap.Error(err))
		}

		log.Logger.Info("indexes are ready")
	},
}

func ensureIndexes(ctx context.Context, indexers ...indexer) error {
	for _, idx := range indexers {
		if err := idx.EnsureIndexes(ctx); err != nil {
			return errors.WithStack(err)
		}
	}

	return nil
}

func init() {
	rootCMD.AddCommand(migrateCMD)
}
