package cmd

import (
	"context"
	"fmt"

	"github.com/Laisky/errors/v2"
	gconfig "github.com/Laisky/go-config/v2"
	gcmd "github.com/Laisky/go-utils/v6/cmd"
	glog "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"github.com/spf13/cobra"

	"github.com/Laisky/fingenius-compliance/library/config"
	"github.com/Laisky/fingenius-compliance/library/db/mongo"
	"github.com/Laisky/fingenius-compliance/library/log"
)

var rootCMD = &cobra.Command{
	Use:   "fingenius-compliance",
	Short: "fingenius-compliance",
	Long:  `compliance document vault for organizations`,
	Args:  gcmd.NoExtraArgs,
}

func initialize(ctx context.Context, cmd *cobra.Command) error {
	if err := gconfig.Shared.BindPFlags(cmd.Flags()); err != nil {
		return errors.Wrap(err, "bind pflags")
	}

	setupSettings(ctx)
	setupLogger(ctx)

	return nil
}

func setupSettings(ctx context.Context) {
	// mode
	if gconfig.Shared.GetBool("debug") {
		fmt.Println("run in debug mode")
		gconfig.Shared.Set("log-level", "debug")
	} else { // prod mode
		fmt.Println("run in prod mode")
	}

	// load configuration
	config.LoadFromFile(gconfig.Shared.GetString("config"))
	config.LoadEnv()
}

func setupLogger(ctx context.Context) {
	lvl := gconfig.Shared.GetString("log-level")
	if err := log.Logger.ChangeLevel(glog.Level(lvl)); err != nil {
		log.Logger.Panic("change log level", zap.Error(err), zap.String("level", lvl))
	}
}

// connectMongo dials the datastore described by settings.
func connectMongo(ctx context.Context, settings config.Settings) (mongo.DB, error) {
	if settings.Mongo.URI == "" {
		return nil, errors.New("settings.db.mongo.uri is required")
	}

	db, err := mongo.NewDB(ctx, mongo.DialInfo{
		URI:    settings.Mongo.URI,
		DBName: settings.Mongo.DB,
	})
	if err != nil {
		return nil, errors.Wrap(err, "connect mongo")
	}

	return db, nil
}

func init() {
	rootCMD.PersistentFlags().Bool("debug", false, "run in debug mode")
	rootCMD.PersistentFlags().String("listen", config.DefaultListen, "like `:5000`")
	rootCMD.PersistentFlags().StringP("config", "c", "", "config file path, optional")
	rootCMD.PersistentFlags().String("log-level", "info", "`debug/info/error`")
}

// Execute execute root command
func Execute() {
	if err := rootCMD.Execute(); err != nil {
		glog.Shared.Panic("start", zap.Error(err))
	}
}
