package cmd

import (
	"context"

	"github.com/Laisky/errors/v2"
	gconfig "github.com/Laisky/go-config/v2"
	gcmd "github.com/Laisky/go-utils/v6/cmd"
	"github.com/Laisky/zap"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/bson/primitive"

	orgDao "github.com/Laisky/fingenius-compliance/internal/web/organization/dao"
	"github.com/Laisky/fingenius-compliance/internal/web/organization/model"
	orgService "github.com/Laisky/fingenius-compliance/internal/web/organization/service"
	"github.com/Laisky/fingenius-compliance/library/config"
	"github.com/Laisky/fingenius-compliance/library/log"
)

// defaultSeedID is the organization id the dashboard uses in development.
const defaultSeedID = "655df6f45c7253dc6e63a6ab"

var seedCMD = &cobra.Command{
	Use:   "seed",
	Short: "seed",
	Long:  `create the test organization unless it already exists`,
	Args:  gcmd.NoExtraArgs,
	PreRun: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		if err := initialize(ctx, cmd); err != nil {
			log.Logger.Panic("init", zap.Error(err))
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		if err := runSeed(cmd.Context()); err != nil {
			log.Logger.Panic("seed", zap.Error(err))
		}
	},
}

func seedFromFlags() (orgService.SeedOrganization, error) {
	seed := orgService.SeedOrganization{
		Name:     gconfig.Shared.GetString("seed.name"),
		Email:    gconfig.Shared.GetString("seed.email"),
		Password: gconfig.Shared.GetString("seed.password"),
		Industry: model.Industry(gconfig.Shared.GetString("seed.industry")),
		Country:  gconfig.Shared.GetString("seed.country"),
	}
	if !seed.Industry.Valid() {
		return seed, errors.Errorf("unknown industry %q", seed.Industry)
	}
	if seed.Email == "" || seed.Password == "" {
		return seed, errors.New("seed email and password are required")
	}

	if raw := gconfig.Shared.GetString("seed.id"); raw != "" {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			return seed, errors.Wrapf(err, "parse seed id %q", raw)
		}
		seed.ID = id
	}

	return seed, nil
}

func runSeed(ctx context.Context) error {
	seed, err := seedFromFlags()
	if err != nil {
		return errors.WithStack(err)
	}

	db, err := connectMongo(ctx, config.Load())
	if err != nil {
		return errors.WithStack(err)
	}
	defer db.Close(context.Background()) // nolint: errcheck

	svc := orgService.New(log.Logger.Named("seed"), orgDao.New(log.Logger.Named("organization_dao"), db), nil, nil)
	org, created, err := svc.EnsureOrganization(ctx, seed)
	if err != nil {
		return errors.WithStack(err)
	}

	log.Logger.Info("seed organization",
		zap.String("id", org.ID.Hex()),
		zap.String("email", org.Email),
		zap.Bool("created", created))
	return nil
}

func init() {
	seedCMD.Flags().String("seed.id", defaultSeedID, "organization id")
	seedCMD.Flags().String("seed.name", "Test Organization", "organization name")
	seedCMD.Flags().String("seed.email", "test@example.com", "login email")
	seedCMD.Flags().String("seed.password", "test123", "login password, stored as bcrypt hash")
	seedCMD.Flags().String("seed.industry", string(model.IndustryTechnology), "one of technology/finance/healthcare/retail/other")
	seedCMD.Flags().String("seed.country", "India", "country")
	rootCMD.AddCommand(seedCMD)
}
