package bootstrap

import (
	"context"
	"encoding/json"

	"github.com/Vandelay-Technologies/vandelay-smart-contracts/internal/access"
	"github.com/Vandelay-Technologies/vandelay-smart-contracts/internal/platform/config"
	"github.com/Vandelay-Technologies/vandelay-smart-contracts/internal/platform/db"
	"github.com/Vandelay-Technologies/vandelay-smart-contracts/internal/platform/node"
	"github.com/Vandelay-Technologies/vandelay-smart-contracts/internal/registry"

	"go.uber.org/zap"
)

// Shared startup wiring for the daemon and the CLI.

func NewContextWithDevelopmentLogger() context.Context {
	log := node.NewDevelopmentLogger()
	return node.ContextWithLogger(context.Background(), log)
}

func NewContextWithProductionLogger() context.Context {
	log := node.NewProductionLogger()
	return node.ContextWithLogger(context.Background(), log)
}

func NewConfigFromEnv(ctx context.Context) *config.Config {
	log := node.Logger(ctx)

	cfg, err := config.Environment()
	if err != nil {
		log.Fatal("Parsing config", zap.Error(err))
	}

	// Mask sensitive values
	cfgSafe := config.SafeConfig(*cfg)
	cfgJSON, err := json.MarshalIndent(cfgSafe, "", "    ")
	if err != nil {
		log.Fatal("Marshalling config to JSON", zap.Error(err))
	}
	log.Info("Config", zap.String("config", string(cfgJSON)))

	return cfg
}

func NewMasterDB(ctx context.Context, cfg *config.Config) *db.DB {
	masterDB, err := db.New(&db.StorageConfig{
		Region:    cfg.AWS.Region,
		AccessKey: cfg.AWS.AccessKeyID,
		Secret:    cfg.AWS.SecretAccessKey,
		Bucket:    cfg.Storage.Bucket,
		Root:      cfg.Storage.Root,
	})
	if err != nil {
		node.Logger(ctx).Fatal("Register DB", zap.Error(err))
	}

	return masterDB
}

func NewRegistry(ctx context.Context, cfg *config.Config) *registry.Registry {
	return registry.New(NewMasterDB(ctx, cfg))
}

func NewPolicy(ctx context.Context, cfg *config.Config) *access.Policy {
	if len(cfg.Policy.Path) == 0 {
		return access.NewPolicy()
	}

	policy, err := access.LoadPolicy(cfg.Policy.Path)
	if err != nil {
		node.Logger(ctx).Fatal("Load policy", zap.Error(err))
	}
	return policy
}
