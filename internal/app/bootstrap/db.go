// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/dalemusser/jobhub/internal/app/features/health"
	"github.com/dalemusser/jobhub/internal/app/store"
	activitystore "github.com/dalemusser/jobhub/internal/app/store/activity"
	"github.com/dalemusser/jobhub/internal/app/store/memstore"
	organizationstore "github.com/dalemusser/jobhub/internal/app/store/organizations"
	requeststore "github.com/dalemusser/jobhub/internal/app/store/requests"
	userstore "github.com/dalemusser/jobhub/internal/app/store/users"
	"github.com/dalemusser/jobhub/internal/app/system/indexes"
	"github.com/dalemusser/jobhub/internal/app/system/timeouts"
	"github.com/dalemusser/jobhub/internal/app/system/txn"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// ConnectDB opens the configured store backend.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	if appCfg.StoreBackend == backendMemory {
		logger.Info("store backend: memory")
		return DBDeps{Backend: backendMemory, Memory: memstore.New(), Services: &Services{}}, nil
	}

	opts := options.Client().
		ApplyURI(appCfg.MongoURI).
		SetMaxPoolSize(appCfg.MongoMaxPoolSize).
		SetMinPoolSize(appCfg.MongoMinPoolSize)

	connectCtx, cancel := context.WithTimeout(ctx, timeouts.Long())
	defer cancel()

	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return DBDeps{}, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return DBDeps{}, fmt.Errorf("ping mongo: %w", err)
	}
	logger.Info("connected to MongoDB", zap.String("database", appCfg.MongoDatabase))

	return DBDeps{
		Backend:       backendMongo,
		MongoClient:   client,
		MongoDatabase: client.Database(appCfg.MongoDatabase),
		Services:      &Services{},
	}, nil
}

// EnsureSchema sets up indexes. The unique indexes are what keep account
// emails and open removal requests unique, so failure aborts startup.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if deps.MongoDatabase == nil {
		return nil
	}
	if err := indexes.EnsureAll(ctx, deps.MongoDatabase); err != nil {
		logger.Error("ensure indexes failed", zap.Error(err))
		return err
	}
	logger.Info("indexes ensured")
	return nil
}

// storeSet is the backend-independent view of the stores.
type storeSet struct {
	Accounts store.Accounts
	Orgs     store.Organizations
	Requests store.Requests
	Feed     store.Feed
	Tx       store.TxRunner
	Pinger   health.Pinger
}

func openStores(deps DBDeps, logger *zap.Logger) storeSet {
	if deps.Memory != nil {
		return storeSet{
			Accounts: deps.Memory.Accounts(),
			Orgs:     deps.Memory.Organizations(),
			Requests: deps.Memory.Requests(),
			Feed:     deps.Memory.Feed(),
			Tx:       deps.Memory,
		}
	}
	return storeSet{
		Accounts: userstore.New(deps.MongoDatabase),
		Orgs:     organizationstore.New(deps.MongoDatabase),
		Requests: requeststore.New(deps.MongoDatabase),
		Feed:     activitystore.New(deps.MongoDatabase),
		Tx:       txn.New(deps.MongoClient, logger),
		Pinger:   health.MongoPinger(deps.MongoClient),
	}
}
