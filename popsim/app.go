package popsim

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/agentmarket/popsim/internal/domain/archetypes"
	"github.com/agentmarket/popsim/internal/domain/funding"
	"github.com/agentmarket/popsim/internal/domain/liquidity"
	"github.com/agentmarket/popsim/internal/domain/population"
	"github.com/agentmarket/popsim/internal/domain/wallets"
	"github.com/agentmarket/popsim/internal/gateways/activity"
	"github.com/agentmarket/popsim/internal/gateways/database/models"
	"github.com/agentmarket/popsim/internal/gateways/database/repositories"
	"github.com/agentmarket/popsim/internal/gateways/reports"
	"github.com/agentmarket/popsim/popsim/database"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/segmentio/kafka-go"
	"go.mongodb.org/mongo-driver/mongo"
)

// PopulationLedger is the read side of the population tables used by the CLI.
type PopulationLedger interface {
	population.Repository
	ListUnfunded(ctx context.Context, limit int) ([]*models.Agent, error)
}

type ActivityLog interface {
	population.ActivitySink
	Recent(ctx context.Context, limit int) ([]*models.ActivityLog, error)
}

func New(cfg *Config, version string, commit string) *App {
	return &App{
		Cfg:     cfg,
		Version: version,
		Commit:  commit,
	}
}

type App struct {
	Cfg     *Config
	Version string
	Commit  string

	DB          *database.DB
	Ledger      PopulationLedger
	Activity    ActivityLog
	Pool        liquidity.Service
	Distributor *archetypes.Distributor
	Population  population.Service

	chain       *ethclient.Client
	kafkaWriter *kafka.Writer
	mongoClient *mongo.Client
}

// ConnectDB opens the database and builds the repositories and pool service.
func (a *App) ConnectDB(ctx context.Context) error {
	start := time.Now()
	db, err := database.New(ctx, database.DBConfig{
		Host:         a.Cfg.DB.Host,
		Port:         a.Cfg.DB.Port,
		User:         a.Cfg.DB.User,
		Password:     a.Cfg.DB.Password,
		Database:     a.Cfg.DB.Database,
		PoolSize:     a.Cfg.DB.PoolSize,
		MaxIdleConns: a.Cfg.DB.MaxIdleConns,
		MaxLifetime:  a.Cfg.DB.MaxLifetime,
	})
	if err != nil {
		slog.Error("Database connection failed",
			slog.String("type", "db"),
			slog.Any("error", err),
			slog.Duration("attempted_for", time.Since(start)))
		return err
	}
	slog.Info("Database connected successfully",
		slog.String("type", "db"),
		slog.String("database", a.Cfg.DB.Database),
		slog.Duration("took", time.Since(start)))

	a.DB = db
	a.Ledger = repositories.NewPopulationRepository(db.BunDB())
	a.Activity = repositories.NewActivityRepository(db.BunDB())
	a.Pool = liquidity.NewService(repositories.NewPoolRepository(db.BunDB()), liquidity.PoolConfig{
		ID:     a.Cfg.Pool.ID,
		TokenA: a.Cfg.Pool.TokenA,
		TokenB: a.Cfg.Pool.TokenB,
		FeeBps: a.Cfg.Pool.FeeBps,
	})
	return nil
}

// SetupPopulation dials the chain and builds the population service.
// ConnectDB must have been called first.
func (a *App) SetupPopulation(ctx context.Context) error {
	if a.DB == nil {
		return fmt.Errorf("database is not connected")
	}

	dist, err := archetypes.NewDistributor(a.Cfg.Table(), nil)
	if err != nil {
		return fmt.Errorf("invalid archetype table: %w", err)
	}
	a.Distributor = dist

	funder, err := wallets.LoadFunder(a.Cfg.Chain.FunderKey)
	if err != nil {
		return fmt.Errorf("failed to load funder key: %w", err)
	}

	client, err := ethclient.DialContext(ctx, a.Cfg.Chain.RPCURL)
	if err != nil {
		return fmt.Errorf("failed to dial %s: %w", a.Cfg.Chain.RPCURL, err)
	}
	a.chain = client

	executor, err := funding.NewExecutor(client, funder, funding.Config{
		GasLimit:       a.Cfg.Chain.GasLimit,
		ConfirmTimeout: a.Cfg.Chain.ConfirmTimeout.Duration,
		PollInterval:   a.Cfg.Chain.PollInterval.Duration,
	})
	if err != nil {
		return err
	}
	slog.Info("Funding executor ready",
		slog.String("type", "chain"),
		slog.String("rpc", a.Cfg.Chain.RPCURL),
		slog.String("funder", executor.FunderAddress().Hex()))

	sink, err := a.activitySink(ctx)
	if err != nil {
		return err
	}

	deps := population.Deps{
		Repository:  a.Ledger,
		Activity:    sink,
		Funder:      executor,
		Pool:        a.Pool,
		Distributor: dist,
	}
	if a.Cfg.Reports.Bucket != "" {
		archive, err := reports.NewArchive(ctx, reports.Options{
			Bucket:   a.Cfg.Reports.Bucket,
			Region:   a.Cfg.Reports.Region,
			Endpoint: a.Cfg.Reports.Endpoint,
			Key:      a.Cfg.Reports.Key,
			Secret:   a.Cfg.Reports.Secret,
			Prefix:   a.Cfg.Reports.Prefix,
		})
		if err != nil {
			return err
		}
		deps.Archive = archive
	}

	a.Population = population.NewService(deps, population.Config{
		BatchSize:       a.Cfg.Population.BatchSize,
		MaxConcurrent:   a.Cfg.Population.MaxConcurrent,
		InterBatchDelay: a.Cfg.Population.InterBatchDelay.Duration,
		SlotsPerSecond:  a.Cfg.Population.SlotsPerSecond,
		InitialReserveA: a.Cfg.Pool.InitialReserveA,
		InitialReserveB: a.Cfg.Pool.InitialReserveB,
	})
	return nil
}

// VerifyOnly builds a population service that can check the summary but
// has no chain access.
func (a *App) VerifyOnly() population.Service {
	return population.NewService(population.Deps{
		Repository: a.Ledger,
		Activity:   a.Activity,
	}, population.Config{})
}

func (a *App) activitySink(ctx context.Context) (population.ActivitySink, error) {
	var mirrors []activity.Mirror

	if len(a.Cfg.Activity.KafkaBrokers) > 0 && a.Cfg.Activity.KafkaTopic != "" {
		a.kafkaWriter = activity.NewKafkaWriter(a.Cfg.Activity.KafkaBrokers, a.Cfg.Activity.KafkaTopic)
		mirrors = append(mirrors, activity.NewKafkaSink(a.kafkaWriter))
		slog.Info("Activity mirrored to Kafka",
			slog.String("type", "sys"),
			slog.String("topic", a.Cfg.Activity.KafkaTopic))
	}

	if a.Cfg.Activity.MongoURI != "" {
		client, coll, err := activity.ConnectMongo(ctx,
			a.Cfg.Activity.MongoURI,
			a.Cfg.Activity.MongoDatabase,
			a.Cfg.Activity.MongoCollection)
		if err != nil {
			return nil, err
		}
		a.mongoClient = client
		mirrors = append(mirrors, activity.NewMongoSink(coll))
		slog.Info("Activity mirrored to MongoDB",
			slog.String("type", "sys"),
			slog.String("collection", a.Cfg.Activity.MongoCollection))
	}

	if len(mirrors) == 0 {
		return a.Activity, nil
	}
	return activity.NewMultiSink(a.Activity, mirrors...), nil
}

func (a *App) Close() {
	if a.kafkaWriter != nil {
		if err := a.kafkaWriter.Close(); err != nil {
			slog.Warn("Failed to close Kafka writer", slog.String("type", "sys"), slog.Any("error", err))
		}
	}
	if a.mongoClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.mongoClient.Disconnect(ctx)
	}
	if a.chain != nil {
		a.chain.Close()
	}
	if a.DB != nil {
		a.DB.Close()
	}
}
