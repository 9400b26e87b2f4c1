package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	grpcZap "github.com/grpc-ecosystem/go-grpc-middleware/logging/zap"
	gwruntime "github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/jessevdk/go-flags"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/goodnatureofminers/ledgerpod-backend/internal/changes"
	"github.com/goodnatureofminers/ledgerpod-backend/internal/crypto"
	"github.com/goodnatureofminers/ledgerpod-backend/internal/metrics"
	"github.com/goodnatureofminers/ledgerpod-backend/internal/model"
	"github.com/goodnatureofminers/ledgerpod-backend/internal/network"
	"github.com/goodnatureofminers/ledgerpod-backend/internal/peer"
	"github.com/goodnatureofminers/ledgerpod-backend/internal/repository/clickhouse"
	"github.com/goodnatureofminers/ledgerpod-backend/internal/repository/memory"
	"github.com/goodnatureofminers/ledgerpod-backend/internal/store"
	"github.com/goodnatureofminers/ledgerpod-backend/internal/synchro"
	"github.com/goodnatureofminers/ledgerpod-backend/internal/synchro/blockchain"
	"github.com/goodnatureofminers/ledgerpod-backend/internal/transport"
	"github.com/goodnatureofminers/ledgerpod-backend/pkg/locker"
)

type config struct {
	ClickhouseDSN string   `long:"clickhouse-dsn" env:"LEDGERPOD_CLICKHOUSE_DSN" description:"ClickHouse DSN, in-memory store when empty"`
	Currencies    []string `long:"currency" env:"LEDGERPOD_CURRENCIES" env-delim:"," description:"currency to replicate" required:"true"`
	SeedPeers     []string `long:"seed-peer" env:"LEDGERPOD_SEED_PEERS" env-delim:";" description:"seed peer as currency:endpoint"`
	Collections   []string `long:"collection" env:"LEDGERPOD_COLLECTIONS" env-delim:"," description:"synchronized collection as index/type[:update][:nosig][:notime][:old][:api=NAME]"`
	References    []string `long:"reference-target" env:"LEDGERPOD_REFERENCE_TARGETS" env-delim:"," description:"index/type holding documents that reference others, cleaned on delete"`

	SingleBlock      bool          `long:"single-block" env:"LEDGERPOD_SINGLE_BLOCK" description:"fetch blocks one by one instead of by pages"`
	BulkBatchSize    int           `long:"bulk-batch-size" env:"LEDGERPOD_BULK_BATCH_SIZE" description:"blocks per peer request" default:"500"`
	BulkIndexSize    int           `long:"bulk-index-size" env:"LEDGERPOD_BULK_INDEX_SIZE" description:"blocks per store write" default:"1000"`
	ForkResyncWindow uint64        `long:"fork-resync-window" env:"LEDGERPOD_FORK_RESYNC_WINDOW" description:"backward step while looking for a common ancestor" default:"100"`
	NodeRetryCount   int           `long:"node-retry-count" env:"LEDGERPOD_NODE_RETRY_COUNT" description:"retries per peer request" default:"5"`
	NodeRetryWait    time.Duration `long:"node-retry-wait" env:"LEDGERPOD_NODE_RETRY_WAIT" description:"initial wait between peer retries" default:"1s"`
	HTTPTimeout      time.Duration `long:"http-timeout" env:"LEDGERPOD_HTTP_TIMEOUT" description:"timeout of peer requests" default:"10s"`
	RPS              int           `long:"requests-per-second" env:"LEDGERPOD_REQUESTS_PER_SECOND" description:"peer request rate limit" default:"50"`

	ScrollSize      int           `long:"synchro-scroll-size" env:"LEDGERPOD_SYNCHRO_SCROLL_SIZE" description:"documents per scroll page" default:"500"`
	MaxAge          time.Duration `long:"synchro-max-age" env:"LEDGERPOD_SYNCHRO_MAX_AGE" description:"reject documents older than this unless the collection allows old ones, 0 disables"`
	TimeOffset      time.Duration `long:"synchro-time-offset" env:"LEDGERPOD_SYNCHRO_TIME_OFFSET" description:"overlap subtracted from the last synchronization time" default:"1h"`
	FullResync      bool          `long:"synchro-full-resync" env:"LEDGERPOD_SYNCHRO_FULL_RESYNC" description:"ignore bookmarks on the first run"`
	Live            bool          `long:"synchro-live" env:"LEDGERPOD_SYNCHRO_LIVE" description:"follow peer change feeds after a full pass"`
	Interval        time.Duration `long:"synchro-interval" env:"LEDGERPOD_SYNCHRO_INTERVAL" description:"time between synchronization passes" default:"1h"`
	PeerWorkers     int           `long:"synchro-peer-workers" env:"LEDGERPOD_SYNCHRO_PEER_WORKERS" description:"peers synchronized concurrently" default:"4"`
	NetworkInterval time.Duration `long:"network-interval" env:"LEDGERPOD_NETWORK_INTERVAL" description:"time between peer discovery passes" default:"10m"`

	NodeSeed  string   `long:"node-seed" env:"LEDGERPOD_NODE_SEED" description:"base58 ed25519 seed of the node key, random when empty"`
	Endpoints []string `long:"endpoint" env:"LEDGERPOD_ENDPOINTS" env-delim:";" description:"endpoint announced in peering documents"`

	MetricsAddr string `long:"metrics-addr" env:"LEDGERPOD_METRICS_ADDR" description:"address for metrics server" default:":2112"`
	AdminAddr   string `long:"admin-addr" env:"LEDGERPOD_ADMIN_ADDR" description:"address for admin http routes" default:":8001"`
	GRPCAddr    string `long:"grpc-addr" env:"LEDGERPOD_GRPC_ADDR" description:"address for grpc health service" default:":8000"`
}

func main() {
	cfg := config{}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic("can't initialize zap logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync()
	}()
	grpcZap.ReplaceGrpcLoggerV2(logger)

	if _, err := flags.ParseArgs(&cfg, os.Args); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			return
		}
		logger.Fatal("failed to parse flags", zap.Error(err))
	}

	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("synchro node failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config, logger *zap.Logger) error {
	startMetricsServer(ctx, cfg.MetricsAddr, logger)

	docs, err := newStore(cfg, logger)
	if err != nil {
		return err
	}
	if err := ensureIndices(ctx, docs, cfg.Currencies); err != nil {
		return err
	}

	client := peer.NewClient(logger, metrics.NewPeerClient(), peer.Config{
		Timeout:           cfg.HTTPTimeout,
		RetryCount:        cfg.NodeRetryCount,
		RetryWait:         cfg.NodeRetryWait,
		RequestsPerSecond: cfg.RPS,
	})

	peers := network.NewRegistry(docs, logger)
	seeds := make([]model.Peer, 0, len(cfg.SeedPeers))
	for _, raw := range cfg.SeedPeers {
		seed, err := parseSeed(raw)
		if err != nil {
			return err
		}
		if _, err := peers.Save(ctx, seed); err != nil {
			return fmt.Errorf("save seed %s: %w", seed, err)
		}
		seeds = append(seeds, seed)
	}

	blocks := blockchain.NewBlocks(docs)
	coordinator := blockchain.NewCoordinator(
		client,
		peers,
		blocks,
		blockchain.NewMembers(docs, logger),
		locker.New(),
		blockSettings(cfg),
		metrics.NewBlockSync(),
		logger,
	)

	bus := changes.NewBus(logger)
	if len(cfg.References) > 0 {
		targets := make([]store.Collection, 0, len(cfg.References))
		for _, raw := range cfg.References {
			index, typ, ok := model.SplitCollectionKey(raw)
			if !ok {
				return fmt.Errorf("reference target %q: expected index/type", raw)
			}
			targets = append(targets, store.Collection{Index: index, Type: typ})
		}
		unregister := changes.NewReferenceCleaner(docs, logger, targets...).Register(bus)
		defer unregister()
	}

	synchroMetrics := metrics.NewSynchro()
	actions := synchro.NewRegistry()
	apis := []string{model.BasicMerkledAPI}
	actionCfgs, err := actionConfigs(cfg)
	if err != nil {
		return err
	}
	for _, actionCfg := range actionCfgs {
		action := synchro.NewAction(actionCfg, docs, client, crypto.Ed25519Verifier{}, bus, synchroMetrics, logger)
		if err := action.EnsureIndex(ctx); err != nil {
			return err
		}
		if err := actions.Register(action); err != nil {
			return err
		}
	}
	apis = append(apis, actions.APIs()...)

	scheduler := synchro.NewScheduler(
		synchro.Config{
			Currencies:          cfg.Currencies,
			Interval:            cfg.Interval,
			StartupDelay:        -1,
			MaxJitter:           -1,
			TimeOffset:          cfg.TimeOffset,
			FullResyncAtStartup: cfg.FullResync,
			LiveSync:            cfg.Live,
			PeerWorkers:         cfg.PeerWorkers,
		},
		actions,
		peers,
		client,
		coordinator,
		blocks,
		synchro.NewExecutions(docs),
		clockwork.NewRealClock(),
		synchroMetrics,
		logger,
	)
	service := synchro.NewService(scheduler, logger)

	key, err := nodeKey(cfg.NodeSeed)
	if err != nil {
		return err
	}
	logger.Info("node key loaded", zap.String("pubkey", key.Pubkey()))
	discovery := network.NewDiscovery(client, peers, seeds, apis, cfg.PeerWorkers, logger)
	publisher := network.NewPublisher(client, peers, blocks, key, cfg.Endpoints, logger)

	grpcServer, healthServer := transport.NewGRPCServer(logger)
	admin := transport.NewAdminHandler(ctx, service, peers, healthServer, logger)
	gw := gwruntime.NewServeMux()
	if err := admin.Register(gw); err != nil {
		return fmt.Errorf("register admin routes: %w", err)
	}
	adminServer := &http.Server{
		Addr:              cfg.AdminAddr,
		Handler:           cors.Default().Handler(gw),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    http.DefaultMaxHeaderBytes,
	}

	socket, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.GRPCAddr, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting grpc server", zap.String("addr", cfg.GRPCAddr))
		return grpcServer.Serve(socket)
	})
	g.Go(func() error {
		logger.Info("starting admin server", zap.String("addr", cfg.AdminAddr))
		if err := adminServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return runNetwork(gctx, discovery, publisher, cfg.Currencies, cfg.NetworkInterval, logger)
	})
	g.Go(func() error {
		return scheduler.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		healthServer.SetServingStatus(transport.HealthService, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
		logger.Info("shutting down servers")
		grpcServer.GracefulStop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := adminServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown admin server", zap.Error(err))
		}
		admin.Wait()
		return nil
	})

	healthServer.SetServingStatus(transport.HealthService, grpc_health_v1.HealthCheckResponse_SERVING)
	return g.Wait()
}

func blockSettings(cfg config) blockchain.Settings {
	settings := blockchain.DefaultSettings()
	settings.BulkEnable = !cfg.SingleBlock
	settings.BulkBatchSize = cfg.BulkBatchSize
	settings.BulkIndexSize = cfg.BulkIndexSize
	settings.ForkResyncWindow = cfg.ForkResyncWindow
	return settings
}

func newStore(cfg config, logger *zap.Logger) (store.DocumentStore, error) {
	if cfg.ClickhouseDSN == "" {
		logger.Warn("no ClickHouse DSN, documents are kept in memory")
		return memory.New(), nil
	}
	repo, err := clickhouse.NewRepository(cfg.ClickhouseDSN, metrics.NewClickhouseRepository())
	if err != nil {
		return nil, fmt.Errorf("init repository: %w", err)
	}
	return repo, nil
}

// ensureIndices creates the per-currency index holding blocks, peers and executions.
func ensureIndices(ctx context.Context, docs store.DocumentStore, currencies []string) error {
	for _, currency := range currencies {
		exists, err := docs.IndexExists(ctx, currency)
		if err != nil {
			return fmt.Errorf("check index %s: %w", currency, err)
		}
		if exists {
			continue
		}
		if err := docs.CreateIndex(ctx, currency); err != nil {
			return fmt.Errorf("create index %s: %w", currency, err)
		}
	}
	return nil
}

func nodeKey(seed string) (*crypto.KeyPair, error) {
	if seed == "" {
		return crypto.GenerateKeyPair()
	}
	key, err := crypto.KeyPairFromSeed(seed)
	if err != nil {
		return nil, fmt.Errorf("node key: %w", err)
	}
	return key, nil
}

// runNetwork refreshes peers from the seeds and announces the node, at start and every interval.
func runNetwork(ctx context.Context, discovery *network.Discovery, publisher *network.Publisher, currencies []string, interval time.Duration, logger *zap.Logger) error {
	refresh := func() {
		for _, currency := range currencies {
			n, err := discovery.Refresh(ctx, currency)
			if err != nil {
				logger.Warn("peer discovery failed", zap.String("currency", currency), zap.Error(err))
				continue
			}
			logger.Info("peers refreshed", zap.String("currency", currency), zap.Int("peers", n))
			if err := publisher.Publish(ctx, currency); err != nil {
				logger.Warn("peering publication failed", zap.String("currency", currency), zap.Error(err))
			}
		}
	}

	refresh()
	if interval <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			refresh()
		}
	}
}

func startMetricsServer(ctx context.Context, addr string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("starting metrics server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown metrics server", zap.Error(err))
		}
	}()
}
