// Package app assembles the daemon: two chain clients, the durable
// store, the dedup index seeded from it, per-chain ingestors,
// backfillers and supervisors, the relayer, and the http read surface.
// Construction is pure dependency injection; nothing in this repo
// reaches for a singleton.
package app

import (
	"context"
	"time"

	"github.com/assetbridge-io/relayer/chainmanager"
	"github.com/assetbridge-io/relayer/common/types"
	"github.com/assetbridge-io/relayer/config"
	"github.com/assetbridge-io/relayer/dedup"
	"github.com/assetbridge-io/relayer/httpapi"
	"github.com/assetbridge-io/relayer/ingestor"
	"github.com/assetbridge-io/relayer/relayer"
	"github.com/assetbridge-io/relayer/supervisor"
	"github.com/assetbridge-io/relayer/txstore"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// eventChanBuffer absorbs bursts from the streaming path while a relay
// task is being spawned; dedup makes overflow-free delivery a
// correctness non-requirement (the backfiller recovers drops).
const eventChanBuffer = 64

// App owns every long-lived component and their teardown order.
type App struct {
	cfg    *config.Config
	logger *logrus.Logger

	store    txstore.Store
	index    *dedup.Index
	registry types.ChainRegistry

	ingestors   map[types.ChainTag]*ingestor.Ingestor
	backfillers []*ingestor.Backfiller
	supervisors []*supervisor.Supervisor
	api         *httpapi.Server

	cancel context.CancelFunc
}

// New dials both chains and the document store and wires every
// component. It performs no background work; Start does.
func New(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*App, error) {
	store, err := txstore.NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open tx store")
	}

	registry, err := chainmanager.NewRegistry(
		chainConfig(cfg, types.L1),
		chainConfig(cfg, types.L2),
		logger,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build chain registry")
	}

	index := dedup.New()
	rel := relayer.New(registry, store, index, logger)

	a := &App{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		index:     index,
		registry:  registry,
		ingestors: make(map[types.ChainTag]*ingestor.Ingestor),
		api:       httpapi.NewServer(cfg.HTTPListenAddr, store, registry, logger),
	}

	for _, tag := range []types.ChainTag{types.L1, types.L2} {
		client := registry.Get(tag)

		ing := ingestor.New(tag, index, store, rel, logger)
		a.ingestors[tag] = ing

		a.backfillers = append(a.backfillers, ingestor.NewBackfiller(
			tag, client, ing, logger,
			time.Duration(cfg.BackfillIntervalSeconds)*time.Second,
			cfg.BackfillBlocks,
		))

		a.supervisors = append(a.supervisors, supervisor.New(
			client, logger, tag.String(),
			time.Duration(cfg.HealthTickSeconds)*time.Second,
		))
	}

	return a, nil
}

// Start seeds the dedup index from the store, opens both event streams,
// and launches the ingestors, backfillers, supervisors and the http api.
func (a *App) Start(ctx context.Context) error {
	ctx, a.cancel = context.WithCancel(ctx)

	hashes, err := a.store.AllHashes(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to seed dedup index from store")
	}
	a.index.Seed(hashes)
	a.logger.WithField("hashes", a.index.Size()).Info("dedup index seeded from store")

	for tag, ing := range a.ingestors {
		client := a.registry.Get(tag)

		eventChan := make(chan types.ChainEvent, eventChanBuffer)
		if err := client.Subscribe(ctx, eventChan); err != nil {
			return errors.Wrapf(err, "failed to subscribe on %s", tag)
		}

		go ing.Run(ctx, eventChan)
	}

	for _, b := range a.backfillers {
		b.Start(ctx)
	}
	for _, s := range a.supervisors {
		s.Start(ctx)
	}

	go func() {
		if err := a.api.Start(); err != nil {
			a.logger.WithError(err).Error("http api stopped")
		}
	}()

	a.logger.Info("relayer started")
	return nil
}

// Stop tears the daemon down in reverse dependency order: stop the
// supervision and sweep loops, close the streams, let in-flight relay
// tasks finish, then release the api and the store.
func (a *App) Stop(ctx context.Context) {
	a.logger.Info("relayer stopping")

	for _, s := range a.supervisors {
		s.Stop()
	}
	for _, b := range a.backfillers {
		b.Stop()
	}

	for _, tag := range []types.ChainTag{types.L1, types.L2} {
		if client := a.registry.Get(tag); client != nil {
			client.Unsubscribe()
		}
	}

	if a.cancel != nil {
		a.cancel()
	}

	for _, ing := range a.ingestors {
		ing.WaitForRelays()
	}

	if err := a.api.Shutdown(ctx); err != nil {
		a.logger.WithError(err).Warn("http api shutdown failed")
	}

	for _, tag := range []types.ChainTag{types.L1, types.L2} {
		if client := a.registry.Get(tag); client != nil {
			if err := client.Close(); err != nil {
				a.logger.WithField("chain", tag).WithError(err).Warn("chain client close failed")
			}
		}
	}

	if err := a.store.Close(ctx); err != nil {
		a.logger.WithError(err).Warn("tx store close failed")
	}

	a.logger.Info("relayer stopped")
}

// chainConfig projects the flat env config onto one leg's ChainConfig.
func chainConfig(cfg *config.Config, tag types.ChainTag) *types.ChainConfig {
	c := &types.ChainConfig{
		Tag:                   tag,
		PrivateKey:            cfg.OwnerPrivateKey,
		WaitNBlocks:           1,
		BackfillBlocks:        cfg.BackfillBlocks,
		BackfillInterval:      cfg.BackfillIntervalSeconds,
		HealthTickSeconds:     cfg.HealthTickSeconds,
		ReplaceStuckTx:        cfg.ReplaceStuckTx,
		StuckTxTimeoutSeconds: cfg.StuckTxTimeoutSeconds,
	}

	if tag == types.L1 {
		c.Name = config.L1Name
		c.ChainID = cfg.L1ChainID
		c.RpcUrl = cfg.L1RpcURL
		c.TxType = cfg.L1TxType
		c.BridgeContract = cfg.L1BridgeContract
	} else {
		c.Name = config.L2Name
		c.ChainID = cfg.L2ChainID
		c.RpcUrl = cfg.L2RpcURL
		c.TxType = cfg.L2TxType
		c.BridgeContract = cfg.L2BridgeContract
	}

	return c
}
