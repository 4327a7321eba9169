package datahub

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/datahub/internal/db"
	dbMemory "github.com/kailas-cloud/datahub/internal/db/memory"
	dbRedis "github.com/kailas-cloud/datahub/internal/db/redis"
	catalogrepo "github.com/kailas-cloud/datahub/internal/repository/catalog"
	deduprepo "github.com/kailas-cloud/datahub/internal/repository/dedup"
	metadatarepo "github.com/kailas-cloud/datahub/internal/repository/metadata"
	queuerepo "github.com/kailas-cloud/datahub/internal/repository/queue"
	searchindexrepo "github.com/kailas-cloud/datahub/internal/repository/searchindex"
	"github.com/kailas-cloud/datahub/internal/transport/blob"
	cataloguc "github.com/kailas-cloud/datahub/internal/usecase/catalog"
	counteruc "github.com/kailas-cloud/datahub/internal/usecase/counter"
	enrichuc "github.com/kailas-cloud/datahub/internal/usecase/enrich"
	projectionuc "github.com/kailas-cloud/datahub/internal/usecase/projection"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultDownloadWindow   = 24 * time.Hour
	defaultViewWindow       = time.Hour
	defaultFetchTimeout     = 60 * time.Second
	defaultMaxFileBytes     = 256 << 20
	defaultPreviewRows      = 10
	defaultPreviewMaxBytes  = 16 << 10
)

// Client is the embedded datahub entry point. It owns the store connection
// and the background projection and enrichment workers.
type Client struct {
	store       db.Store
	catalogSvc  *cataloguc.Service
	stopWorkers context.CancelFunc
	obs         *observer
}

// New creates a Client, connects to the database, and starts the background
// workers. The provided context is used for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		keyPrefix:      "datahub:",
		downloadWindow: defaultDownloadWindow,
		viewWindow:     defaultViewWindow,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	store, err := createStore(cfg)
	if err != nil {
		return nil, err
	}

	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("datahub: database not ready: %w", err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		store.Close()
		return nil, err
	}
	return wireClient(ctx, store, cfg, obs)
}

func createStore(cfg *clientConfig) (db.Store, error) {
	switch cfg.driver {
	case "redis":
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Password: cfg.password,
		})
		if err != nil {
			return nil, fmt.Errorf("datahub: create redis store: %w", err)
		}
		return s, nil
	case "memory":
		return dbMemory.NewStore(), nil
	case "":
		return nil, fmt.Errorf("datahub: database required (use WithRedis or WithMemory)")
	default:
		return nil, fmt.Errorf("datahub: unknown driver %q", cfg.driver)
	}
}

func wireClient(ctx context.Context, store db.Store, cfg *clientConfig, obs *observer) (*Client, error) {
	prefix := cfg.keyPrefix

	catalogRepo := catalogrepo.New(store, prefix)
	dedupRepo := deduprepo.New(store, prefix)
	metaRepo := metadatarepo.New(store, prefix)

	indexRepo := searchindexrepo.New(store, prefix)
	if cfg.vectorDim > 0 {
		indexRepo = indexRepo.WithVectorDim(cfg.vectorDim)
	}
	if err := indexRepo.EnsureIndex(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("datahub: ensure search index: %w", err)
	}

	queueCfg := queuerepo.Config{MaxAttempts: cfg.maxAttempts}
	projQueue := queuerepo.New(store, prefix, "projection", queueCfg)
	uploadQueue := queuerepo.New(store, prefix, "uploads", queueCfg)

	counters := counteruc.New(dedupRepo, cfg.downloadWindow, cfg.viewWindow)
	catalogSvc := cataloguc.New(catalogRepo, counters, projQueue, uploadQueue)

	// nil interfaces stay nil across the assignment; the builder treats a
	// missing embedder as "index without a vector".
	var embedder enrichuc.Embedder
	if cfg.embedder != nil {
		embedder = cfg.embedder
	}
	var labels enrichuc.LabelResolver = noopResolver{}
	if cfg.labels != nil {
		labels = cfg.labels
	}

	builder := enrichuc.NewBuilder(metaRepo, labels, embedder)
	fetcher := blob.NewClient(defaultFetchTimeout, defaultMaxFileBytes)
	enrichSvc := enrichuc.New(fetcher, metaRepo, catalogRepo, builder, indexRepo,
		defaultPreviewRows, defaultPreviewMaxBytes)

	workerCtx, stop := context.WithCancel(context.Background())
	go projectionuc.NewWorker(projQueue, indexRepo, catalogRepo, builder).Run(workerCtx)
	go enrichuc.NewWorker(uploadQueue, enrichSvc).Run(workerCtx)

	return &Client{
		store:       store,
		catalogSvc:  catalogSvc,
		stopWorkers: stop,
		obs:         obs,
	}, nil
}

// Close stops the background workers and releases the store connection.
func (c *Client) Close() {
	if c.stopWorkers != nil {
		c.stopWorkers()
	}
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Catalog returns the catalog service.
func (c *Client) Catalog() *CatalogService {
	return &CatalogService{svc: c.catalogSvc, obs: c.obs}
}

// DeadLetters returns permanently failed tasks per queue.
func (c *Client) DeadLetters(ctx context.Context) (map[string][]DeadLetter, error) {
	start := time.Now()
	dls, err := c.catalogSvc.DeadLetters(ctx)
	c.obs.observe("dead_letters", start, err)
	if err != nil {
		return nil, err
	}

	out := make(map[string][]DeadLetter, len(dls))
	for queue, tasks := range dls {
		converted := make([]DeadLetter, 0, len(tasks))
		for _, t := range tasks {
			converted = append(converted, DeadLetter{
				TaskID:     t.ID,
				EntityID:   t.EntityID,
				Kind:       string(t.Kind),
				Attempts:   t.Attempts,
				LastError:  t.LastError,
				EnqueuedAt: t.EnqueuedAt,
			})
		}
		out[queue] = converted
	}
	return out, nil
}

// noopResolver is used when no label resolver is configured.
type noopResolver struct{}

func (noopResolver) Resolve(context.Context, []string) (map[string]string, error) {
	return map[string]string{}, nil
}
