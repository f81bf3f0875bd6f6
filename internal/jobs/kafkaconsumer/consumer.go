// Package kafkaconsumer turns import job events from kafka into importer runs.
package kafkaconsumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IBM/sarama"

	obs "github.com/mohammed-shakir/osm-area-store/internal/core/observability"
	"github.com/mohammed-shakir/osm-area-store/internal/jobs"
	mylog "github.com/mohammed-shakir/osm-area-store/internal/logger"
	"github.com/mohammed-shakir/osm-area-store/internal/pipeline"
	"github.com/mohammed-shakir/osm-area-store/internal/store/keys"
)

type JobRunner interface {
	RunJob(ctx context.Context, job jobs.ImportJob) (pipeline.Stats, error)
}

// Claims is the shared store used to stop two workers importing the same publication.
type Claims interface {
	SetNX(ctx context.Context, key string, val []byte, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
}

const (
	resultOK        = "ok"
	resultFailed    = "failed"
	resultInvalid   = "invalid"
	resultDuplicate = "duplicate"
)

type Consumer struct {
	cfg    Config
	logger *slog.Logger
	runner JobRunner
	claims Claims
	seen   *versionDedupe

	assigned atomic.Bool
	assignMu sync.RWMutex
	assign   map[int32]struct{}
	wg       sync.WaitGroup
	cancel   context.CancelFunc
}

func New(cfg Config, logger *slog.Logger, runner JobRunner, claims Claims) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{
		cfg:    cfg,
		logger: logger,
		runner: runner,
		claims: claims,
		seen:   newVersionDedupe(1024),
		assign: map[int32]struct{}{},
	}
}

// Start joins the consumer group and consumes in the background until ctx ends or Stop is called.
func (c *Consumer) Start(ctx context.Context) error {
	if c.runner == nil {
		return errors.New("kafkaconsumer: job runner is required")
	}

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.Consumer.Group.Session.Timeout = c.cfg.SessionTimeout
	cfg.Consumer.Group.Heartbeat.Interval = c.cfg.Heartbeat
	cfg.Consumer.Group.Rebalance.Timeout = c.cfg.RebalanceTimeout
	if c.cfg.InitialOffsetOldest {
		cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	} else {
		cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	}
	cfg.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(c.cfg.Brokers, c.cfg.GroupID, cfg)
	if err != nil {
		cancel()
		return fmt.Errorf("create consumer group: %w", err)
	}

	h := c.handler()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer func() {
			if err := group.Close(); err != nil {
				c.logger.Error("kafka consumer group close", "err", err)
			}
		}()
		for {
			if err := group.Consume(ctx, []string{c.cfg.Topic}, h); err != nil {
				c.logger.Error("kafka consume error", "err", err)
				select {
				case <-time.After(2 * time.Second):
				case <-ctx.Done():
					return
				}
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for err := range group.Errors() {
			c.logger.Error("kafka group error", "err", err)
		}
	}()

	c.logger.Info("import job consumer started",
		"brokers", c.cfg.Brokers, "topic", c.cfg.Topic, "group", c.cfg.GroupID)
	return nil
}

func (c *Consumer) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
	c.logger.Info("import job consumer stopped")
}

// Readiness reports whether the group has assigned partitions to this worker.
func (c *Consumer) Readiness() (ready bool, partitions []int32) {
	if !c.assigned.Load() {
		return false, nil
	}
	c.assignMu.RLock()
	defer c.assignMu.RUnlock()
	for p := range c.assign {
		partitions = append(partitions, p)
	}
	return true, partitions
}

func (c *Consumer) handler() *groupHandler {
	return &groupHandler{
		setup: func(sess sarama.ConsumerGroupSession) {
			c.assignMu.Lock()
			c.assign = map[int32]struct{}{}
			for _, parts := range sess.Claims() {
				for _, p := range parts {
					c.assign[p] = struct{}{}
				}
			}
			c.assigned.Store(true)
			c.assignMu.Unlock()
		},
		cleanup: func(sarama.ConsumerGroupSession) {
			c.assignMu.Lock()
			c.assigned.Store(false)
			c.assign = map[int32]struct{}{}
			c.assignMu.Unlock()
		},
		process: c.ProcessOne,
	}
}

// ProcessOne runs the import a message asks for. Malformed and already imported jobs are
// acknowledged without work; a failed import returns an error so the message is redelivered.
func (c *Consumer) ProcessOne(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var job jobs.ImportJob
	if err := json.Unmarshal(msg.Value, &job); err != nil {
		obs.IncImportJob(resultInvalid)
		c.logger.WarnContext(ctx, "undecodable import job dropped",
			"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset, "err", err)
		return nil
	}
	if err := job.Validate(); err != nil {
		obs.IncImportJob(resultInvalid)
		c.logger.WarnContext(ctx, "invalid import job dropped",
			"area", job.Area, "offset", msg.Offset, "err", err)
		return nil
	}

	ctx = mylog.WithArea(mylog.WithComponent(ctx, "import_worker"), job.Area)
	dataset := job.Area + "|" + job.Path
	if c.seen.isStale(dataset, job.Version) {
		obs.IncImportJob(resultDuplicate)
		c.logger.DebugContext(ctx, "import job already handled", "version", job.Version)
		return nil
	}

	claimKey := keys.Job(job.DedupeKey())
	if c.claims != nil {
		ok, err := c.claims.SetNX(ctx, claimKey, []byte(time.Now().UTC().Format(time.RFC3339)), c.cfg.ClaimTTL)
		if err != nil {
			obs.IncImportJob(resultFailed)
			return fmt.Errorf("claim %s: %w", claimKey, err)
		}
		if !ok {
			obs.IncImportJob(resultDuplicate)
			c.seen.done(dataset, job.Version)
			c.logger.InfoContext(ctx, "import job claimed elsewhere", "version", job.Version)
			return nil
		}
	}

	st, err := c.runner.RunJob(ctx, job)
	if err != nil {
		obs.IncImportJob(resultFailed)
		if c.claims != nil {
			if derr := c.claims.Del(ctx, claimKey); derr != nil {
				c.logger.WarnContext(ctx, "release job claim", "key", claimKey, "err", derr)
			}
		}
		c.logger.ErrorContext(ctx, "import job failed", "version", job.Version, "err", err)
		return fmt.Errorf("run job: %w", err)
	}

	obs.IncImportJob(resultOK)
	c.seen.done(dataset, job.Version)
	c.logger.InfoContext(ctx, "import job finished",
		"version", job.Version, "stored", st.Stored, "skipped", st.Skipped)
	return nil
}
