package kafkaconsumer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/IBM/sarama"
	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/mohammed-shakir/osm-area-store/internal/core/config"
	"github.com/mohammed-shakir/osm-area-store/internal/jobs"
	"github.com/mohammed-shakir/osm-area-store/internal/pipeline"
	"github.com/mohammed-shakir/osm-area-store/internal/store/keys"
	"github.com/mohammed-shakir/osm-area-store/internal/store/redisstore"
)

type fakeRunner struct {
	mu        sync.Mutex
	ran       []jobs.ImportJob
	failFirst bool
}

func (f *fakeRunner) RunJob(_ context.Context, job jobs.ImportJob) (pipeline.Stats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ran = append(f.ran, job)
	if f.failFirst {
		f.failFirst = false
		return pipeline.Stats{}, errors.New("dataset unreadable")
	}
	return pipeline.Stats{Seen: 10, Stored: 7, Skipped: 3}, nil
}

func (f *fakeRunner) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.ran)
}

type sess struct {
	ctx    context.Context
	claims map[string][]int32
	mu     sync.Mutex
	marked []int64
}

func (s *sess) Claims() map[string][]int32 { return s.claims }
func (s *sess) MemberID() string           { return "" }
func (s *sess) GenerationID() int32        { return 0 }
func (s *sess) MarkMessage(m *sarama.ConsumerMessage, _ string) {
	s.mu.Lock()
	s.marked = append(s.marked, m.Offset)
	s.mu.Unlock()
}
func (s *sess) ResetOffset(_ string, _ int32, _ int64, _ string) {}
func (s *sess) MarkOffset(_ string, _ int32, _ int64, _ string)  {}
func (s *sess) Context() context.Context                         { return s.ctx }
func (s *sess) Errors() <-chan error                             { return nil }
func (s *sess) Commit()                                          {}

type claim struct {
	part int32
	msgs chan *sarama.ConsumerMessage
}

func (c *claim) Topic() string                            { return "osm-import-jobs" }
func (c *claim) Partition() int32                         { return c.part }
func (c *claim) InitialOffset() int64                     { return 0 }
func (c *claim) HighWaterMarkOffset() int64               { return 0 }
func (c *claim) Messages() <-chan *sarama.ConsumerMessage { return c.msgs }

func jobBytes(version uint64, area string) []byte {
	b, _ := json.Marshal(jobs.ImportJob{
		Version: version, Area: area, Path: "/data/" + area + ".osm.pbf",
		TS: time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC),
	})
	return b
}

func newRedisClaims(t *testing.T) (*redisstore.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	cli, err := redisstore.New(context.Background(), mr.Addr())
	if err != nil {
		t.Fatalf("redisstore.New: %v", err)
	}
	t.Cleanup(func() { _ = cli.Close() })
	return cli, mr
}

func newConsumerForTest(r JobRunner, claims Claims) *Consumer {
	cfg := Config{Brokers: []string{"x"}, Topic: "osm-import-jobs", GroupID: "g", ClaimTTL: time.Hour}
	return New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), r, claims)
}

func TestSinglePartition_OrderAndCommitAfterWork(t *testing.T) {
	fr := &fakeRunner{}
	cli, _ := newRedisClaims(t)
	c := newConsumerForTest(fr, cli)

	g := c.handler()
	s := &sess{ctx: t.Context()}
	ch := make(chan *sarama.ConsumerMessage, 2)
	ch <- &sarama.ConsumerMessage{Topic: "osm-import-jobs", Offset: 10, Value: jobBytes(1, "prague")}
	ch <- &sarama.ConsumerMessage{Topic: "osm-import-jobs", Offset: 11, Value: jobBytes(1, "brno")}
	close(ch)

	if err := g.ConsumeClaim(s, &claim{part: 0, msgs: ch}); err != nil {
		t.Fatalf("ConsumeClaim: %v", err)
	}
	if len(s.marked) != 2 || s.marked[0] != 10 || s.marked[1] != 11 {
		t.Fatalf("marked offsets=%v want [10 11]", s.marked)
	}
	if fr.count() != 2 || fr.ran[0].Area != "prague" || fr.ran[1].Area != "brno" {
		t.Fatalf("runner saw %+v", fr.ran)
	}
}

func TestRetry_FailedImportReleasesClaim(t *testing.T) {
	fr := &fakeRunner{failFirst: true}
	cli, mr := newRedisClaims(t)
	c := newConsumerForTest(fr, cli)
	ctx := context.Background()

	msg := &sarama.ConsumerMessage{Topic: "osm-import-jobs", Offset: 5, Value: jobBytes(2, "prague")}
	if err := c.ProcessOne(ctx, msg); err == nil {
		t.Fatal("expected error on first attempt")
	}
	if mr.Exists(keys.Job("prague", "/data/prague.osm.pbf", "2")) {
		t.Fatal("claim must be released after a failed import")
	}

	s := &sess{ctx: ctx}
	ch := make(chan *sarama.ConsumerMessage, 1)
	ch <- msg
	close(ch)
	if err := c.handler().ConsumeClaim(s, &claim{msgs: ch}); err != nil {
		t.Fatalf("ConsumeClaim second attempt: %v", err)
	}
	if len(s.marked) != 1 || s.marked[0] != 5 {
		t.Fatalf("offset was not marked after success; marked=%v", s.marked)
	}
	if !mr.Exists(keys.Job("prague", "/data/prague.osm.pbf", "2")) {
		t.Fatal("successful import should hold its claim")
	}
}

func TestDuplicates_SkippedLocallyAndAcrossWorkers(t *testing.T) {
	fr := &fakeRunner{}
	cli, _ := newRedisClaims(t)
	ctx := context.Background()

	a := newConsumerForTest(fr, cli)
	if err := a.ProcessOne(ctx, &sarama.ConsumerMessage{Value: jobBytes(4, "prague")}); err != nil {
		t.Fatal(err)
	}
	// same worker, same or older version
	_ = a.ProcessOne(ctx, &sarama.ConsumerMessage{Value: jobBytes(4, "prague")})
	_ = a.ProcessOne(ctx, &sarama.ConsumerMessage{Value: jobBytes(3, "prague")})
	// another worker sharing the claim store
	b := newConsumerForTest(fr, cli)
	if err := b.ProcessOne(ctx, &sarama.ConsumerMessage{Value: jobBytes(4, "prague")}); err != nil {
		t.Fatal(err)
	}
	if fr.count() != 1 {
		t.Fatalf("runner ran %d times, want 1", fr.count())
	}

	if err := b.ProcessOne(ctx, &sarama.ConsumerMessage{Value: jobBytes(5, "prague")}); err != nil {
		t.Fatal(err)
	}
	if fr.count() != 2 {
		t.Fatalf("a newer version must run, runs=%d", fr.count())
	}
}

func TestPoisonMessages_AckedWithoutWork(t *testing.T) {
	fr := &fakeRunner{}
	c := newConsumerForTest(fr, nil)
	ctx := context.Background()

	for _, v := range [][]byte{
		[]byte("{not json"),
		[]byte(`{"version":1,"area":"","path":"/x.osm","ts":"2026-01-01T00:00:00Z"}`),
		[]byte(`{"version":1,"area":"a","path":"/x.shp","ts":"2026-01-01T00:00:00Z"}`),
	} {
		if err := c.ProcessOne(ctx, &sarama.ConsumerMessage{Value: v}); err != nil {
			t.Fatalf("poison message %q should be acknowledged, got %v", v, err)
		}
	}
	if fr.count() != 0 {
		t.Fatalf("runner must not run for invalid jobs")
	}
}

func TestReadiness_FollowsAssignment(t *testing.T) {
	c := newConsumerForTest(&fakeRunner{}, nil)
	if ok, _ := c.Readiness(); ok {
		t.Fatal("not ready before assignment")
	}
	h := c.handler()
	s := &sess{ctx: context.Background(), claims: map[string][]int32{"osm-import-jobs": {0, 2}}}
	_ = h.Setup(s)
	ok, parts := c.Readiness()
	if !ok || len(parts) != 2 {
		t.Fatalf("ready=%v parts=%v", ok, parts)
	}
	_ = h.Cleanup(s)
	if ok, _ := c.Readiness(); ok {
		t.Fatal("not ready after cleanup")
	}
}

func TestFromConfig_SplitsBrokers(t *testing.T) {
	cfg := FromConfig(configKafka(" a:9092, b:9092 ,,"))
	if len(cfg.Brokers) != 2 || cfg.Brokers[0] != "a:9092" || cfg.Brokers[1] != "b:9092" {
		t.Fatalf("brokers=%v", cfg.Brokers)
	}
}

func configKafka(brokers string) config.KafkaCfg {
	return config.KafkaCfg{Brokers: brokers, Topic: "t", GroupID: "g"}
}
