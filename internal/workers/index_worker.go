package workers

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/yoockh/studybuddy/internal/models"
	"github.com/yoockh/studybuddy/internal/observability"
	"github.com/yoockh/studybuddy/internal/services"
)

const (
	DefaultIndexStream = "index:replay"
	DefaultIndexGroup  = "index-workers"
)

// IndexQueue pushes turns whose index write failed onto a Redis stream.
type IndexQueue struct {
	Redis  *redis.Client
	Stream string
}

func NewIndexQueue(rdb *redis.Client) *IndexQueue {
	return &IndexQueue{Redis: rdb, Stream: DefaultIndexStream}
}

func (q *IndexQueue) Enqueue(ctx context.Context, t models.Turn) error {
	b, err := json.Marshal(t)
	if err != nil {
		return err
	}
	return q.Redis.XAdd(ctx, &redis.XAddArgs{
		Stream: q.Stream,
		Values: map[string]any{"turn": string(b)},
	}).Err()
}

// IndexReplayPool consumes the replay stream and retries the index write.
// Failed entries stay pending and are reclaimed after RetryAfter.
type IndexReplayPool struct {
	Redis      *redis.Client
	Indexer    services.Indexer
	NumWorkers int
	Metrics    *observability.Metrics
	Logger     logrus.FieldLogger

	Stream         string
	Group          string
	ConsumerPrefix string
	RetryAfter     time.Duration
}

func (p *IndexReplayPool) Start(ctx context.Context) error {
	if p.Redis == nil || p.Indexer == nil {
		return errors.New("IndexReplayPool missing dependency: Redis/Indexer must be set")
	}
	if p.Stream == "" {
		p.Stream = DefaultIndexStream
	}
	if p.Group == "" {
		p.Group = DefaultIndexGroup
	}
	if p.ConsumerPrefix == "" {
		p.ConsumerPrefix = "c"
	}
	if p.NumWorkers <= 0 {
		p.NumWorkers = 2
	}
	if p.RetryAfter <= 0 {
		p.RetryAfter = time.Minute
	}
	if p.Logger == nil {
		p.Logger = logrus.New()
	}

	_ = p.Redis.XGroupCreateMkStream(ctx, p.Stream, p.Group, "0").Err() // ignore BUSYGROUP

	for i := 0; i < p.NumWorkers; i++ {
		consumer := p.ConsumerPrefix + "-" + strconv.Itoa(i+1)
		go p.runConsumer(ctx, consumer)
	}
	return nil
}

func (p *IndexReplayPool) runConsumer(ctx context.Context, consumer string) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res, err := p.Redis.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    p.Group,
			Consumer: consumer,
			Streams:  []string{p.Stream, ">"},
			Count:    10,
			Block:    5 * time.Second,
		}).Result()
		if err != nil {
			if err == redis.Nil {
				p.reclaim(ctx, consumer)
				continue
			}
			time.Sleep(500 * time.Millisecond)
			continue
		}

		for _, stream := range res {
			p.process(ctx, stream.Messages)
		}
	}
}

// reclaim takes over entries another consumer (or an earlier attempt) left
// pending for longer than RetryAfter.
func (p *IndexReplayPool) reclaim(ctx context.Context, consumer string) {
	msgs, _, err := p.Redis.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   p.Stream,
		Group:    p.Group,
		Consumer: consumer,
		MinIdle:  p.RetryAfter,
		Start:    "0",
		Count:    10,
	}).Result()
	if err != nil {
		return
	}
	p.process(ctx, msgs)
}

func (p *IndexReplayPool) process(ctx context.Context, msgs []redis.XMessage) {
	for _, msg := range msgs {
		result := p.handle(ctx, msg.ID, msg.Values)
		p.Metrics.IncIndexReplay(result)
		if result != "failed" {
			_ = p.Redis.XAck(ctx, p.Stream, p.Group, msg.ID).Err()
		}
	}
}

// handle returns "ok", "dropped" (undecodable, acked) or "failed" (left pending).
func (p *IndexReplayPool) handle(ctx context.Context, id string, values map[string]any) string {
	log := p.Logger.WithField("redis_id", id)

	turn, err := decodeTurn(values)
	if err != nil {
		log.WithError(err).Warn("dropping undecodable replay entry")
		return "dropped"
	}

	log = log.WithFields(logrus.Fields{
		"user_id":  turn.UserID,
		"index_id": models.IndexIDForTurn(turn),
	})
	if err := p.Indexer.Index(ctx, turn); err != nil {
		log.WithError(err).Warn("index replay failed")
		return "failed"
	}
	log.Debug("index entry replayed")
	return "ok"
}

func decodeTurn(values map[string]any) (models.Turn, error) {
	raw, _ := values["turn"].(string)
	if raw == "" {
		return models.Turn{}, errors.New("missing turn field")
	}
	var t models.Turn
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		return models.Turn{}, err
	}
	if t.UserID == "" || !t.Role.Valid() {
		return models.Turn{}, errors.New("incomplete turn")
	}
	return t, nil
}
