// Package kafka публикует аналитические события выполненных поисков.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/DRSN-tech/visual-search/internal/cfg"
	"github.com/DRSN-tech/visual-search/internal/usecase"
	"github.com/DRSN-tech/visual-search/pkg/e"
	"github.com/DRSN-tech/visual-search/pkg/logger"
	"github.com/jimlawless/whereami"
	"github.com/segmentio/kafka-go"
)

// searchEventModel — формат сообщения в топике аналитики.
type searchEventModel struct {
	QueryID      string  `json:"query_id"`
	InputType    string  `json:"input_type"`
	TopK         int     `json:"top_k"`
	Threshold    float64 `json:"threshold"`
	ResultsCount int     `json:"results_count"`
	CacheHit     bool    `json:"cache_hit"`
	TookMs       int64   `json:"took_ms"`
	Timestamp    string  `json:"timestamp"`
}

type Producer struct {
	writer *kafka.Writer
	logger logger.Logger
	cfg    *cfg.KafkaCfg
	wg     sync.WaitGroup
}

func NewProducer(logger logger.Logger, cfg *cfg.KafkaCfg) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchSize:    10,
		BatchTimeout: 500 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Warnf("Kafka producer error: %s", err.Error())
			}
		},
	}

	return &Producer{
		writer: writer,
		logger: logger,
		cfg:    cfg,
	}
}

// PublishSearchEvent отправляет событие в фоне: поиск не ждёт брокера,
// потеря события при сбое допустима и только логируется.
func (p *Producer) PublishSearchEvent(event *usecase.SearchEvent) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		value, err := json.Marshal(searchEventModel{
			QueryID:      event.QueryID,
			InputType:    event.InputType,
			TopK:         event.TopK,
			Threshold:    event.Threshold,
			ResultsCount: event.ResultsCount,
			CacheHit:     event.CacheHit,
			TookMs:       event.TookMs,
			Timestamp:    event.Timestamp.Format(time.RFC3339Nano),
		})
		if err != nil {
			p.logger.Warnf("failed to marshal search event %s: %v", event.QueryID, err)
			return
		}

		err = p.writer.WriteMessages(ctx, kafka.Message{
			Key:   []byte(event.QueryID),
			Value: value,
		})
		if err != nil {
			p.logger.Warnf("failed to publish search event %s: %v", event.QueryID, err)
		}
	}()
}

// EnsureTopic создаёт топик аналитики, если его ещё нет.
func (p *Producer) EnsureTopic(timeout time.Duration) error {
	conn, err := kafka.Dial(p.cfg.NetworkMode, p.cfg.Brokers[0])
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	defer conn.Close()

	partitions, err := conn.ReadPartitions(p.cfg.Topic)
	if err == nil && len(partitions) > 0 {
		return nil
	}

	done := make(chan error, 1)
	go func() {
		done <- conn.CreateTopics(kafka.TopicConfig{
			Topic:             p.cfg.Topic,
			NumPartitions:     p.cfg.Partitions,
			ReplicationFactor: p.cfg.ReplicationFactor,
		})
	}()

	select {
	case err := <-done:
		if err != nil {
			return e.Wrap(whereami.WhereAmI(), fmt.Errorf("failed to create topic %s: %w", p.cfg.Topic, err))
		}
		return nil
	case <-time.After(timeout):
		return e.Wrap(whereami.WhereAmI(), fmt.Errorf("timeout: %v, topic: %s", timeout, p.cfg.Topic))
	}
}

// Close дожидается фоновых публикаций и закрывает writer.
func (p *Producer) Close() error {
	p.wg.Wait()
	return p.writer.Close()
}
