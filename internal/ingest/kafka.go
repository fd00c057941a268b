package ingest

import (
	"context"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"probevault/internal/config"
)

// StartKafka consumes item records, one per message value, from the
// configured topic and submits each through sink.
func StartKafka(ctx context.Context, cfg *config.Manager, sink *Sink, logger *slog.Logger) {
	current := cfg.Get().Ingest.Kafka
	if !current.Enabled {
		if logger != nil {
			logger.Info("kafka ingest disabled")
		}
		return
	}
	if logger != nil {
		logger.Info("kafka ingest enabled", "brokers", current.Brokers, "topic", current.Topic, "group_id", current.GroupID)
	}
	queueCapacity := cfg.Get().Ingest.ChannelBuffer
	if queueCapacity <= 0 {
		queueCapacity = 100
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:       current.Brokers,
		Topic:         current.Topic,
		GroupID:       current.GroupID,
		MinBytes:      1e3,
		MaxBytes:      10e6,
		QueueCapacity: queueCapacity,
	})
	go func() {
		defer reader.Close()
		for {
			m, err := reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				if logger != nil {
					logger.Warn("kafka read error", "err", err)
				}
				continue
			}
			item, err := DecodeItemBytes(m.Value)
			if err != nil {
				if logger != nil {
					logger.Warn("kafka decode error", "err", err)
				}
				continue
			}
			sink.Submit(item)
		}
	}()
}
