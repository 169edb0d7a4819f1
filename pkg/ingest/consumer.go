// Package ingest moves position events from the redis queue into a journey store
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/adjust/rmq/v5"
	"github.com/rs/zerolog/log"
	"github.com/travigo/transitlog/pkg/consumer"
	"github.com/travigo/transitlog/pkg/ctdf"
	"github.com/travigo/transitlog/pkg/feeds"
	"github.com/travigo/transitlog/pkg/journeystore"
	"github.com/travigo/transitlog/pkg/metrics"
)

const QueueName = "position-events"

const numConsumers = 2
const batchSize = 200
const batchTimeout = 2 * time.Second

// PositionEventMessage is the queue payload, one event for one journey
type PositionEventMessage struct {
	Journey ctdf.JourneyIdentity `json:"journey"`
	Event   *ctdf.PositionEvent  `json:"event"`
}

func (m PositionEventMessage) MarshalBinary() ([]byte, error) {
	return json.Marshal(m)
}

type BatchConsumer struct {
	id      int
	store   *journeystore.Store
	metrics *metrics.Collector
}

func NewBatchConsumer(id int, store *journeystore.Store, collector *metrics.Collector) *BatchConsumer {
	return &BatchConsumer{
		id:      id,
		store:   store,
		metrics: collector,
	}
}

func (consumer *BatchConsumer) Consume(batch rmq.Deliveries) {
	var updates []journeystore.PositionUpdate
	var accepted rmq.Deliveries

	for _, delivery := range batch {
		var message PositionEventMessage
		err := json.Unmarshal([]byte(delivery.Payload()), &message)
		if err == nil && message.Event == nil {
			err = fmt.Errorf("message has no event")
		}
		if err == nil {
			err = feeds.NormaliseEvent(message.Event, message.Journey)
		}
		if err == nil && message.Event.RecordedAtUnix == 0 {
			err = fmt.Errorf("event has no recorded time")
		}

		if err != nil {
			log.Error().Err(err).Int("consumer", consumer.id).Msg("Rejecting position event")
			consumer.metrics.ObserveIngestRejected()

			if err := delivery.Reject(); err != nil {
				log.Error().Err(err).Msg("Failed to reject position event")
			}

			continue
		}

		updates = append(updates, journeystore.PositionUpdate{
			Journey: message.Journey,
			Event:   message.Event,
		})
		accepted = append(accepted, delivery)
	}

	if len(updates) > 0 {
		startTime := time.Now()
		if err := consumer.store.AppendPositionEvents(context.Background(), updates); err != nil {
			log.Error().Err(err).Msg("Failed to mirror ingested journeys")
		}
		log.Debug().Int("Length", len(updates)).Str("Time", time.Since(startTime).String()).Msg("Appended position events")

		consumer.metrics.ObserveIngested(len(updates))
	}

	if ackErrors := accepted.Ack(); len(ackErrors) > 0 {
		for _, err := range ackErrors {
			log.Error().Err(err).Msg("Failed to ack position event")
		}
	}
}

// StartConsumers attaches batch consumers feeding store to the position event queue
func StartConsumers(connection rmq.Connection, store *journeystore.Store, collector *metrics.Collector) error {
	redisConsumer := &consumer.RedisConsumer{
		QueueName:       QueueName,
		NumberConsumers: numConsumers,
		BatchSize:       batchSize,
		Timeout:         batchTimeout,
		NewConsumer: func(id int) rmq.BatchConsumer {
			return NewBatchConsumer(id, store, collector)
		},
	}

	return redisConsumer.Setup(connection)
}

// Publish pushes every position event of the journeys onto the queue
func Publish(queue rmq.Queue, journeys []*ctdf.Journey) (int, error) {
	published := 0

	for _, journey := range journeys {
		for _, event := range journey.PositionEvents {
			payload, err := PositionEventMessage{Journey: journey.JourneyIdentity, Event: event}.MarshalBinary()
			if err != nil {
				return published, err
			}

			if err := queue.PublishBytes(payload); err != nil {
				return published, err
			}

			published++
		}
	}

	return published, nil
}

// StartCleaner returns deliveries of dead consumers to the queue until ctx is done
func StartCleaner(ctx context.Context, connection rmq.Connection, interval time.Duration) {
	cleaner := rmq.NewCleaner(connection)

	log.Info().Str("queue", QueueName).Msg("Starting queue cleaner process")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			returned, err := cleaner.Clean()
			if err != nil {
				log.Error().Err(err).Msg("Failed to clean")
				continue
			}

			if returned != 0 {
				log.Info().Msgf("Cleaned %d records", returned)
			}
		}
	}
}
