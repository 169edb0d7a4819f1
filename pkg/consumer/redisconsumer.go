package consumer

import (
	"fmt"
	"time"

	"github.com/adjust/rmq/v5"
	"github.com/rs/zerolog/log"
)

// RedisConsumer runs NumberConsumers batch consumers against one queue
type RedisConsumer struct {
	QueueName string

	NumberConsumers int
	BatchSize       int

	Timeout time.Duration

	// NewConsumer builds the consumer for each worker id
	NewConsumer func(id int) rmq.BatchConsumer
}

func (c *RedisConsumer) Setup(connection rmq.Connection) error {
	log.Info().Str("queue", c.QueueName).Msg("Starting consumers")

	queue, err := connection.OpenQueue(c.QueueName)
	if err != nil {
		return err
	}
	if err := queue.StartConsuming(int64(c.NumberConsumers*c.BatchSize), 1*time.Second); err != nil {
		return err
	}

	for i := 0; i < c.NumberConsumers; i++ {
		if err := c.startQueueConsumer(queue, i); err != nil {
			return err
		}
	}

	return nil
}

func (c *RedisConsumer) startQueueConsumer(queue rmq.Queue, id int) error {
	log.Info().Msgf("Starting %s consumer %d", c.QueueName, id)

	_, err := queue.AddBatchConsumer(fmt.Sprintf("%s-%d", c.QueueName, id), int64(c.BatchSize), c.Timeout, c.NewConsumer(id))

	return err
}
