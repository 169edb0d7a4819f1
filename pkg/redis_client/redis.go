package redis_client

import (
	"context"
	"strconv"

	"github.com/adjust/rmq/v5"
	"github.com/redis/go-redis/v9"
	"github.com/travigo/transitlog/pkg/util"
)

var Client *redis.Client
var QueueConnection rmq.Connection

const defaultConnectionAddress = "localhost:6379"
const defaultConnectionPassword = ""
const defaultDatabase = 0

const queueConnectionTag = "transitlog"

func Connect() error {
	address := defaultConnectionAddress
	password := defaultConnectionPassword
	database := defaultDatabase

	env := util.GetEnvironmentVariables()

	if env["TRANSITLOG_REDIS_ADDRESS"] != "" {
		address = env["TRANSITLOG_REDIS_ADDRESS"]
	}

	if env["TRANSITLOG_REDIS_PASSWORD"] != "" {
		password = env["TRANSITLOG_REDIS_PASSWORD"]
	}

	if env["TRANSITLOG_REDIS_DATABASE"] != "" {
		if n, err := strconv.Atoi(env["TRANSITLOG_REDIS_DATABASE"]); err == nil {
			database = n
		} else {
			return err
		}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       database,
	})

	return ConnectWithClient(client)
}

// ConnectWithClient sets up the package connections on an existing client
func ConnectWithClient(client *redis.Client) error {
	if err := client.Ping(context.Background()).Err(); err != nil {
		return err
	}

	queueConnection, err := rmq.OpenConnectionWithRedisClient(queueConnectionTag, client, nil)
	if err != nil {
		return err
	}

	Client = client
	QueueConnection = queueConnection

	return nil
}
