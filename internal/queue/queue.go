package queue

import (
	"fmt"

	"github.com/rabbitmq/amqp091-go"

	"github.com/WSG23/optimal-build-sub005/internal/util"
	"github.com/WSG23/optimal-build-sub005/pkg/logger"
)

// ExportQueue carries export jobs; the retry queue dead-letters back onto it
// after a TTL, failed-for-good jobs land on the DLQ.
const (
	ExportQueue      = "export_queue"
	ExportRetryQueue = ExportQueue + "_retry"
	ExportDLQ        = ExportQueue + "_dlq"

	retryDelayMs = 10000
)

func Init() *amqp091.Connection {
	user := util.GetEnv("RABBITMQ_USER")
	pass := util.GetEnv("RABBITMQ_PASSWORD")
	host := util.GetEnv("RABBITMQ_HOST")
	port := util.GetEnv("RABBITMQ_PORT")

	connURL := fmt.Sprintf(
		"amqp://%s:%s@%s:%s/",
		user,
		pass,
		host,
		port,
	)

	conn, err := amqp091.Dial(connURL)
	if err != nil {
		logger.Fatal("Failed to connect to RabbitMQ", "err", err)
	}

	return conn
}

// SetupQueues declares the export queue with its DLQ and retry companions.
func SetupQueues(ch *amqp091.Channel) error {
	_, err := ch.QueueDeclare(
		ExportQueue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to declare %s: %w", ExportQueue, err)
	}

	_, err = ch.QueueDeclare(
		ExportDLQ,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare %s: %w", ExportDLQ, err)
	}

	_, err = ch.QueueDeclare(
		ExportRetryQueue,
		true,
		false,
		false,
		false,
		amqp091.Table{
			"x-message-ttl":             int32(retryDelayMs),
			"x-dead-letter-exchange":    "",
			"x-dead-letter-routing-key": ExportQueue,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to declare %s: %w", ExportRetryQueue, err)
	}

	return nil
}

// Publish sends a persistent message to the named queue.
func Publish(ch *amqp091.Channel, queueName string, data []byte) error {
	err := ch.Publish(
		"",
		queueName,
		false,
		false,
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Body:         data,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", queueName, err)
	}
	return nil
}
