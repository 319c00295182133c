package rabbit

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/spf13/viper"

	logging "reviewdesk/pkg/logger"
)

type Rabbit interface {
	Consume(ctx context.Context, consumeFunction func(ctx context.Context, msg amqp.Delivery) error) error
	Publish(ctx context.Context, body []byte) error
}

// Config is read from viper under "rabbitmq.*".
type Config struct {
	Address      string
	Port         int32
	Username     string
	Password     string
	ConsumeQueue string
	PublishQueue string
	MaxConsumer  int32
	ExpireTime   int32
}

type rabbit struct {
	connectionUrl string
	consumeQueue  string
	publishQueue  string
	maxConsumer   int32
	expireTime    int32
}

func ReadConfig() *Config {
	if !viper.GetBool("rabbitmq.enable") {
		return nil
	}
	return &Config{
		Address:      viper.GetString("rabbitmq.address"),
		Port:         viper.GetInt32("rabbitmq.port"),
		Username:     viper.GetString("rabbitmq.username"),
		Password:     viper.GetString("rabbitmq.password"),
		ConsumeQueue: viper.GetString("rabbitmq.consume_queue"),
		PublishQueue: viper.GetString("rabbitmq.publish_queue"),
		MaxConsumer:  viper.GetInt32("rabbitmq.max_consumer"),
		ExpireTime:   viper.GetInt32("rabbitmq.expire_time"),
	}
}

func New(cfg *Config) Rabbit {
	if cfg == nil {
		return &Dummy{}
	}

	connectionUrl := fmt.Sprintf("amqp://%s:%s@%s:%d/", cfg.Username, cfg.Password, cfg.Address, cfg.Port)
	return &rabbit{
		connectionUrl: connectionUrl,
		consumeQueue:  cfg.ConsumeQueue,
		publishQueue:  cfg.PublishQueue,
		maxConsumer:   cfg.MaxConsumer,
		expireTime:    cfg.ExpireTime,
	}
}

func (r *rabbit) processMessage(ctx context.Context, msg amqp.Delivery, sem chan struct{}, consumeFunction func(ctx context.Context, msg amqp.Delivery) error) {
	logging.Logger(ctx).Info(fmt.Sprintf("Received: %s", msg.Body))
	defer func() { <-sem }()

	if err := consumeFunction(ctx, msg); err != nil {
		logging.Logger(ctx).Error(fmt.Sprintf("Error: %s", err.Error()))
		msg.Nack(false, true)
	} else {
		logging.Logger(ctx).Info(fmt.Sprintf("Acknowledge: %s", msg.Body))
		msg.Ack(false)
	}
}

func (r *rabbit) Consume(ctx context.Context, consumeFunction func(ctx context.Context, msg amqp.Delivery) error) error {

	conn, err := amqp.Dial(r.connectionUrl)
	if err != nil {
		return err
	}
	defer conn.Close()

	logging.Logger(ctx).Info("Connected to RabbitMQ")

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	q, err := ch.QueueDeclare(r.consumeQueue, true, false, false, false, nil)
	if err != nil {
		return err
	}

	msgs, err := ch.Consume(q.Name, "", false, false, false, false, nil)
	if err != nil {
		return err
	}

	sem := make(chan struct{}, r.maxConsumer)

	for msg := range msgs {
		sem <- struct{}{}
		go r.processMessage(ctx, msg, sem, consumeFunction)
	}

	return nil
}

func (r *rabbit) Publish(ctx context.Context, body []byte) error {
	conn, err := amqp.Dial(r.connectionUrl)
	if err != nil {
		return err
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	q, err := ch.QueueDeclare(r.publishQueue, true, false, false, false, nil)
	if err != nil {
		return err
	}

	err = ch.Publish("", q.Name, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
		Expiration:  fmt.Sprintf("%d", r.expireTime),
	})
	if err != nil {
		return err
	}

	logging.Logger(ctx).Info(fmt.Sprintf("Sent: %s", string(body)))
	return nil
}
