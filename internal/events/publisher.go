package events

import (
	"fmt"
	"log/slog"

	"github.com/delordemm1/go-identity-core/internal/config"
)

// New builds the publisher selected by cfg.Driver.
func New(cfg config.EventsConfig, log *slog.Logger) (Publisher, error) {
	switch cfg.Driver {
	case "", "log":
		return NewLogPublisher(log), nil
	case "kafka":
		return NewKafkaPublisher(cfg.Brokers(), cfg.KafkaTopic)
	case "rabbitmq":
		return NewRabbitPublisher(cfg.RabbitURL, cfg.RabbitExchange)
	default:
		return nil, fmt.Errorf("unknown events driver %q", cfg.Driver)
	}
}
