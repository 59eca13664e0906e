package rabbitmq

import (
	"fmt"

	"safetrail/internal/general/contracts"

	amqp "github.com/rabbitmq/amqp091-go"
)

func declareTopology(ch *amqp.Channel) error {
	exchanges := []struct {
		name string
		kind string
	}{
		{contracts.ExchangeAlertTopic, "topic"},
		{contracts.ExchangeLocationFanout, "fanout"},
	}
	for _, ex := range exchanges {
		if err := ch.ExchangeDeclare(ex.name, ex.kind, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare exchange %s: %w", ex.name, err)
		}
	}

	queues := []string{
		contracts.QueueAuthorityAlerts,
		contracts.QueueLocationAudit,
	}
	for _, q := range queues {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", q, err)
		}
	}

	bindings := []struct {
		queue      string
		exchange   string
		routingKey string
	}{
		{contracts.QueueAuthorityAlerts, contracts.ExchangeAlertTopic, contracts.RouteAlertPrefix + "*"},
		{contracts.QueueLocationAudit, contracts.ExchangeLocationFanout, ""},
	}
	for _, b := range bindings {
		if err := ch.QueueBind(b.queue, b.routingKey, b.exchange, false, nil); err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
		}
	}

	return nil
}
