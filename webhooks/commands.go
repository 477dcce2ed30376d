package webhooks

import (
	"context"
	"strings"

	gocmd "github.com/goliatone/go-command"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	goerrors "github.com/goliatone/go-errors"
)

const TypeNotificationReceived = "bankconnect.notification.received"

// NotificationReceivedMessage carries one parsed delivery onto the command
// bus, decoupling the HTTP receiver from delivery processing.
type NotificationReceivedMessage struct {
	Delivery Delivery
}

func (NotificationReceivedMessage) Type() string { return TypeNotificationReceived }

func (m NotificationReceivedMessage) Validate() error {
	if strings.TrimSpace(m.Delivery.NotificationID) == "" {
		return goerrors.New("webhooks: notification id is required", goerrors.CategoryBadInput)
	}
	return nil
}

type ProcessDeliveryCommand struct {
	processor *Processor
}

func NewProcessDeliveryCommand(processor *Processor) *ProcessDeliveryCommand {
	return &ProcessDeliveryCommand{processor: processor}
}

func (c *ProcessDeliveryCommand) Execute(ctx context.Context, msg NotificationReceivedMessage) error {
	if c == nil || c.processor == nil {
		return goerrors.New("webhooks: delivery processor is required", goerrors.CategoryInternal)
	}
	_, err := c.processor.Process(ctx, msg.Delivery)
	return err
}

// Subscribe registers the delivery command on the dispatcher and returns its
// subscription handle.
func Subscribe(processor *Processor) commanddispatcher.Subscription {
	return commanddispatcher.SubscribeCommand(NewProcessDeliveryCommand(processor))
}

// Dispatch publishes one received delivery onto the command bus.
func Dispatch(ctx context.Context, delivery Delivery) error {
	return commanddispatcher.Dispatch(ctx, NotificationReceivedMessage{Delivery: delivery})
}

var _ gocmd.Commander[NotificationReceivedMessage] = (*ProcessDeliveryCommand)(nil)
