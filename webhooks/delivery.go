package webhooks

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-bankconnect/core"
)

// Delivery is one notification callback as received on the notify_uri
// endpoint. State carries the echo of the state string registered with the
// notification; ObservedPath names the resource collection that changed.
type Delivery struct {
	NotificationID string            `json:"notification_id"`
	ObserveKey     string            `json:"observe_key"`
	State          string            `json:"state"`
	ObservedPath   string            `json:"observed"`
	Body           []byte            `json:"-"`
	Headers        map[string]string `json:"-"`
	Metadata       map[string]any    `json:"-"`
}

// ParseDelivery decodes a callback body. The raw body is retained for dedupe
// hashing and handler consumption.
func ParseDelivery(body []byte, headers map[string]string) (Delivery, error) {
	var delivery Delivery
	if len(body) == 0 {
		return Delivery{}, goerrors.New("webhooks: delivery body is empty", goerrors.CategoryBadInput).
			WithTextCode(core.ErrorCodeJSON)
	}
	if err := json.Unmarshal(body, &delivery); err != nil {
		return Delivery{}, goerrors.Wrap(err, goerrors.CategoryBadInput, "webhooks: decode delivery body").
			WithTextCode(core.ErrorCodeJSON)
	}
	if strings.TrimSpace(delivery.NotificationID) == "" {
		return Delivery{}, goerrors.New("webhooks: delivery carries no notification id", goerrors.CategoryBadInput)
	}
	delivery.Body = body
	delivery.Headers = headers
	return delivery, nil
}

// DeliveryIDExtractor derives the dedupe key for one delivery.
type DeliveryIDExtractor func(delivery Delivery) (string, error)

// DefaultDeliveryIDExtractor prefers an explicit X-Delivery-Id header and
// falls back to a content hash; the server does not number its callbacks, so
// an identical redelivery hashes to the same key.
func DefaultDeliveryIDExtractor(delivery Delivery) (string, error) {
	for key, value := range delivery.Headers {
		if strings.EqualFold(strings.TrimSpace(key), "x-delivery-id") {
			if value = strings.TrimSpace(value); value != "" {
				return value, nil
			}
		}
	}
	if len(delivery.Body) == 0 {
		return "", goerrors.New("webhooks: delivery id is required for dedupe", goerrors.CategoryBadInput)
	}
	sum := sha256.Sum256(delivery.Body)
	return delivery.NotificationID + ":" + hex.EncodeToString(sum[:]), nil
}
