package feed

import (
	"context"

	"beermap/internal/models"

	"go.uber.org/zap"
)

// Source is one configured feed: where it lives, how its rows decode and
// which message a failed fetch carries.
type Source[T any] struct {
	client  *Client
	url     string
	message string
	decode  Decoder[T]
}

func NewSource[T any](client *Client, url, message string, decode Decoder[T]) *Source[T] {
	return &Source[T]{client: client, url: url, message: message, decode: decode}
}

// NewShopSource returns the shop feed at url.
func NewShopSource(client *Client, url string) *Source[models.Shop] {
	return NewSource(client, url, ShopFetchMessage, ShopDecoder)
}

// NewEventSource returns the event feed at url.
func NewEventSource(client *Client, url string) *Source[models.Event] {
	return NewSource(client, url, EventFetchMessage, EventDecoder)
}

func (s *Source[T]) URL() string { return s.url }

// Load fetches, parses and validates the feed. Any error is terminal for
// the attempt and no partial list is returned.
func (s *Source[T]) Load(ctx context.Context) ([]T, error) {
	body, err := s.client.Fetch(ctx, s.url, s.message)
	if err != nil {
		return nil, err
	}
	rows, err := Parse(body)
	if err != nil {
		return nil, err
	}
	records := Decode(rows, s.decode)
	s.client.log.Debug("feed decoded",
		zap.String("url", s.url),
		zap.Int("rows", len(rows)),
		zap.Int("kept", len(records)))
	return records, nil
}
