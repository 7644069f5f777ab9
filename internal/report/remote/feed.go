package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/EventStore/EventStore-Client-Go/v4/esdb"
	"github.com/apex/log"
	"github.com/google/uuid"

	"github.com/nagrik-gov/portal/internal/shared/config"
)

// FeedStream is the single EventStoreDB stream carrying all row changes.
const FeedStream = "portal-row-changes"

// FeedHandler consumes one row event from the live feed.
type FeedHandler func(ctx context.Context, event RowEvent)

// Feed publishes and subscribes to row change events over EventStoreDB.
type Feed struct {
	client *esdb.Client
	origin string
	logger *log.Entry
}

// NewFeed connects to EventStoreDB. Origin identifies this portal instance
// on published events.
func NewFeed(cfg config.EventStoreConfig, origin string) (*Feed, error) {
	settings, err := esdb.ParseConnectionString(buildConnectionString(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	client, err := esdb.NewClient(settings)
	if err != nil {
		return nil, fmt.Errorf("failed to create EventStoreDB client: %w", err)
	}

	return &Feed{
		client: client,
		origin: origin,
		logger: log.WithField("component", "feed"),
	}, nil
}

// buildConnectionString creates the esdb:// connection string
func buildConnectionString(cfg config.EventStoreConfig) string {
	var auth string
	if cfg.Username != "" && cfg.Password != "" {
		auth = fmt.Sprintf("%s:%s@", cfg.Username, cfg.Password)
	}

	params := ""
	if cfg.Insecure {
		params = "?tls=false&tlsVerifyCert=false"
		params += "&keepAliveInterval=10000&keepAliveTimeout=10000&discoveryInterval=100&maxDiscoverAttempts=3&gossipTimeout=5"
	}

	return fmt.Sprintf("esdb://%s%s:%d%s", auth, cfg.Host, cfg.Port, params)
}

// Origin returns the instance identity stamped on published events.
func (f *Feed) Origin() string {
	return f.origin
}

// Publish appends one row event to the feed stream.
func (f *Feed) Publish(ctx context.Context, event RowEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	event.Origin = f.origin
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal row event: %w", err)
	}

	eventID, err := uuid.Parse(event.ID)
	if err != nil {
		eventID = uuid.New()
	}

	esdbEvent := esdb.EventData{
		EventType:   eventType(event),
		ContentType: esdb.ContentTypeJson,
		Data:        data,
		EventID:     eventID,
	}

	_, err = f.client.AppendToStream(ctx, FeedStream, esdb.AppendToStreamOptions{
		ExpectedRevision: esdb.Any{},
	}, esdbEvent)
	if err != nil {
		return fmt.Errorf("failed to publish row event: %w", err)
	}
	return nil
}

// eventType builds the event type string, e.g. portal.reports.insert.
func eventType(event RowEvent) string {
	return fmt.Sprintf("portal.%s.%s", event.Table, strings.ToLower(event.Op))
}

// Subscribe starts a live catch-up subscription from the end of the feed
// stream. Events published by this instance are skipped. The subscription
// runs until ctx is cancelled.
func (f *Feed) Subscribe(ctx context.Context, handler FeedHandler) error {
	sub, err := f.client.SubscribeToStream(ctx, FeedStream, esdb.SubscribeToStreamOptions{
		From: esdb.End{},
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to feed: %w", err)
	}

	go f.handleSubscription(ctx, sub, handler)
	return nil
}

// handleSubscription processes events from the catch-up subscription.
func (f *Feed) handleSubscription(ctx context.Context, sub *esdb.Subscription, handler FeedHandler) {
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		default:
			subEvent := sub.Recv()
			if subEvent.EventAppeared == nil {
				if subEvent.SubscriptionDropped != nil {
					f.logger.WithError(subEvent.SubscriptionDropped.Error).Warn("feed subscription dropped")
					return
				}
				time.Sleep(10 * time.Millisecond)
				continue
			}

			recorded := subEvent.EventAppeared.Event
			if recorded == nil {
				continue
			}
			if len(recorded.EventType) > 0 && recorded.EventType[0] == '$' {
				continue
			}

			var event RowEvent
			if err := json.Unmarshal(recorded.Data, &event); err != nil {
				f.logger.WithError(err).Warn("failed to decode row event")
				continue
			}

			// Skip our own echoes: the local store already holds the change.
			if event.Origin == f.origin {
				continue
			}

			handler(ctx, event)
		}
	}
}

// Close closes the feed connection.
func (f *Feed) Close() {
	if f.client != nil {
		f.client.Close()
	}
}

// Health checks the EventStoreDB connection.
func (f *Feed) Health() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := f.client.ReadStream(ctx, "$streams", esdb.ReadStreamOptions{
		From:      esdb.Start{},
		Direction: esdb.Forwards,
	}, 1)
	if err != nil {
		return fmt.Errorf("EventStoreDB health check failed: %w", err)
	}
	defer stream.Close()

	return nil
}
