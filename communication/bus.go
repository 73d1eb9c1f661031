package communication

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
)

// NATS subjects for library events.
const (
	SubjectTraitLearned      = "felix.traits.learned"
	SubjectAnalysisCompleted = "felix.analyses.completed"
)

// Bus publishes library events over NATS. When no external URL is
// configured it runs an embedded nats-server so the service stays
// self-contained.
type Bus struct {
	conn   *nats.Conn
	server *natsserver.Server
}

// ConnectBus connects to the NATS server at url, or starts an embedded
// server when url is empty.
func ConnectBus(url string) (*Bus, error) {
	b := &Bus{}

	if url == "" {
		srv, err := natsserver.NewServer(&natsserver.Options{
			Host:   "127.0.0.1",
			Port:   -1, // random port
			NoSigs: true,
			NoLog:  true,
		})
		if err != nil {
			return nil, fmt.Errorf("starting embedded nats: %w", err)
		}
		go srv.Start()
		if !srv.ReadyForConnections(5 * time.Second) {
			srv.Shutdown()
			return nil, fmt.Errorf("embedded nats not ready")
		}
		b.server = srv
		url = srv.ClientURL()
		log.Printf("Embedded NATS listening at %s", url)
	}

	conn, err := nats.Connect(url, nats.Timeout(10*time.Second))
	if err != nil {
		if b.server != nil {
			b.server.Shutdown()
		}
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}
	b.conn = conn
	return b, nil
}

// Publish sends v as JSON on the given subject. Event delivery is best
// effort; the analysis result does not depend on it.
func (b *Bus) Publish(subject string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}
	return b.conn.Publish(subject, data)
}

// Subscribe registers a callback for a subject. Exposed for consumers
// embedded in the same process (and for tests).
func (b *Bus) Subscribe(subject string, cb nats.MsgHandler) (*nats.Subscription, error) {
	return b.conn.Subscribe(subject, cb)
}

// Close drains the connection and stops the embedded server if one is
// running.
func (b *Bus) Close() {
	if b.conn != nil {
		b.conn.Close()
	}
	if b.server != nil {
		b.server.Shutdown()
	}
}
