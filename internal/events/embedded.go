package events

import (
	"fmt"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
)

// embeddedReadyTimeout bounds how long we wait for the in-process NATS
// server to accept connections.
const embeddedReadyTimeout = 5 * time.Second

// StartEmbeddedServer runs an in-process NATS server for single-binary
// deployments where no external broker is configured. Pass port -1 for
// an ephemeral port (tests).
func StartEmbeddedServer(host string, port int) (*natsserver.Server, error) {
	opts := &natsserver.Options{
		Host:   host,
		Port:   port,
		NoLog:  true,
		NoSigs: true,
	}

	srv, err := natsserver.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("creating embedded nats server: %w", err)
	}

	go srv.Start()
	if !srv.ReadyForConnections(embeddedReadyTimeout) {
		srv.Shutdown()
		return nil, fmt.Errorf("embedded nats server not ready after %s", embeddedReadyTimeout)
	}
	return srv, nil
}
