package collaborators

import (
	"log"

	"github.com/gorilla/websocket"

	"topology-rewards-core/internal/registry"
)

// SnapshotUpdate is one incremental registry change delivered over the
// streaming connection: a node's health flipped, a subnet membership
// changed, or a new version was elected.
type SnapshotUpdate struct {
	NodePrincipal   *registry.PrincipalId   `json:"node_principal,omitempty"`
	Health          *registry.HealthStatus  `json:"health,omitempty"`
	SubnetPrincipal *registry.PrincipalId   `json:"subnet_principal,omitempty"`
	ElectedVersion  *string                 `json:"elected_version,omitempty"`
}

// StreamClient watches a registry-snapshot websocket feed and delivers
// decoded updates, so a long-running healer loop can react to health
// changes without re-fetching the whole snapshot every cycle.
type StreamClient struct {
	conn    *websocket.Conn
	updates chan SnapshotUpdate
}

// DialStream opens the feed and starts the read loop in the
// background; updates are delivered on Updates() until Close.
func DialStream(url string) (*StreamClient, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}
	c := &StreamClient{conn: conn, updates: make(chan SnapshotUpdate, 64)}
	go c.readLoop()
	return c, nil
}

func (c *StreamClient) readLoop() {
	defer close(c.updates)
	for {
		var update SnapshotUpdate
		if err := c.conn.ReadJSON(&update); err != nil {
			log.Printf("registry stream read error: %v", err)
			return
		}
		c.updates <- update
	}
}

// Updates returns the channel of decoded snapshot updates; it closes
// when the underlying connection drops.
func (c *StreamClient) Updates() <-chan SnapshotUpdate {
	return c.updates
}

func (c *StreamClient) Close() error {
	return c.conn.Close()
}
