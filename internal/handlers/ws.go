package handlers

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/terminal-bench/timevault/pkg/messaging"
)

// EventFeed broadcasts every published vault event to connected websocket
// clients. It implements messaging.Publisher so it can join the fanout
// alongside NATS and the journal.
type EventFeed struct {
	mu       sync.Mutex
	clients  map[*feedClient]struct{}
	upgrader websocket.Upgrader
}

type feedClient struct {
	conn *websocket.Conn
	send chan []byte
}

// NewEventFeed creates an empty feed.
func NewEventFeed() *EventFeed {
	return &EventFeed{
		clients: make(map[*feedClient]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Publish broadcasts the event. Slow clients are dropped rather than
// allowed to block the hot path.
func (f *EventFeed) Publish(evt messaging.Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for client := range f.clients {
		select {
		case client.send <- data:
		default:
			close(client.send)
			delete(f.clients, client)
		}
	}
	return nil
}

// Handle upgrades the request and streams events until the client leaves.
func (f *EventFeed) Handle(c *gin.Context) {
	conn, err := f.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	client := &feedClient{conn: conn, send: make(chan []byte, 64)}
	f.mu.Lock()
	f.clients[client] = struct{}{}
	f.mu.Unlock()

	go f.writeLoop(client)
	f.readLoop(client)
}

func (f *EventFeed) writeLoop(client *feedClient) {
	defer client.conn.Close()
	for message := range client.send {
		if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
}

// readLoop discards inbound frames; it exists to notice disconnects.
func (f *EventFeed) readLoop(client *feedClient) {
	defer func() {
		f.mu.Lock()
		if _, ok := f.clients[client]; ok {
			close(client.send)
			delete(f.clients, client)
		}
		f.mu.Unlock()
		client.conn.Close()
	}()

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// ClientCount reports the number of connected clients.
func (f *EventFeed) ClientCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.clients)
}
