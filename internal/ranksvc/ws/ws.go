package ws

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/avvvet/cardfit-services/internal/comm"
)

// Processor turns one request envelope into its reply, or nil when the
// message type is not handled.
type Processor interface {
	Process(data []byte) *comm.WSMessage
}

// client serializes writes; a gorilla connection allows one writer at a time.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

type Ws struct {
	connMap  sync.Map // socketId -> *client
	proc     Processor
	upgrader websocket.Upgrader
}

// NewWs accepts upgrades from the given origins. An empty list or "*"
// accepts any origin.
func NewWs(proc Processor, origins []string) *Ws {
	return &Ws{
		proc: proc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(origins),
		},
	}
}

func checkOrigin(origins []string) func(r *http.Request) bool {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || len(allowed) == 0 || allowed["*"] || allowed[origin]
	}
}

// HandleWebSocket upgrades the request and serves rank messages on it until
// the client disconnects.
func (s *Ws) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the client
		log.Errorf("Failed to upgrade to WebSocket: %v", err)
		return
	}

	socketId := uuid.New().String()
	s.StoreConnection(socketId, conn)
	log.Infof("New WebSocket connection established: %s", socketId)

	go s.handleConnection(conn, socketId)
}

func (s *Ws) handleConnection(conn *websocket.Conn, socketId string) {
	defer func() {
		log.Infof("Closing WebSocket connection: %s", socketId)
		conn.Close()
		s.HandleDisconnect(socketId)
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Errorf("WebSocket unexpected close error for socket %s: %v", socketId, err)
			}
			return
		}
		s.SocketMessage(socketId, raw)
	}
}

// SocketMessage handles one client frame and writes the reply back to the
// same socket.
func (s *Ws) SocketMessage(socketId string, raw []byte) {
	message := &comm.WSMessage{}
	if err := json.Unmarshal(raw, message); err != nil {
		log.Warnf("Failed to unmarshal message from socket %s: %v", socketId, err)
		s.sendError(socketId, "invalid message format")
		return
	}
	log.Debugf("Received message from socket %s: type=%s", socketId, message.Type)

	message.SocketId = socketId
	payload, err := json.Marshal(message)
	if err != nil {
		s.sendError(socketId, err.Error())
		return
	}

	reply := s.proc.Process(payload)
	if reply == nil {
		s.sendError(socketId, "unsupported message type: "+message.Type)
		return
	}
	if err := s.Send(socketId, reply); err != nil {
		log.Errorf("Failed to send %s to socket %s: %v", reply.Type, socketId, err)
	}
}

func (s *Ws) sendError(socketId, msg string) {
	err := s.Send(socketId, map[string]string{"type": "error", "error": msg})
	if err != nil {
		log.Errorf("Failed to send error message to socket %s: %v", socketId, err)
	}
}

// Send writes v as JSON to the socket.
func (s *Ws) Send(socketId string, v any) error {
	c, ok := s.client(socketId)
	if !ok {
		return fmt.Errorf("socket %s not connected", socketId)
	}
	return c.write(v)
}

func (s *Ws) StoreConnection(socketId string, conn *websocket.Conn) {
	s.connMap.Store(socketId, &client{conn: conn})
}

func (s *Ws) GetConnection(socketId string) (*websocket.Conn, bool) {
	c, ok := s.client(socketId)
	if !ok {
		return nil, false
	}
	return c.conn, true
}

func (s *Ws) client(socketId string) (*client, bool) {
	c, ok := s.connMap.Load(socketId)
	if !ok {
		return nil, false
	}
	return c.(*client), true
}

func (s *Ws) HandleDisconnect(socketId string) {
	s.connMap.Delete(socketId)
}

// Count returns the number of open sockets.
func (s *Ws) Count() int {
	n := 0
	s.connMap.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// CloseAll sends a going-away close frame to every socket. Hijacked
// connections are not closed by http.Server.Shutdown.
func (s *Ws) CloseAll() {
	s.connMap.Range(func(key, value any) bool {
		c := value.(*client)
		c.mu.Lock()
		_ = c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "service shutting down"))
		c.mu.Unlock()
		c.conn.Close()
		return true
	})
}
