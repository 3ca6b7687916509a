package realtime

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"storefront-checkout/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	pongWait   = 60 * time.Second
	sendBuffer = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Mensajes del cliente: {"event":"join_admin"}
type clientMessage struct {
	Event string `json:"event"`
}

type serverMessage struct {
	Event   string `json:"event"`
	Room    string `json:"room,omitempty"`
	Message string `json:"message,omitempty"`
}

// ServeWS autentica por ?token= o header Authorization y espera el join a la sala admin.
func ServeWS(hub *Hub, auth *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			token = strings.TrimSpace(strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer "))
		}
		user, err := auth.ValidateToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		client := &Client{
			UserID:  user.ID,
			IsAdmin: user.IsAdmin(),
			Send:    make(chan []byte, sendBuffer),
		}
		hub.Register(client)
		defer client.Close()

		go writePump(client, conn)
		readPump(hub, client, conn)
	}
}

func readPump(hub *Hub, c *Client, conn *websocket.Conn) {
	conn.SetReadLimit(4096)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg clientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			reply(c, serverMessage{Event: "error", Message: "invalid message"})
			continue
		}

		switch msg.Event {
		case "join_admin":
			if !c.IsAdmin {
				reply(c, serverMessage{Event: "error", Message: "admin privileges required"})
				continue
			}
			hub.Join(c, AdminRoom)
			reply(c, serverMessage{Event: "joined", Room: AdminRoom})
		default:
			reply(c, serverMessage{Event: "error", Message: "unknown event"})
		}
	}
}

func reply(c *Client, msg serverMessage) {
	data, _ := json.Marshal(msg)
	c.trySend(data)
}

// writePump copia los mensajes de client.Send a la conexión.
func writePump(c *Client, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-c.Send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
