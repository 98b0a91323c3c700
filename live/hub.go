package live

import (
	"encoding/json"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/futsal-hq/match-tracker/models"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// WebSocketMessage — конверт для зрителей. Type: "matchUpdate" (полный
// снимок матча после любой мутации) или "newEvent" (только что добавленное
// событие журнала).
type WebSocketMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
	RoomID  string      `json:"room_id,omitempty"`
}

type Client struct {
	Hub      *Hub
	Conn     *websocket.Conn
	Send     chan []byte
	Room     string
	IsClosed bool
	Mu       sync.Mutex
}

// Hub раскладывает зрителей по комнатам, по одной на матч. Доставка
// best-effort: отставший клиент пропускает сообщения, рассылку он не
// блокирует и её результат не меняет.
type Hub struct {
	Register   chan *Client
	Unregister chan *Client
	rooms      map[string]map[*Client]bool
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		rooms:      make(map[string]map[*Client]bool),
	}
}

// MatchRoom возвращает идентификатор комнаты матча.
func MatchRoom(matchID int) string {
	return "match_" + strconv.Itoa(matchID)
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			if _, ok := h.rooms[client.Room]; !ok {
				h.rooms[client.Room] = make(map[*Client]bool)
			}
			h.rooms[client.Room][client] = true
			log.Printf("Client registered to room %s. Total clients in room: %d", client.Room, len(h.rooms[client.Room]))
			h.mu.Unlock()

		case client := <-h.Unregister:
			h.mu.Lock()
			if roomClients, ok := h.rooms[client.Room]; ok {
				if _, okClient := roomClients[client]; okClient {
					client.Mu.Lock()
					if !client.IsClosed {
						close(client.Send)
						client.IsClosed = true
					}
					client.Mu.Unlock()
					delete(roomClients, client)
					if len(roomClients) == 0 {
						delete(h.rooms, client.Room)
						log.Printf("Room %s closed as it's empty.", client.Room)
					} else {
						log.Printf("Client unregistered from room %s. Total clients in room: %d", client.Room, len(roomClients))
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

// BroadcastMatchUpdate рассылает полный снимок матча всем его зрителям.
func (h *Hub) BroadcastMatchUpdate(matchID int, match *models.Match) {
	h.broadcastToRoom(MatchRoom(matchID), WebSocketMessage{
		Type:    "matchUpdate",
		Payload: match,
		RoomID:  MatchRoom(matchID),
	})
}

// BroadcastNewEvent рассылает добавленное событие журнала.
func (h *Hub) BroadcastNewEvent(matchID int, event *models.MatchEvent) {
	h.broadcastToRoom(MatchRoom(matchID), WebSocketMessage{
		Type:    "newEvent",
		Payload: event,
		RoomID:  MatchRoom(matchID),
	})
}

// RoomSize возвращает число подключённых зрителей матча.
func (h *Hub) RoomSize(matchID int) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[MatchRoom(matchID)])
}

// broadcastToRoom отправляет сообщение по снимку состава комнаты: список
// получателей фиксируется под блокировкой, сама отправка идёт без неё,
// поэтому подключения и отключения не конфликтуют с рассылкой.
func (h *Hub) broadcastToRoom(roomID string, message interface{}) {
	messageBytes, err := json.Marshal(message)
	if err != nil {
		log.Printf("Error marshalling message for room %s: %v", roomID, err)
		return
	}

	h.mu.RLock()
	roomClients := make([]*Client, 0, len(h.rooms[roomID]))
	for client := range h.rooms[roomID] {
		roomClients = append(roomClients, client)
	}
	h.mu.RUnlock()

	if len(roomClients) == 0 {
		return
	}

	for _, client := range roomClients {
		client.Mu.Lock()
		if client.IsClosed {
			client.Mu.Unlock()
			continue
		}
		select {
		case client.Send <- messageBytes:
		default:
			// Канал клиента полон: зритель отстал, сообщение пропускается.
			log.Printf("Client's send channel full for room %s. Skipping.", roomID)
		}
		client.Mu.Unlock()
	}
}

func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		// Зрители ничего не присылают; читаем только ради pong и закрытия.
		_, _, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("error: %v", err)
			}
			log.Printf("Client in room %s disconnected: %v", c.Room, err)
			break
		}
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			n := len(c.Send)
			for i := 0; i < n; i++ {
				w.Write(<-c.Send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
