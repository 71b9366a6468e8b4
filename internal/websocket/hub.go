package notifyws

import (
	"encoding/json"
	"log"
	"strconv"
	"time"

	websocket "github.com/gofiber/contrib/websocket"

	"github.com/customadesign/acfl-booking-api/internal/models"
)

// EnvelopeVersion is bumped whenever the notification payload shape changes
// incompatibly, so clients can dispatch on (type, version).
const EnvelopeVersion = 1

// Envelope is the discriminated-union message pushed to connected portals.
// Type names the event (booking.requested, booking.accepted, ...).
type Envelope struct {
	Type    string                 `json:"type"`
	Version int                    `json:"version"`
	SentAt  string                 `json:"sent_at"`
	Booking *models.BookingRequest `json:"booking,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

type notification struct {
	userID   string
	envelope Envelope
}

type Hub struct {
	clients    map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan notification
}

type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID string
	send   chan []byte
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan notification, 64),
	}
}

func NewClient(hub *Hub, conn *websocket.Conn, userID string) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, 32),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			set, ok := h.clients[client.userID]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[client.userID] = set
			}
			set[client] = struct{}{}
		case client := <-h.unregister:
			set, ok := h.clients[client.userID]
			if !ok {
				continue
			}
			if _, exists := set[client]; exists {
				delete(set, client)
				close(client.send)
			}
			if len(set) == 0 {
				delete(h.clients, client.userID)
			}
		case message := <-h.broadcast:
			h.deliver(message)
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// NotifyBookingUpdate pushes a booking lifecycle envelope to every open
// connection of the given user. Delivery is best effort; slow consumers are
// dropped rather than blocking the hub.
func (h *Hub) NotifyBookingUpdate(userID int64, request *models.BookingRequest, event string) {
	h.broadcast <- notification{
		userID: strconv.FormatInt(userID, 10),
		envelope: Envelope{
			Type:    event,
			Version: EnvelopeVersion,
			SentAt:  time.Now().UTC().Format(time.RFC3339),
			Booking: request,
		},
	}
}

func (h *Hub) deliver(message notification) {
	encoded, err := json.Marshal(message.envelope)
	if err != nil {
		log.Printf("notify hub encode envelope: %v", err)
		return
	}
	h.sendToUser(message.userID, encoded)
}

func (h *Hub) sendToUser(userID string, payload []byte) {
	set, ok := h.clients[userID]
	if !ok {
		return
	}

	for client := range set {
		select {
		case client.send <- payload:
		default:
			delete(set, client)
			close(client.send)
		}
	}
	if len(set) == 0 {
		delete(h.clients, userID)
	}
}

// ReadPump drains the connection until the client disconnects. The stream is
// push-only; anything the client sends is ignored.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) WritePump() {
	defer func() {
		_ = c.conn.Close()
	}()

	for payload := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}
