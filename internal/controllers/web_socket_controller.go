package controllers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"fuel_tracker/internal/fuel"
	"fuel_tracker/internal/models"
)

// writeWait bounds a single push so a stalled client cannot hold up the others.
const writeWait = 5 * time.Second

// upgrader configures the WebSocket connection.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // dashboards are served from other origins
	},
}

// TransactionHub pushes transaction updates to connected dashboards.
// Clients register under a bowser id; 0 means "all bowsers".
type TransactionHub struct {
	mu        sync.Mutex
	clients   map[uint]map[*websocket.Conn]bool
	broadcast chan models.Transaction
	done      chan struct{}
}

// NewTransactionHub creates a hub and starts its broadcast loop.
func NewTransactionHub() *TransactionHub {
	hub := &TransactionHub{
		clients:   make(map[uint]map[*websocket.Conn]bool),
		broadcast: make(chan models.Transaction, 100),
		done:      make(chan struct{}),
	}
	go hub.run()
	return hub
}

func (h *TransactionHub) run() {
	for {
		select {
		case <-h.done:
			return
		case tx := <-h.broadcast:
			h.send(tx)
		}
	}
}

func (h *TransactionHub) send(tx models.Transaction) {
	h.mu.Lock()
	type target struct {
		bowserID uint
		conn     *websocket.Conn
	}
	var targets []target
	for _, id := range []uint{0, tx.BowserID} {
		for conn := range h.clients[id] {
			targets = append(targets, target{id, conn})
		}
		if tx.BowserID == 0 {
			break
		}
	}
	h.mu.Unlock()

	msg := gin.H{"type": "transaction", "transaction": tx}
	for _, t := range targets {
		t.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := t.conn.WriteJSON(msg); err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"transaction_id": tx.ID,
				"conn_ptr":       fmt.Sprintf("%p", t.conn),
			}).Warn("Failed to send transaction update to client; dropping it.")
			h.UnregisterClient(t.bowserID, t.conn)
			t.conn.Close()
		}
	}
}

// Close stops the broadcast loop and drops every client.
func (h *TransactionHub) Close() {
	close(h.done)
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, conns := range h.clients {
		for conn := range conns {
			conn.Close()
		}
	}
	h.clients = make(map[uint]map[*websocket.Conn]bool)
}

func (h *TransactionHub) RegisterClient(bowserID uint, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[bowserID] == nil {
		h.clients[bowserID] = make(map[*websocket.Conn]bool)
	}
	h.clients[bowserID][conn] = true
	logrus.WithFields(logrus.Fields{
		"bowser_id": bowserID,
		"conn_ptr":  fmt.Sprintf("%p", conn),
	}).Info("Client registered with TransactionHub.")
}

func (h *TransactionHub) UnregisterClient(bowserID uint, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.clients[bowserID]; ok {
		delete(clients, conn)
		if len(clients) == 0 {
			delete(h.clients, bowserID)
		}
	}
	logrus.WithFields(logrus.Fields{
		"bowser_id": bowserID,
		"conn_ptr":  fmt.Sprintf("%p", conn),
	}).Info("Client unregistered from TransactionHub.")
}

// ClientCount is the number of connected dashboards.
func (h *TransactionHub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, conns := range h.clients {
		n += len(conns)
	}
	return n
}

// Publish queues a tick's opened and closed transactions. It never blocks
// the tick; when the buffer is full updates are dropped.
func (h *TransactionHub) Publish(_ context.Context, ch fuel.Changes) error {
	for _, tx := range ch.Transactions {
		select {
		case h.broadcast <- tx:
		default:
			logrus.WithField("transaction_id", tx.ID).Warn("Transaction broadcast channel full, dropping update.")
		}
	}
	return nil
}

// HandleTransactionWebSocket streams transaction updates. The optional
// bowser_id query parameter limits the stream to one bowser.
func (h *Handler) HandleTransactionWebSocket(c *gin.Context) {
	var bowserID uint
	if raw := c.Query("bowser_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid bowser_id"})
			return
		}
		bowserID = uint(id)
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Error("Failed to upgrade WebSocket connection.")
		return
	}
	defer conn.Close()

	h.hub.RegisterClient(bowserID, conn)
	defer h.hub.UnregisterClient(bowserID, conn)

	// Dashboards only listen; reading keeps the close handshake working.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.WithField("bowser_id", bowserID).Info("Transaction WebSocket closed.")
			} else {
				logrus.WithError(err).WithField("bowser_id", bowserID).Warn("Error reading from transaction WebSocket.")
			}
			return
		}
		logrus.WithField("bowser_id", bowserID).Debug("Client sent unexpected message. Ignoring.")
	}
}
