package websocket

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rl-arena/trivia-arena-backend/pkg/distributed"
)

// Relay 다른 인스턴스에 접속한 플레이어에게 알림 전달 (Redis Pub/Sub)
type Relay interface {
	Publish(ctx context.Context, userID, msgType string, payload interface{}) error
}

// Hub WebSocket 연결 관리 및 플레이어 알림 전송
type Hub struct {
	// 사용자별 연결 저장 (userID -> *Client)
	clients map[string]*Client
	mu      sync.RWMutex

	outbound   chan *Message
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	relay          Relay
	allowedOrigins map[string]bool
	logger         *zap.Logger
}

// Message WebSocket 메시지
type Message struct {
	UserID  string      `json:"-"`
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// NewHub Hub 생성 (allowedOrigins 가 비어 있으면 모든 origin 허용)
func NewHub(logger *zap.Logger, allowedOrigins []string) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}

	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}

	return &Hub{
		clients:        make(map[string]*Client),
		outbound:       make(chan *Message, 256),
		register:       make(chan *Client),
		unregister:     make(chan *Client),
		done:           make(chan struct{}),
		allowedOrigins: origins,
		logger:         logger,
	}
}

// SetRelay 멀티 인스턴스 배포 시 Redis 릴레이 연결
func (h *Hub) SetRelay(relay Relay) {
	h.relay = relay
}

// Run ctx 가 끝날 때까지 등록/해제/전송 처리
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.outbound:
			h.deliver(message)

		case <-ctx.Done():
			h.closeAll()
			close(h.done)
			return
		}
	}
}

// registerClient 클라이언트 등록
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// 기존 연결이 있으면 닫기
	if oldClient, exists := h.clients[client.userID]; exists {
		close(oldClient.send)
		h.logger.Info("Replaced existing WebSocket connection",
			zap.String("userId", client.userID))
	}

	h.clients[client.userID] = client
	h.logger.Info("WebSocket client registered",
		zap.String("userId", client.userID),
		zap.Int("totalClients", len(h.clients)))
}

// unregisterClient 클라이언트 해제 (이미 교체된 연결은 무시)
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if current, exists := h.clients[client.userID]; exists && current == client {
		delete(h.clients, client.userID)
		close(client.send)
		h.logger.Info("WebSocket client unregistered",
			zap.String("userId", client.userID),
			zap.Int("totalClients", len(h.clients)))
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for userID, client := range h.clients {
		close(client.send)
		delete(h.clients, userID)
	}
}

func (h *Hub) deliver(message *Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	client, exists := h.clients[message.UserID]
	if !exists {
		return
	}
	select {
	case client.send <- message:
	default:
		h.logger.Warn("Client send channel full", zap.String("userId", message.UserID))
	}
}

// IsConnected 이 인스턴스에 연결되어 있는지
func (h *Hub) IsConnected(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[userID]
	return ok
}

// SendToUser 특정 사용자에게 메시지 전송
// 로컬 연결이 없으면 릴레이로 다른 인스턴스에 넘긴다. 호출자를 막지 않는다.
func (h *Hub) SendToUser(userID string, msgType string, payload interface{}) {
	if h.IsConnected(userID) {
		h.enqueue(&Message{UserID: userID, Type: msgType, Payload: payload})
		return
	}

	if h.relay == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := h.relay.Publish(ctx, userID, msgType, payload); err != nil {
		h.logger.Warn("Failed to relay notification",
			zap.String("userId", userID),
			zap.String("type", msgType),
			zap.Error(err))
	}
}

// DeliverRelayed 다른 인스턴스에서 넘어온 알림을 로컬 연결에 전달
func (h *Hub) DeliverRelayed(n distributed.Notification) {
	if !h.IsConnected(n.UserID) {
		return
	}
	h.enqueue(&Message{UserID: n.UserID, Type: n.Type, Payload: n.Payload})
}

func (h *Hub) enqueue(message *Message) {
	select {
	case h.outbound <- message:
	default:
		h.logger.Warn("Notification queue full, dropping message",
			zap.String("userId", message.UserID),
			zap.String("type", message.Type))
	}
}

func (h *Hub) originAllowed(origin string) bool {
	if origin == "" || len(h.allowedOrigins) == 0 {
		return true
	}
	return h.allowedOrigins[origin]
}
