package ws

import (
	"context"
	"sync"

	"dreamweaver_backend/internal/logger"
	"dreamweaver_backend/internal/metrics"
)

// ScribeManager держит по одной голосовой сессии на пользователя.
// Новое подключение того же пользователя закрывает предыдущее.
type ScribeManager struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
}

func NewScribeManager() *ScribeManager {
	return &ScribeManager{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run обслуживает регистрацию до отмены ctx, затем закрывает все сессии
func (manager *ScribeManager) Run(ctx context.Context) {
	defer func() {
		close(manager.done)
		manager.mu.Lock()
		for id, client := range manager.clients {
			go client.Close()
			delete(manager.clients, id)
		}
		manager.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-manager.register:
			manager.mu.Lock()
			if old, ok := manager.clients[client.ID]; ok {
				// Close шлет unregister, поэтому не из этого цикла
				go old.Close()
			}
			manager.clients[client.ID] = client
			total := len(manager.clients)
			manager.mu.Unlock()
			metrics.ScribeSessionOpened()
			logger.Info("Scribe client registered", "user_id", client.ID, "total", total)

		case client := <-manager.unregister:
			manager.mu.Lock()
			if current, ok := manager.clients[client.ID]; ok && current == client {
				delete(manager.clients, client.ID)
			}
			total := len(manager.clients)
			manager.mu.Unlock()
			metrics.ScribeSessionClosed()
			logger.Info("Scribe client unregistered", "user_id", client.ID, "total", total)
		}
	}
}

// Register возвращает false, если менеджер уже остановлен
func (manager *ScribeManager) Register(client *Client) bool {
	select {
	case manager.register <- client:
		return true
	case <-manager.done:
		return false
	}
}

func (manager *ScribeManager) Unregister(client *Client) {
	select {
	case manager.unregister <- client:
	case <-manager.done:
	}
}

// GetClientCount возвращает количество подключенных клиентов
func (manager *ScribeManager) GetClientCount() int {
	manager.mu.RLock()
	defer manager.mu.RUnlock()
	return len(manager.clients)
}

// IsClientConnected проверяет, подключен ли клиент
func (manager *ScribeManager) IsClientConnected(clientID string) bool {
	manager.mu.RLock()
	defer manager.mu.RUnlock()
	_, exists := manager.clients[clientID]
	return exists
}
