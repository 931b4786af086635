package ws

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/vnkhanh/dspace-ocr-admin/models"
)

type Client struct {
	ID   string
	Conn *websocket.Conn
	Send chan []byte
}

// Hub giữ các client đang xem trang danh sách job.
// Chỉ có broadcast global — trạng thái job nào đổi cũng đáng hiển thị trên danh sách.
type Hub struct {
	Clients map[*websocket.Conn]*Client
	Mutex   sync.RWMutex
}

var H = Hub{
	Clients: make(map[*websocket.Conn]*Client),
}

// Register thêm client mới và khởi động read/write pump
func (h *Hub) Register(conn *websocket.Conn) {
	h.Mutex.Lock()
	defer h.Mutex.Unlock()

	client := &Client{
		ID:   uuid.NewString(),
		Conn: conn,
		Send: make(chan []byte, 256),
	}
	h.Clients[conn] = client
	log.Printf("WebSocket client %s kết nối, tổng %d", client.ID, len(h.Clients))

	// handler giữ vòng đọc, hub chỉ lo ghi
	go h.writePump(conn, client)
}

// Unregister đóng channel và gỡ client
func (h *Hub) Unregister(conn *websocket.Conn) {
	h.Mutex.Lock()
	defer h.Mutex.Unlock()

	if client, ok := h.Clients[conn]; ok {
		close(client.Send)
		delete(h.Clients, conn)
		log.Printf("WebSocket client %s ngắt kết nối, còn %d", client.ID, len(h.Clients))
	}
}

// Broadcast gửi message cho toàn bộ client, client chậm thì drop message
func (h *Hub) Broadcast(data []byte) {
	h.Mutex.RLock()
	defer h.Mutex.RUnlock()

	for _, client := range h.Clients {
		select {
		case client.Send <- data:
		default:
		}
	}
}

// GetStats trả số client đang kết nối (cho health check)
func (h *Hub) GetStats() map[string]int {
	h.Mutex.RLock()
	defer h.Mutex.RUnlock()
	return map[string]int{"clients": len(h.Clients)}
}

// BroadcastJobUpdate phát delta trạng thái của một job
func BroadcastJobUpdate(update models.JobUpdate) {
	payload := struct {
		Type string `json:"type"`
		models.JobUpdate
	}{Type: "job_update", JobUpdate: update}

	data, err := json.Marshal(payload)
	if err != nil {
		log.Println("JSON marshal error:", err)
		return
	}
	H.Broadcast(data)
}

// BroadcastJobListChanged báo trang danh sách cần fetch lại (job mới/bị xóa)
func BroadcastJobListChanged() {
	H.Broadcast([]byte(`{"type": "job_list_changed"}`))
}

func (h *Hub) writePump(conn *websocket.Conn, client *Client) {
	defer func() {
		conn.WriteMessage(websocket.CloseMessage, []byte{})
		conn.Close()
	}()
	for msg := range client.Send {
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			break
		}
	}
}
