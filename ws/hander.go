package ws

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // chỉ để phát triển, nên giới hạn ở production
	},
}

// gửi message dạng JSON qua WebSocket
func sendJSON(conn *websocket.Conn, data interface{}) {
	msg, err := json.Marshal(data)
	if err != nil {
		log.Println("Lỗi JSON marshal:", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		log.Println("Lỗi gửi message:", err)
	}
}

// HandleJobsWebSocket stream delta trạng thái job cho trang danh sách.
// Yêu cầu session cookie DSpace — không có thì từ chối trước khi upgrade.
func HandleJobsWebSocket(c *gin.Context) {
	if _, err := c.Cookie("JSESSIONID"); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Chưa đăng nhập DSpace"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Println("WebSocket upgrade thất bại:", err)
		return
	}
	H.Register(conn)
	defer H.Unregister(conn)

	log.Println("Jobs WS connected")
	sendJSON(conn, gin.H{"type": "connected", "message": "Connected to jobs stream"})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	log.Println("Jobs WS disconnected")
	conn.Close()
}
