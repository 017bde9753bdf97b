package handlers

import (
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/fitpulse/fitpulse-backend/internal/database"
	"github.com/fitpulse/fitpulse-backend/internal/models"
	"github.com/fitpulse/fitpulse-backend/pkg/logger"
	"github.com/fitpulse/fitpulse-backend/pkg/utils"
	"github.com/gin-gonic/gin"
	socketio "github.com/googollee/go-socket.io"
	"github.com/googollee/go-socket.io/engineio"
	"github.com/googollee/go-socket.io/engineio/transport"
	"github.com/googollee/go-socket.io/engineio/transport/polling"
	"github.com/googollee/go-socket.io/engineio/transport/websocket"
)

var SocketServer *socketio.Server

// Connection registry: user ID -> set of live socket IDs. A user may hold
// one connection per session/tab. Mutated by connect/disconnect, read by
// presence queries; fan-out itself goes through per-user rooms so a slow
// session never blocks the others.
var (
	connections   = make(map[string]map[string]bool)
	connectionsMu sync.RWMutex
)

// Typing throttle: track last typing emit per user to prevent spam
var (
	lastTypingEmit         = make(map[string]time.Time)
	lastTypingMu           sync.RWMutex
	typingThrottleDuration = 3 * time.Second
)

// GetOnlineUsers returns the IDs of users with at least one live connection.
func GetOnlineUsers() []string {
	connectionsMu.RLock()
	defer connectionsMu.RUnlock()

	users := make([]string, 0, len(connections))
	for userId := range connections {
		users = append(users, userId)
	}
	return users
}

// IsUserOnline checks if a user has any live connection.
func IsUserOnline(userId string) bool {
	connectionsMu.RLock()
	defer connectionsMu.RUnlock()
	return len(connections[userId]) > 0
}

func registerConnection(userId, socketId string) {
	connectionsMu.Lock()
	defer connectionsMu.Unlock()
	if connections[userId] == nil {
		connections[userId] = make(map[string]bool)
	}
	connections[userId][socketId] = true
}

// unregisterConnection removes one socket and reports whether it was the
// user's last one.
func unregisterConnection(userId, socketId string) bool {
	connectionsMu.Lock()
	defer connectionsMu.Unlock()
	if sessions, ok := connections[userId]; ok {
		delete(sessions, socketId)
		if len(sessions) == 0 {
			delete(connections, userId)
			return true
		}
	}
	return false
}

// EmitNewMessage fans a persisted message out to every listed user's
// sessions. Persistence always happens before this call; a user with no
// open connections simply misses the event and reconciles over REST.
func EmitNewMessage(msg *models.Message, userIDs ...string) {
	if SocketServer == nil {
		return
	}
	payload := map[string]interface{}{
		"type":     "chat:message:new",
		"threadId": msg.ThreadID,
		"message":  msg,
	}
	for _, uid := range userIDs {
		SocketServer.BroadcastToRoom("/", uid, "chat:message:new", payload)
	}
}

// EmitThreadRead notifies the listed users that a participant advanced
// their read mark. Best-effort; unread counts are derived, not cached.
func EmitThreadRead(threadID, readerID string, lastReadMessageID uint64, userIDs ...string) {
	if SocketServer == nil {
		return
	}
	payload := map[string]interface{}{
		"type":              "chat:thread:read",
		"threadId":          threadID,
		"readerId":          readerID,
		"lastReadMessageId": lastReadMessageID,
	}
	for _, uid := range userIDs {
		SocketServer.BroadcastToRoom("/", uid, "chat:thread:read", payload)
	}
}

// EmitUnreadTotal pushes a user's aggregate unread count to their own
// sessions, typically after they read a thread on another device.
func EmitUnreadTotal(userID string, total int64) {
	if SocketServer == nil {
		return
	}
	SocketServer.BroadcastToRoom("/", userID, "chat:unread", map[string]interface{}{
		"type":  "chat:unread",
		"total": total,
	})
}

// BroadcastPresenceUpdate broadcasts user online/offline status to all clients
func BroadcastPresenceUpdate(userId string, isOnline bool) {
	if SocketServer != nil {
		SocketServer.BroadcastToRoom("/", "presence", "presence_update", map[string]interface{}{
			"userId":   userId,
			"isOnline": isOnline,
		})
	}
}

// socketAuthUserID validates the token carried in the connection handshake
// query and returns the authenticated user.
func socketAuthUserID(u url.URL) (string, error) {
	token := u.Query().Get("token")
	if token == "" {
		return "", fmt.Errorf("authentication required")
	}
	claims, err := utils.ValidateToken(token)
	if err != nil {
		return "", fmt.Errorf("invalid token")
	}
	return claims.UserID, nil
}

func InitSocketServer() *socketio.Server {
	server := socketio.NewServer(&engineio.Options{
		Transports: []transport.Transport{
			&websocket.Transport{
				CheckOrigin: func(r *http.Request) bool { return true },
			},
			&polling.Transport{
				CheckOrigin: func(r *http.Request) bool { return true },
			},
		},
	})

	server.OnConnect("/", func(s socketio.Conn) error {
		s.SetContext("")

		// Authenticate exactly once, at connect time, with the same token
		// as the REST surface. No retry loop: a bad token closes the
		// connection with an auth error.
		userId, err := socketAuthUserID(s.URL())
		if err != nil {
			logger.Warn().Str("socketId", s.ID()).Err(err).Msg("Socket connection rejected")
			return err
		}
		s.SetContext(userId)

		registerConnection(userId, s.ID())

		// Personal room carries all chat events for this user's sessions.
		s.Join(userId)
		s.Join("presence")

		database.SetUserOnline(userId)
		BroadcastPresenceUpdate(userId, true)
		s.Emit("online_users", GetOnlineUsers())

		logger.Debug().Str("socketId", s.ID()).Str("userId", userId).Msg("Socket authenticated")
		return nil
	})

	server.OnEvent("/", "typing", func(s socketio.Conn, data map[string]interface{}) {
		recipientID, _ := data["recipientId"].(string)
		if recipientID == "" {
			return
		}

		senderID, _ := s.Context().(string)
		if senderID == "" {
			return
		}

		if !IsUserOnline(recipientID) {
			return
		}

		lastTypingMu.RLock()
		lastTime, exists := lastTypingEmit[senderID]
		lastTypingMu.RUnlock()

		if exists && time.Since(lastTime) < typingThrottleDuration {
			return
		}

		lastTypingMu.Lock()
		lastTypingEmit[senderID] = time.Now()
		lastTypingMu.Unlock()

		server.BroadcastToRoom("/", recipientID, "user_typing", map[string]interface{}{
			"userId":    senderID,
			"expiresAt": time.Now().Add(4 * time.Second).Unix(),
		})
	})

	server.OnEvent("/", "get_online_users", func(s socketio.Conn, msg string) {
		s.Emit("online_users", GetOnlineUsers())
	})

	server.OnDisconnect("/", func(s socketio.Conn, reason string) {
		userId, _ := s.Context().(string)
		if userId == "" {
			return
		}

		if lastSession := unregisterConnection(userId, s.ID()); lastSession {
			database.SetUserOffline(userId)
			BroadcastPresenceUpdate(userId, false)
		}
	})

	server.OnError("/", func(s socketio.Conn, e error) {
		logger.Warn().Err(e).Msg("Socket error")
	})

	go server.Serve()
	SocketServer = server
	return server
}

// Gin Handler to wrap Socket.io
func SocketHandler(server *socketio.Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		server.ServeHTTP(c.Writer, c.Request)
	}
}
