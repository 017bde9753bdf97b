package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fitpulse/fitpulse-backend/internal/database"
	"github.com/fitpulse/fitpulse-backend/internal/models"
	"github.com/fitpulse/fitpulse-backend/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func jsonRequest(c *gin.Context, method, url string, payload interface{}) {
	body, _ := json.Marshal(payload)
	c.Request = httptest.NewRequest(method, url, bytes.NewBuffer(body))
	c.Request.Header.Set("Content-Type", "application/json")
}

func TestStartDirectThread_FirstContact(t *testing.T) {
	SetupTestDB()
	gin.SetMode(gin.TestMode)

	createTestUser("u1", "alice")
	createTestUser("u2", "bob")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("userId", "u1")
	jsonRequest(c, "POST", "/api/chat/start", gin.H{"userId": "u2", "text": "hello"})

	StartDirectThread(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Thread  models.Thread  `json:"thread"`
		Message models.Message `json:"message"`
	}
	json.Unmarshal(w.Body.Bytes(), &response)

	assert.NotEmpty(t, response.Thread.ID)
	assert.Equal(t, "hello", response.Message.Body)
	assert.Equal(t, "u1", response.Message.SenderID)

	var msgCount int64
	database.DB.Model(&models.Message{}).Where("thread_id = ?", response.Thread.ID).Count(&msgCount)
	assert.Equal(t, int64(1), msgCount)

	// Recipient has one unread, sender has zero.
	p2, err := services.ParticipantOf(response.Thread.ID, "u2")
	assert.NoError(t, err)
	unread2, _ := services.UnreadCount(response.Thread.ID, "u2", p2.LastReadMessageID)
	assert.Equal(t, int64(1), unread2)

	p1, _ := services.ParticipantOf(response.Thread.ID, "u1")
	unread1, _ := services.UnreadCount(response.Thread.ID, "u1", p1.LastReadMessageID)
	assert.Equal(t, int64(0), unread1)
}

func TestStartDirectThread_SelfRejected(t *testing.T) {
	SetupTestDB()
	gin.SetMode(gin.TestMode)

	createTestUser("u1", "alice")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("userId", "u1")
	jsonRequest(c, "POST", "/api/chat/start", gin.H{"userId": "u1"})

	StartDirectThread(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_participants")
}

func TestStartDirectThread_PairIdempotentAcrossOrders(t *testing.T) {
	SetupTestDB()
	gin.SetMode(gin.TestMode)

	createTestUser("u1", "alice")
	createTestUser("u2", "bob")

	first, err := services.ResolveOrCreateDirectThread("u1", "u2")
	assert.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := services.ResolveOrCreateDirectThread("u2", "u1")
		assert.NoError(t, err)
		assert.Equal(t, first.ID, again.ID)
	}

	var threadCount int64
	database.DB.Model(&models.Thread{}).Count(&threadCount)
	assert.Equal(t, int64(1), threadCount)
}

func TestGetThreadMessages_NonParticipantGets404(t *testing.T) {
	SetupTestDB()
	gin.SetMode(gin.TestMode)

	createTestUser("u1", "alice")
	createTestUser("u2", "bob")
	createTestUser("u3", "mallory")

	thread, _ := services.ResolveOrCreateDirectThread("u1", "u2")
	services.AppendMessage(thread.ID, "u1", "secret", nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("userId", "u3")
	c.Params = gin.Params{{Key: "id", Value: thread.ID}}
	c.Request = httptest.NewRequest("GET", "/api/chat/thread/"+thread.ID, nil)

	GetDirectThreadMessages(c)

	// Not-found, never forbidden: existence must not leak.
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMarkRead_IdempotentAndMonotonic(t *testing.T) {
	SetupTestDB()
	gin.SetMode(gin.TestMode)

	createTestUser("u1", "alice")
	createTestUser("u2", "bob")

	thread, _ := services.ResolveOrCreateDirectThread("u1", "u2")
	services.AppendMessage(thread.ID, "u1", "one", nil)
	services.AppendMessage(thread.ID, "u1", "two", nil)
	last, _ := services.AppendMessage(thread.ID, "u1", "three", nil)

	mark, err := services.MarkThreadRead(thread.ID, "u2")
	assert.NoError(t, err)
	assert.Equal(t, last.ID, mark)

	unread, _ := services.UnreadCount(thread.ID, "u2", mark)
	assert.Equal(t, int64(0), unread)

	// Second call is a no-op at the same mark.
	mark2, err := services.MarkThreadRead(thread.ID, "u2")
	assert.NoError(t, err)
	assert.Equal(t, mark, mark2)

	unread, _ = services.UnreadCount(thread.ID, "u2", mark2)
	assert.Equal(t, int64(0), unread)
}

func TestUnread_NeverReadingParticipantCountsOnlyPeerMessages(t *testing.T) {
	SetupTestDB()
	gin.SetMode(gin.TestMode)

	createTestUser("u1", "alice")
	createTestUser("u2", "bob")

	thread, _ := services.ResolveOrCreateDirectThread("u1", "u2")
	for i := 0; i < 4; i++ {
		services.AppendMessage(thread.ID, "u1", "from alice", nil)
	}
	for i := 0; i < 3; i++ {
		services.AppendMessage(thread.ID, "u2", "from bob", nil)
	}

	// u2 never reads: their own messages never count as unread.
	p2, _ := services.ParticipantOf(thread.ID, "u2")
	unread, _ := services.UnreadCount(thread.ID, "u2", p2.LastReadMessageID)
	assert.Equal(t, int64(4), unread)

	total, byThread, err := services.UnreadTotals("u2")
	assert.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.Equal(t, int64(4), byThread[thread.ID])
}

func TestMarkReadHandler_PushesAndReturnsMark(t *testing.T) {
	SetupTestDB()
	gin.SetMode(gin.TestMode)

	createTestUser("u1", "alice")
	createTestUser("u2", "bob")

	thread, _ := services.ResolveOrCreateDirectThread("u1", "u2")
	last, _ := services.AppendMessage(thread.ID, "u1", "read me", nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("userId", "u2")
	jsonRequest(c, "POST", "/api/chat/read", gin.H{"threadId": thread.ID})

	MarkRead(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var response struct {
		LastReadMessageID uint64 `json:"lastReadMessageId"`
	}
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Equal(t, last.ID, response.LastReadMessageID)
}

func TestSendDirectMessage_EmptyBodyRejected(t *testing.T) {
	SetupTestDB()
	gin.SetMode(gin.TestMode)

	createTestUser("u1", "alice")
	createTestUser("u2", "bob")
	thread, _ := services.ResolveOrCreateDirectThread("u1", "u2")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("userId", "u1")
	c.Params = gin.Params{{Key: "id", Value: thread.ID}}
	jsonRequest(c, "POST", "/api/chat/thread/"+thread.ID+"/send", gin.H{"text": "   "})

	SendDirectMessage(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "empty_message")
}

func TestListDirectThreads_OrderingAndSearch(t *testing.T) {
	SetupTestDB()
	gin.SetMode(gin.TestMode)

	createTestUser("me", "me")
	createTestUser("old", "old_friend")
	createTestUser("recent", "recent_friend")
	createTestUser("silent", "silent_friend")

	oldThread, _ := services.ResolveOrCreateDirectThread("me", "old")
	services.AppendMessage(oldThread.ID, "old", "about squats", nil)

	recentThread, _ := services.ResolveOrCreateDirectThread("me", "recent")
	services.AppendMessage(recentThread.ID, "recent", "about deadlifts", nil)

	// Thread with no messages sorts last.
	emptyThread, _ := services.ResolveOrCreateDirectThread("me", "silent")

	summaries, err := services.ListThreadSummaries("me", services.ListThreadFilter{BotThreads: false})
	assert.NoError(t, err)
	assert.Len(t, summaries, 3)
	assert.Equal(t, recentThread.ID, summaries[0].Thread.ID)
	assert.Equal(t, oldThread.ID, summaries[1].Thread.ID)
	assert.Equal(t, emptyThread.ID, summaries[2].Thread.ID)

	// Peer identity is attached for direct threads.
	assert.NotNil(t, summaries[0].Peer)
	assert.Equal(t, "recent", summaries[0].Peer.ID)

	// Search matches the latest message body, case-insensitively.
	filtered, err := services.ListThreadSummaries("me", services.ListThreadFilter{BotThreads: false, Search: "DEADLIFT"})
	assert.NoError(t, err)
	assert.Len(t, filtered, 1)
	assert.Equal(t, recentThread.ID, filtered[0].Thread.ID)
}
