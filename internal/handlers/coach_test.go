package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fitpulse/fitpulse-backend/internal/config"
	"github.com/fitpulse/fitpulse-backend/internal/database"
	"github.com/fitpulse/fitpulse-backend/internal/models"
	"github.com/fitpulse/fitpulse-backend/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

// fakeGenerationServer emulates the OpenAI-compatible chat completion
// endpoint with a canned reply.
func fakeGenerationServer(t *testing.T, reply string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":     "chatcmpl-test",
			"object": "chat.completion",
			"model":  "gpt-4o-mini",
			"choices": []map[string]interface{}{
				{
					"index":         0,
					"message":       map[string]string{"role": "assistant", "content": reply},
					"finish_reason": "stop",
				},
			},
		})
	}))
}

func pointCoachAt(baseURL string) {
	config.AppConfig.OpenAIBaseURL = baseURL
	services.InitCoach()
}

func sendCoachTurn(t *testing.T, userID, threadID, text string) (*httptest.ResponseRecorder, struct {
	MessageUser models.Message `json:"messageUser"`
	MessageBot  models.Message `json:"messageBot"`
	BotUserID   string         `json:"botUserId"`
	ThreadTitle string         `json:"threadTitle"`
}) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("userId", userID)
	c.Params = gin.Params{{Key: "id", Value: threadID}}
	jsonRequest(c, "POST", "/api/coach/thread/"+threadID+"/send", gin.H{"text": text})

	SendCoachMessage(c)

	var response struct {
		MessageUser models.Message `json:"messageUser"`
		MessageBot  models.Message `json:"messageBot"`
		BotUserID   string         `json:"botUserId"`
		ThreadTitle string         `json:"threadTitle"`
	}
	json.Unmarshal(w.Body.Bytes(), &response)
	return w, response
}

func TestSendCoachMessage_ReplyAndTitle(t *testing.T) {
	SetupTestDB()
	gin.SetMode(gin.TestMode)

	srv := fakeGenerationServer(t, "Start with five minutes of light cardio.")
	defer srv.Close()
	pointCoachAt(srv.URL + "/v1")

	createTestUser("u1", "alice")
	thread, err := services.CreateCoachThread("u1", "", nil)
	assert.NoError(t, err)
	assert.Equal(t, models.DefaultCoachThreadTitle, thread.Title)

	w, response := sendCoachTurn(t, "u1", thread.ID, "What's a good warmup?")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "What's a good warmup?", response.MessageUser.Body)
	assert.NotEmpty(t, response.MessageBot.Body)
	assert.Equal(t, services.CoachUserID(), response.MessageBot.SenderID)
	assert.Equal(t, services.CoachUserID(), response.BotUserID)

	// Bot reply ordering is strict: the reply ID follows the user turn even
	// when both share a creation timestamp.
	assert.Greater(t, response.MessageBot.ID, response.MessageUser.ID)

	// Placeholder title was replaced.
	var reloaded models.Thread
	database.DB.First(&reloaded, "id = ?", thread.ID)
	assert.NotEqual(t, models.DefaultCoachThreadTitle, reloaded.Title)
}

func TestSendCoachMessage_BackendDownFallsBack(t *testing.T) {
	SetupTestDB()
	gin.SetMode(gin.TestMode)

	// Unreachable backend: connection refused, no listener on this port.
	pointCoachAt("http://127.0.0.1:1/v1")

	createTestUser("u1", "alice")
	thread, _ := services.CreateCoachThread("u1", "", nil)

	w, response := sendCoachTurn(t, "u1", thread.ID, "Plan my leg day. Please make it short.")

	// The failure is contained: the request succeeds and the log still gets
	// a paired bot turn.
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, services.CoachFallbackReply, response.MessageBot.Body)

	var msgCount int64
	database.DB.Model(&models.Message{}).Where("thread_id = ?", thread.ID).Count(&msgCount)
	assert.Equal(t, int64(2), msgCount)

	// Title generation fell back to the first sentence of the user turn.
	var reloaded models.Thread
	database.DB.First(&reloaded, "id = ?", thread.ID)
	assert.Equal(t, "Plan my leg day", reloaded.Title)
}

func TestCoachThreads_ParallelConversationsAllowed(t *testing.T) {
	SetupTestDB()
	gin.SetMode(gin.TestMode)

	createTestUser("u1", "alice")

	first, err := services.CreateCoachThread("u1", "", nil)
	assert.NoError(t, err)
	second, err := services.CreateCoachThread("u1", "", nil)
	assert.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	summaries, err := services.ListThreadSummaries("u1", services.ListThreadFilter{BotThreads: true})
	assert.NoError(t, err)
	assert.Len(t, summaries, 2)
}

func TestDeleteCoachThread_CascadesMessagesAndParticipants(t *testing.T) {
	SetupTestDB()
	gin.SetMode(gin.TestMode)

	srv := fakeGenerationServer(t, "Sure thing.")
	defer srv.Close()
	pointCoachAt(srv.URL + "/v1")

	createTestUser("u1", "alice")
	thread, _ := services.CreateCoachThread("u1", "", nil)
	sendCoachTurn(t, "u1", thread.ID, "Hello coach!")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("userId", "u1")
	c.Params = gin.Params{{Key: "id", Value: thread.ID}}
	c.Request = httptest.NewRequest("DELETE", "/api/coach/thread/"+thread.ID, nil)

	DeleteCoachThread(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var msgCount, participantCount, threadCount int64
	database.DB.Model(&models.Message{}).Where("thread_id = ?", thread.ID).Count(&msgCount)
	database.DB.Model(&models.ThreadParticipant{}).Where("thread_id = ?", thread.ID).Count(&participantCount)
	database.DB.Model(&models.Thread{}).Where("id = ?", thread.ID).Count(&threadCount)
	assert.Equal(t, int64(0), msgCount)
	assert.Equal(t, int64(0), participantCount)
	assert.Equal(t, int64(0), threadCount)
}

func TestUpdateCoachThread_WhitespaceTitleRejected(t *testing.T) {
	SetupTestDB()
	gin.SetMode(gin.TestMode)

	createTestUser("u1", "alice")
	thread, _ := services.CreateCoachThread("u1", "Leg day", nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("userId", "u1")
	c.Params = gin.Params{{Key: "id", Value: thread.ID}}
	jsonRequest(c, "PATCH", "/api/coach/thread/"+thread.ID, gin.H{"title": "   "})

	UpdateCoachThread(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	// The stored title is untouched.
	var reloaded models.Thread
	database.DB.First(&reloaded, "id = ?", thread.ID)
	assert.Equal(t, "Leg day", reloaded.Title)
}

func TestDeleteCoachThread_NotOwnerGets404(t *testing.T) {
	SetupTestDB()
	gin.SetMode(gin.TestMode)

	createTestUser("u1", "alice")
	createTestUser("u2", "bob")
	thread, _ := services.CreateCoachThread("u1", "", nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("userId", "u2")
	c.Params = gin.Params{{Key: "id", Value: thread.ID}}
	c.Request = httptest.NewRequest("DELETE", "/api/coach/thread/"+thread.ID, nil)

	DeleteCoachThread(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
