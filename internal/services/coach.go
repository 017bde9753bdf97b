package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fitpulse/fitpulse-backend/internal/config"
	"github.com/fitpulse/fitpulse-backend/internal/database"
	"github.com/fitpulse/fitpulse-backend/internal/models"
	"github.com/fitpulse/fitpulse-backend/pkg/logger"
	openai "github.com/sashabaranov/go-openai"
)

const coachSystemPrompt = "You are FitPulse Coach, a friendly fitness and nutrition assistant. " +
	"Give practical, safe advice on training, recovery and nutrition. " +
	"Keep answers concise and encourage users to consult a professional for medical concerns."

// CoachFallbackReply is persisted as the bot turn whenever the generation
// backend fails, so every user turn still gets a paired reply in the log.
const CoachFallbackReply = "Sorry, I couldn't come up with a reply just now. Please try again in a moment."

const (
	coachContextWindow = 20
	coachTitleMaxLen   = 48
	titleTimeout       = 10 * time.Second
)

var openaiClient *openai.Client

// InitCoach builds the generation-backend client from config. The base URL
// is overridable so tests and self-hosted gateways can stand in for the
// real backend.
func InitCoach() {
	cfg := openai.DefaultConfig(config.AppConfig.OpenAIAPIKey)
	if config.AppConfig.OpenAIBaseURL != "" {
		cfg.BaseURL = config.AppConfig.OpenAIBaseURL
	}
	openaiClient = openai.NewClientWithConfig(cfg)
}

// GenerateCoachReply runs one assistant turn: assemble bounded context, call
// the generation backend under a hard timeout, and persist the reply as an
// ordinary message. Backend failures are contained - the fallback body is
// persisted instead and no error escapes to the send request.
func GenerateCoachReply(thread *models.Thread, userMsg *models.Message, model string) (*models.Message, error) {
	replyBody, genErr := requestCompletion(thread.ID, model)
	if genErr != nil {
		logger.Warn().Err(genErr).Str("threadId", thread.ID).Msg("Coach reply generation failed, using fallback")
		replyBody = CoachFallbackReply
	}

	botMsg, err := AppendMessage(thread.ID, CoachUserID(), replyBody, nil)
	if err != nil {
		return nil, err
	}

	if thread.Title == models.DefaultCoachThreadTitle {
		retitleThread(thread, userMsg, genErr == nil, model)
	}

	return botMsg, nil
}

func requestCompletion(threadID, model string) (string, error) {
	if openaiClient == nil {
		return "", errors.New("coach client not initialized")
	}

	history, err := recentMessages(threadID, coachContextWindow)
	if err != nil {
		return "", err
	}

	chatMessages := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	chatMessages = append(chatMessages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: coachSystemPrompt,
	})
	for _, m := range history {
		role := openai.ChatMessageRoleUser
		if m.SenderID == CoachUserID() {
			role = openai.ChatMessageRoleAssistant
		}
		chatMessages = append(chatMessages, openai.ChatCompletionMessage{
			Role:    role,
			Content: m.Body,
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), coachTimeout())
	defer cancel()

	resp, err := openaiClient.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    resolveModel(model),
		Messages: chatMessages,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", errors.New("generation backend returned an empty completion")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// recentMessages returns the newest limit messages in ascending order.
func recentMessages(threadID string, limit int) ([]models.Message, error) {
	var newest []models.Message
	err := database.DB.Where("thread_id = ?", threadID).
		Order("id desc").
		Limit(limit).
		Find(&newest).Error
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(newest)-1; i < j; i, j = i+1, j-1 {
		newest[i], newest[j] = newest[j], newest[i]
	}
	return newest, nil
}

// retitleThread replaces the placeholder title, best-effort. A backend call
// is only attempted when the reply call just succeeded; any failure falls
// back to a local title derived from the user's message. Titling never
// blocks or fails the reply flow.
func retitleThread(thread *models.Thread, userMsg *models.Message, backendHealthy bool, model string) {
	title := ""
	if backendHealthy {
		title = requestTitle(userMsg.Body, model)
	}
	if title == "" {
		title = DeriveLocalTitle(userMsg.Body)
	}
	if title == "" {
		return
	}

	if err := database.DB.Model(&models.Thread{}).Where("id = ?", thread.ID).Update("title", title).Error; err != nil {
		logger.Warn().Err(err).Str("threadId", thread.ID).Msg("Failed to persist generated thread title")
		return
	}
	thread.Title = title
}

func requestTitle(firstMessage, model string) string {
	ctx, cancel := context.WithTimeout(context.Background(), titleTimeout)
	defer cancel()

	resp, err := openaiClient.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: resolveModel(model),
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "Write a title of at most five words for a conversation that starts with the following message. Reply with the title only.",
			},
			{Role: openai.ChatMessageRoleUser, Content: firstMessage},
		},
	})
	if err != nil || len(resp.Choices) == 0 {
		return ""
	}
	title := strings.Trim(strings.TrimSpace(resp.Choices[0].Message.Content), `"`)
	return truncateRunes(title, coachTitleMaxLen)
}

// DeriveLocalTitle builds a deterministic title from the first sentence of
// the user's message.
func DeriveLocalTitle(body string) string {
	body = strings.TrimSpace(body)
	if body == "" {
		return ""
	}
	if idx := strings.IndexAny(body, ".!?\n"); idx > 0 {
		body = body[:idx]
	}
	return truncateRunes(strings.TrimSpace(body), coachTitleMaxLen)
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max-1]) + "…"
}

func resolveModel(model string) string {
	if model != "" {
		return model
	}
	return config.AppConfig.OpenAIModel
}

func coachTimeout() time.Duration {
	return time.Duration(config.AppConfig.CoachTimeoutSec) * time.Second
}
