package services

import (
	"sort"
	"strings"

	"github.com/fitpulse/fitpulse-backend/internal/database"
	"github.com/fitpulse/fitpulse-backend/internal/models"
	apperrors "github.com/fitpulse/fitpulse-backend/pkg/errors"
	"gorm.io/gorm"
)

// AppendMessage persists a message, and its attachment if any, in one
// transaction. Body may be empty only when an attachment is present.
func AppendMessage(threadID, senderID, body string, attachment *models.Attachment) (*models.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" && attachment == nil {
		return nil, apperrors.ErrEmptyMessage
	}

	msg := &models.Message{
		ThreadID: threadID,
		SenderID: senderID,
		Body:     body,
	}
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		if attachment != nil {
			attachment.MessageID = msg.ID
			if err := tx.Create(attachment).Error; err != nil {
				return err
			}
			msg.Attachment = attachment
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// ThreadMessages returns the full history in ascending ID order, which is
// the canonical delivery order regardless of timestamp skew.
func ThreadMessages(threadID string) ([]models.Message, error) {
	var messages []models.Message
	err := database.DB.Where("thread_id = ?", threadID).
		Order("id asc").
		Preload("Attachment").
		Find(&messages).Error
	return messages, err
}

// ThreadSummary is one row of a thread listing: the thread, the peer (direct
// threads only), the most recent message, and the derived unread count.
type ThreadSummary struct {
	Thread      models.Thread   `json:"thread"`
	Peer        *models.User    `json:"peer,omitempty"`
	LastMessage *models.Message `json:"lastMessage,omitempty"`
	UnreadCount int64           `json:"unreadCount"`
}

// ListThreadFilter narrows a thread listing. Search matches the thread title
// and the latest message body only, case-insensitively; full-history search
// is a deliberate non-feature.
type ListThreadFilter struct {
	BotThreads bool
	FolderID   *string
	Search     string
}

// ListThreadSummaries returns every matching thread the user participates
// in, annotated and ordered: threads with no messages last, then most recent
// message first, with thread ID descending as the final tiebreak so the
// ordering is deterministic.
func ListThreadSummaries(userID string, filter ListThreadFilter) ([]ThreadSummary, error) {
	var participants []models.ThreadParticipant
	if err := database.DB.Find(&participants, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}

	summaries := make([]ThreadSummary, 0, len(participants))
	for _, p := range participants {
		var thread models.Thread
		if err := database.DB.First(&thread, "id = ?", p.ThreadID).Error; err != nil {
			continue
		}
		if thread.IsBotThread != filter.BotThreads {
			continue
		}
		if filter.FolderID != nil {
			if thread.FolderID == nil || *thread.FolderID != *filter.FolderID {
				continue
			}
		}

		summary := ThreadSummary{Thread: thread}

		var last models.Message
		err := database.DB.Where("thread_id = ?", thread.ID).
			Order("id desc").
			Preload("Attachment").
			First(&last).Error
		if err == nil {
			summary.LastMessage = &last
		}

		if !thread.IsBotThread {
			peerIDs, err := OtherParticipantIDs(thread.ID, userID)
			if err == nil && len(peerIDs) > 0 {
				var peer models.User
				if err := database.DB.First(&peer, "id = ?", peerIDs[0]).Error; err == nil {
					summary.Peer = &peer
				}
			}
		}

		count, err := UnreadCount(thread.ID, userID, p.LastReadMessageID)
		if err != nil {
			return nil, err
		}
		summary.UnreadCount = count

		if filter.Search != "" && !summaryMatches(&summary, filter.Search) {
			continue
		}

		summaries = append(summaries, summary)
	}

	sortThreadSummaries(summaries)
	return summaries, nil
}

func summaryMatches(s *ThreadSummary, search string) bool {
	needle := strings.ToLower(search)
	if strings.Contains(strings.ToLower(s.Thread.Title), needle) {
		return true
	}
	if s.LastMessage != nil && strings.Contains(strings.ToLower(s.LastMessage.Body), needle) {
		return true
	}
	return false
}

func sortThreadSummaries(summaries []ThreadSummary) {
	sort.Slice(summaries, func(i, j int) bool {
		return summaryLess(&summaries[i], &summaries[j])
	})
}

func summaryLess(a, b *ThreadSummary) bool {
	switch {
	case a.LastMessage == nil && b.LastMessage == nil:
		return a.Thread.ID > b.Thread.ID
	case a.LastMessage == nil:
		return false // empty threads sort last
	case b.LastMessage == nil:
		return true
	case a.LastMessage.ID != b.LastMessage.ID:
		return a.LastMessage.ID > b.LastMessage.ID
	default:
		return a.Thread.ID > b.Thread.ID
	}
}
