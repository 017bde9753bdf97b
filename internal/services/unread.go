package services

import (
	"github.com/fitpulse/fitpulse-backend/internal/database"
	"github.com/fitpulse/fitpulse-backend/internal/models"
)

// Unread counts are derived, never cached: a message is unread for a
// participant when its ID is above their read high-water mark and they did
// not send it. Deriving from the append-only log plus the monotonic mark
// keeps sends and read-marks consistent under concurrency with nothing more
// than row-level transaction isolation.

// UnreadCount returns the unread count for one participant in one thread.
func UnreadCount(threadID, userID string, lastReadMessageID uint64) (int64, error) {
	var count int64
	err := database.DB.Model(&models.Message{}).
		Where("thread_id = ? AND id > ? AND sender_id <> ?", threadID, lastReadMessageID, userID).
		Count(&count).Error
	return count, err
}

// UnreadTotals sums UnreadCount over every thread the user participates in.
func UnreadTotals(userID string) (int64, map[string]int64, error) {
	var participants []models.ThreadParticipant
	if err := database.DB.Find(&participants, "user_id = ?", userID).Error; err != nil {
		return 0, nil, err
	}

	byThread := make(map[string]int64, len(participants))
	var total int64
	for _, p := range participants {
		count, err := UnreadCount(p.ThreadID, userID, p.LastReadMessageID)
		if err != nil {
			return 0, nil, err
		}
		if count > 0 {
			byThread[p.ThreadID] = count
		}
		total += count
	}
	return total, byThread, nil
}
