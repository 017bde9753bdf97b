package services

import (
	"strings"

	"github.com/fitpulse/fitpulse-backend/internal/database"
	"github.com/fitpulse/fitpulse-backend/internal/models"
	apperrors "github.com/fitpulse/fitpulse-backend/pkg/errors"
	"github.com/fitpulse/fitpulse-backend/pkg/logger"
	"gorm.io/gorm"
)

// CanonicalPair orders two user IDs so the same unordered pair always maps
// to the same (UserA, UserB) lookup key.
func CanonicalPair(a, b string) (string, string) {
	if strings.Compare(a, b) < 0 {
		return a, b
	}
	return b, a
}

// ResolveOrCreateDirectThread returns the direct thread for the pair,
// creating it on first contact. Idempotent under concurrent calls: the
// composite primary key on DirectThreadKey makes the loser of a create race
// fail its insert and fall back to the lookup.
func ResolveOrCreateDirectThread(userA, userB string) (*models.Thread, error) {
	if userA == userB {
		return nil, apperrors.ErrInvalidParticipants
	}

	keyA, keyB := CanonicalPair(userA, userB)

	if thread, err := lookupDirectThread(keyA, keyB); err == nil {
		return thread, nil
	}

	thread := &models.Thread{Title: ""}
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(thread).Error; err != nil {
			return err
		}
		participants := []models.ThreadParticipant{
			{ThreadID: thread.ID, UserID: userA},
			{ThreadID: thread.ID, UserID: userB},
		}
		if err := tx.Create(&participants).Error; err != nil {
			return err
		}
		key := models.DirectThreadKey{UserA: keyA, UserB: keyB, ThreadID: thread.ID}
		return tx.Create(&key).Error
	})
	if err != nil {
		// Most likely a duplicate pair key from a concurrent first-contact
		// request; whoever won holds the thread we want.
		if existing, lookupErr := lookupDirectThread(keyA, keyB); lookupErr == nil {
			return existing, nil
		}
		return nil, err
	}

	return thread, nil
}

func lookupDirectThread(keyA, keyB string) (*models.Thread, error) {
	var key models.DirectThreadKey
	if err := database.DB.First(&key, "user_a = ? AND user_b = ?", keyA, keyB).Error; err != nil {
		return nil, err
	}
	var thread models.Thread
	if err := database.DB.First(&thread, "id = ?", key.ThreadID).Error; err != nil {
		return nil, err
	}
	return &thread, nil
}

// CreateCoachThread always creates a fresh coach conversation; users may keep
// any number of parallel ones. folderID, when given, must belong to the owner.
func CreateCoachThread(ownerID, title string, folderID *string) (*models.Thread, error) {
	if folderID != nil {
		var folder models.ChatFolder
		if err := database.DB.First(&folder, "id = ? AND user_id = ?", *folderID, ownerID).Error; err != nil {
			return nil, apperrors.ErrInvalidFolder
		}
	}
	if strings.TrimSpace(title) == "" {
		title = models.DefaultCoachThreadTitle
	}

	thread := &models.Thread{
		IsBotThread: true,
		OwnerUserID: &ownerID,
		Title:       title,
		FolderID:    folderID,
	}
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(thread).Error; err != nil {
			return err
		}
		participants := []models.ThreadParticipant{
			{ThreadID: thread.ID, UserID: ownerID},
			{ThreadID: thread.ID, UserID: CoachUserID()},
		}
		return tx.Create(&participants).Error
	})
	if err != nil {
		return nil, err
	}
	return thread, nil
}

// OwnedCoachThread fetches a coach thread owned by userID. Missing or
// foreign threads surface as not-found to avoid leaking existence.
func OwnedCoachThread(threadID, userID string) (*models.Thread, error) {
	var thread models.Thread
	err := database.DB.First(&thread, "id = ? AND is_bot_thread = ? AND owner_user_id = ?", threadID, true, userID).Error
	if err != nil {
		return nil, apperrors.ErrNotParticipant
	}
	return &thread, nil
}

func RenameThread(threadID, userID, title string) (*models.Thread, error) {
	thread, err := OwnedCoachThread(threadID, userID)
	if err != nil {
		return nil, err
	}
	thread.Title = strings.TrimSpace(title)
	if err := database.DB.Model(thread).Update("title", thread.Title).Error; err != nil {
		return nil, err
	}
	return thread, nil
}

func MoveThread(threadID, userID string, folderID *string) (*models.Thread, error) {
	thread, err := OwnedCoachThread(threadID, userID)
	if err != nil {
		return nil, err
	}
	if folderID != nil {
		var folder models.ChatFolder
		if err := database.DB.First(&folder, "id = ? AND user_id = ?", *folderID, userID).Error; err != nil {
			return nil, apperrors.ErrInvalidFolder
		}
	}
	thread.FolderID = folderID
	if err := database.DB.Model(thread).Update("folder_id", folderID).Error; err != nil {
		return nil, err
	}
	return thread, nil
}

// DeleteThread cascade-deletes a coach thread. Direct threads are not
// deletable. Ordering respects foreign keys without relying on DB cascade:
// attachments, messages, participants, then the thread row.
func DeleteThread(threadID, userID string) error {
	thread, err := OwnedCoachThread(threadID, userID)
	if err != nil {
		return err
	}

	return database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("message_id IN (?)",
			tx.Model(&models.Message{}).Select("id").Where("thread_id = ?", thread.ID),
		).Delete(&models.Attachment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("thread_id = ?", thread.ID).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		if err := tx.Where("thread_id = ?", thread.ID).Delete(&models.ThreadParticipant{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Thread{}, "id = ?", thread.ID).Error
	})
}

// ParticipantOf returns the caller's participant row for a thread, or
// ErrNotParticipant. Used as the authorization boundary for all message and
// read-state operations.
func ParticipantOf(threadID, userID string) (*models.ThreadParticipant, error) {
	var participant models.ThreadParticipant
	err := database.DB.First(&participant, "thread_id = ? AND user_id = ?", threadID, userID).Error
	if err != nil {
		return nil, apperrors.ErrNotParticipant
	}
	return &participant, nil
}

// MarkThreadRead advances the caller's read high-water mark to the newest
// message in the thread. Monotonic: a stale or redundant call is a no-op and
// the mark never regresses. Returns the mark now in effect.
func MarkThreadRead(threadID, userID string) (uint64, error) {
	participant, err := ParticipantOf(threadID, userID)
	if err != nil {
		return 0, err
	}

	var maxID uint64
	row := database.DB.Model(&models.Message{}).
		Where("thread_id = ?", threadID).
		Select("COALESCE(MAX(id), 0)").Row()
	if err := row.Scan(&maxID); err != nil {
		return 0, err
	}

	if maxID <= participant.LastReadMessageID {
		return participant.LastReadMessageID, nil
	}

	// Guarded update keeps the advance monotonic even if another session of
	// the same user raced us to a higher mark.
	err = database.DB.Model(&models.ThreadParticipant{}).
		Where("thread_id = ? AND user_id = ? AND last_read_message_id < ?", threadID, userID, maxID).
		Update("last_read_message_id", maxID).Error
	if err != nil {
		return 0, err
	}

	// Re-read rather than reporting maxID: if the guarded update matched no
	// rows because another session won the race, the caller and the
	// read-receipt fan-out must see the mark actually in effect.
	current, err := ParticipantOf(threadID, userID)
	if err != nil {
		return 0, err
	}

	logger.Debug().Str("threadId", threadID).Str("userId", userID).Uint64("mark", current.LastReadMessageID).Msg("Read mark advanced")
	return current.LastReadMessageID, nil
}

// OtherParticipantIDs lists everyone in the thread except the given user.
func OtherParticipantIDs(threadID, exceptUserID string) ([]string, error) {
	var ids []string
	err := database.DB.Model(&models.ThreadParticipant{}).
		Where("thread_id = ? AND user_id <> ?", threadID, exceptUserID).
		Pluck("user_id", &ids).Error
	return ids, err
}
