// Package notifications implements the NotificationStore component: durable
// persistence, encrypted-at-rest message bodies, filtered queries, and the
// retry-eligible stream the sweeper consumes.
package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/agusu/ppns-hub/cryptoutil"
	"github.com/agusu/ppns-hub/models"
)

// RetryablePair is one item of the stream StreamRetryable produces. Message
// is the decrypted plaintext body, resolved here so the sweeper never has to
// reach back into the store (and never sees ciphertext).
type RetryablePair struct {
	Notification models.Notification
	Box          models.Box
	Message      string
}

// Store is the NotificationStore component.
type Store struct {
	db          *gorm.DB
	cipher      *cryptoutil.Cipher
	log         *zap.SugaredLogger
	defaultSize int
	streamBatch int
}

func New(db *gorm.DB, cipher *cryptoutil.Cipher, log *zap.SugaredLogger, defaultLimit int) *Store {
	if defaultLimit <= 0 {
		defaultLimit = 100
	}
	return &Store{db: db, cipher: cipher, log: log, defaultSize: defaultLimit, streamBatch: 200}
}

// Save inserts a notification, encrypting its message body. On a
// unique-index violation (duplicate (notificationId, boxId, status)) it
// returns (uuid.Nil, false, nil) rather than an error — a duplicate is not a
// failure.
func (s *Store) Save(ctx context.Context, n models.Notification, plaintext []byte) (uuid.UUID, bool, error) {
	ciphertext, err := s.cipher.Seal(plaintext)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("notifications: encrypting message: %w", err)
	}
	n.EncryptedMessage = ciphertext

	err = s.db.WithContext(ctx).Create(&n).Error
	if err == nil {
		return n.NotificationID, true, nil
	}
	if isUniqueViolation(err) {
		return uuid.Nil, false, nil
	}
	return uuid.Nil, false, fmt.Errorf("notifications: saving: %w", err)
}

// isUniqueViolation is deliberately permissive: gorm surfaces different
// driver-specific error types (sqlite3.Error, *mysql.MySQLError) for a
// unique-index violation, so we match on message content the way the
// teacher's DispatchOutbox error handling matches on the storage layer's
// result rather than a typed error.
func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "Duplicate entry") ||
		strings.Contains(msg, "duplicate key")
}

// Filters narrows GetByBoxIDAndFilters.
type Filters struct {
	Status *models.NotificationStatus
	From   *time.Time
	To     *time.Time
	Limit  int
}

// DecryptedNotification is a Notification with its message body decrypted
// for return to a caller outside the store.
type DecryptedNotification struct {
	models.Notification
	Message string
}

// GetByBoxIDAndFilters returns matching notifications ordered ascending by
// createdDateTime, decrypting each message body.
func (s *Store) GetByBoxIDAndFilters(ctx context.Context, boxID uuid.UUID, f Filters) ([]DecryptedNotification, error) {
	q := s.db.WithContext(ctx).Where("box_id = ?", boxID)
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	if f.From != nil {
		q = q.Where("created_date_time >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("created_date_time <= ?", *f.To)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = s.defaultSize
	}

	var rows []models.Notification
	if err := q.Order("created_date_time ASC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("notifications: querying: %w", err)
	}

	out := make([]DecryptedNotification, 0, len(rows))
	for _, row := range rows {
		plaintext, err := s.cipher.Open(row.EncryptedMessage)
		if err != nil {
			return nil, fmt.Errorf("notifications: decrypting %s: %w", row.NotificationID, err)
		}
		row.EncryptedMessage = nil
		out = append(out, DecryptedNotification{Notification: row, Message: string(plaintext)})
	}
	return out, nil
}

// Acknowledge sets status := ACKNOWLEDGED for every matching (boxId,
// notificationId) currently PENDING. Returns true if the write succeeded,
// even when modifiedCount < len(ids) — that mismatch is logged as a warning,
// not surfaced as failure.
func (s *Store) Acknowledge(ctx context.Context, boxID uuid.UUID, ids []uuid.UUID) bool {
	if len(ids) == 0 {
		return true
	}
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("box_id = ? AND notification_id IN ? AND status = ?", boxID, ids, models.StatusPending).
		Update("status", models.StatusAcknowledged)
	if res.Error != nil {
		s.log.Errorw("notifications: acknowledge failed", "boxId", boxID, "error", res.Error)
		return false
	}
	if int(res.RowsAffected) < len(ids) {
		s.log.Warnw("notifications: acknowledge modified fewer rows than requested",
			"boxId", boxID, "requested", len(ids), "modified", res.RowsAffected)
	}
	return true
}

// UpdateStatus writes status unconditionally and returns the post-image.
func (s *Store) UpdateStatus(ctx context.Context, notificationID uuid.UUID, status models.NotificationStatus) (models.Notification, error) {
	updates := map[string]any{"status": status}
	if status == models.StatusAcknowledged {
		updates["pushed_date_time"] = time.Now().UTC()
	}

	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("notification_id = ?", notificationID).
		Updates(updates)
	if res.Error != nil {
		return models.Notification{}, fmt.Errorf("notifications: updating status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return models.Notification{}, fmt.Errorf("notifications: updating status: %w", gorm.ErrRecordNotFound)
	}

	var n models.Notification
	if err := s.db.WithContext(ctx).Where("notification_id = ?", notificationID).First(&n).Error; err != nil {
		return models.Notification{}, fmt.Errorf("notifications: reloading after status update: %w", err)
	}
	return n, nil
}

// UpdateRetryAfter sets retryAfterDateTime and returns the post-image.
func (s *Store) UpdateRetryAfter(ctx context.Context, notificationID uuid.UUID, when time.Time) (models.Notification, error) {
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("notification_id = ?", notificationID).
		Update("retry_after_date_time", when)
	if res.Error != nil {
		return models.Notification{}, fmt.Errorf("notifications: updating retryAfter: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return models.Notification{}, fmt.Errorf("notifications: updating retryAfter: %w", gorm.ErrRecordNotFound)
	}

	var n models.Notification
	if err := s.db.WithContext(ctx).Where("notification_id = ?", notificationID).First(&n).Error; err != nil {
		return models.Notification{}, fmt.Errorf("notifications: reloading after retryAfter update: %w", err)
	}
	return n, nil
}

// StreamRetryable produces (Notification, Box) pairs eligible for a retry
// push: PENDING, retryAfterDateTime absent or <= now, and the joined box has
// a valid push subscriber. It is finite per call and restartable. Rows are
// read in pages of streamBatch (the SQL LIMIT) and the output channel
// buffers up to streamBatch pairs, so at most about 2×streamBatch items are
// held in memory; the next page is queried once every row of the current
// page has been handed to the channel.
func (s *Store) StreamRetryable(ctx context.Context) (<-chan RetryablePair, <-chan error) {
	out := make(chan RetryablePair, s.streamBatch)
	errs := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errs)

		now := time.Now().UTC()
		var lastID uuid.UUID
		for {
			var rows []models.Notification
			q := s.db.WithContext(ctx).
				Where("status = ? AND (retry_after_date_time IS NULL OR retry_after_date_time <= ?)", models.StatusPending, now).
				Order("notification_id ASC").
				Limit(s.streamBatch)
			if lastID != uuid.Nil {
				q = q.Where("notification_id > ?", lastID)
			}
			if err := q.Find(&rows).Error; err != nil {
				errs <- fmt.Errorf("notifications: streaming retryable: %w", err)
				return
			}
			if len(rows) == 0 {
				return
			}

			for _, n := range rows {
				var box models.Box
				if err := s.db.WithContext(ctx).First(&box, "box_id = ?", n.BoxID).Error; err != nil {
					if errors.Is(err, gorm.ErrRecordNotFound) {
						continue
					}
					errs <- fmt.Errorf("notifications: loading box %s: %w", n.BoxID, err)
					return
				}
				if !box.Subscriber.IsPush() {
					continue
				}
				plaintext, err := s.cipher.Open(n.EncryptedMessage)
				if err != nil {
					errs <- fmt.Errorf("notifications: decrypting %s: %w", n.NotificationID, err)
					return
				}
				n.EncryptedMessage = nil
				select {
				case out <- RetryablePair{Notification: n, Box: box, Message: string(plaintext)}:
				case <-ctx.Done():
					return
				}
			}
			lastID = rows[len(rows)-1].NotificationID
		}
	}()

	return out, errs
}
