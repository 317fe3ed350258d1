package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/ternarybob/printflow/internal/models"
)

// storedMessage wraps the queue message with delivery state that only the
// manager mutates.
type storedMessage struct {
	Message  models.QueueMessage `json:"message"`
	InFlight bool                `json:"in_flight"`
}

// BadgerManager implements a durable priority queue using BadgerDB.
//
// Key layout:
//
//	queue:{name}:msg:{id}                              message data
//	queue:{name}:index:{priority}:{visibleAt}:{id}     visibility index
//	queue:{name}:failed:{id}                           retained failed set
//	queue:{name}:completed                             completed counter
//
// The index key embeds priority ahead of the visible-at timestamp so
// iteration claims ready high-priority messages first.
type BadgerManager struct {
	db                *badger.DB
	queueName         string
	visibilityTimeout time.Duration
	maxAttempts       int
	retryBaseDelay    time.Duration
}

// NewBadgerManager creates a new Badger-backed queue manager
func NewBadgerManager(db *badger.DB, queueName string, visibilityTimeout time.Duration, maxAttempts int, retryBaseDelay time.Duration) (*BadgerManager, error) {
	if db == nil {
		return nil, errors.New("badger db is required")
	}
	if queueName == "" {
		return nil, errors.New("queue name is required")
	}
	if visibilityTimeout <= 0 {
		visibilityTimeout = 5 * time.Minute
	}
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if retryBaseDelay <= 0 {
		retryBaseDelay = 5 * time.Second
	}

	return &BadgerManager{
		db:                db,
		queueName:         queueName,
		visibilityTimeout: visibilityTimeout,
		maxAttempts:       maxAttempts,
		retryBaseDelay:    retryBaseDelay,
	}, nil
}

// Enqueue adds a message to the queue. Errors are returned synchronously so
// the triggering action can surface them instead of losing the event.
func (m *BadgerManager) Enqueue(ctx context.Context, msg *models.QueueMessage) error {
	if msg == nil {
		return errors.New("message is required")
	}
	if _, err := models.ParseMessageType(string(msg.Type)); err != nil {
		return err
	}

	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	now := time.Now()
	if msg.EnqueuedAt.IsZero() {
		msg.EnqueuedAt = now
	}
	if msg.VisibleAt.IsZero() {
		msg.VisibleAt = now
	}
	if msg.MaxAttempts <= 0 {
		msg.MaxAttempts = m.maxAttempts
	}

	stored := storedMessage{Message: *msg}
	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to marshal queue message: %w", err)
	}

	return m.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(m.msgKey(msg.ID), data); err != nil {
			return err
		}
		return txn.Set(m.indexKey(msg.Priority, msg.VisibleAt, msg.ID), []byte{})
	})
}

// Receive claims the next visible message, highest priority first. The claim
// bumps the attempt count and hides the message for the visibility timeout;
// a crashed worker's message becomes claimable again when the window lapses.
func (m *BadgerManager) Receive(ctx context.Context) (*models.QueueMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var claimed models.QueueMessage
	err := m.db.Update(func(txn *badger.Txn) error {
		for _, priority := range []models.Priority{models.PriorityHigh, models.PriorityNormal} {
			for {
				stored, indexKey, err := m.nextReady(txn, priority)
				if err != nil {
					return err
				}
				if stored == nil {
					break
				}

				// Exhausted on redelivery (worker died mid-processing repeatedly):
				// retain in the failed set rather than deleting, then rescan the
				// band so a ready message behind it is still claimable this call.
				if stored.Message.Attempts >= stored.Message.MaxAttempts {
					stored.Message.LastError = "delivery attempts exhausted (stalled redelivery)"
					if err := m.moveToFailed(txn, stored, indexKey); err != nil {
						return err
					}
					continue
				}

				stored.Message.Attempts++
				stored.InFlight = true
				stored.Message.VisibleAt = time.Now().Add(m.visibilityTimeout)

				if err := m.rewrite(txn, stored, indexKey); err != nil {
					return err
				}

				claimed = stored.Message
				return nil
			}
		}
		return models.ErrNoMessage
	})
	if err != nil {
		return nil, err
	}
	return &claimed, nil
}

// Ack removes a successfully processed message from the durable store and
// counts it as completed.
func (m *BadgerManager) Ack(ctx context.Context, messageID string) error {
	return m.db.Update(func(txn *badger.Txn) error {
		stored, err := m.load(txn, messageID)
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil // Already acked
			}
			return err
		}

		if err := txn.Delete(m.indexKey(stored.Message.Priority, stored.Message.VisibleAt, messageID)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := txn.Delete(m.msgKey(messageID)); err != nil {
			return err
		}
		return m.incrementCompleted(txn)
	})
}

// Nack records a processing failure. The message is re-scheduled with
// exponential backoff (base delay doubled per attempt) until attempts are
// exhausted, then moved to the failed set where it stays for inspection.
func (m *BadgerManager) Nack(ctx context.Context, messageID string, reason string) error {
	return m.db.Update(func(txn *badger.Txn) error {
		stored, err := m.load(txn, messageID)
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("message %s not found", messageID)
			}
			return err
		}

		oldIndexKey := m.indexKey(stored.Message.Priority, stored.Message.VisibleAt, messageID)
		stored.Message.LastError = reason
		stored.InFlight = false

		if stored.Message.Attempts >= stored.Message.MaxAttempts {
			return m.moveToFailed(txn, stored, oldIndexKey)
		}

		// Backoff: base << (attempts-1), so 5s, 10s, 20s, ...
		delay := m.retryBaseDelay << uint(stored.Message.Attempts-1)
		stored.Message.VisibleAt = time.Now().Add(delay)

		return m.rewrite(txn, stored, oldIndexKey)
	})
}

// Stats returns true current counts by scanning the store
func (m *BadgerManager) Stats(ctx context.Context) (*models.QueueStats, error) {
	stats := &models.QueueStats{}
	now := time.Now()

	err := m.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()

		msgPrefix := []byte(fmt.Sprintf("queue:%s:msg:", m.queueName))
		for it.Seek(msgPrefix); it.ValidForPrefix(msgPrefix); it.Next() {
			var stored storedMessage
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &stored)
			}); err != nil {
				return err
			}

			switch {
			case stored.InFlight && stored.Message.VisibleAt.After(now):
				stats.Active++
			case stored.Message.VisibleAt.After(now):
				stats.Delayed++
			default:
				// Includes lapsed in-flight messages: they are claimable again
				stats.Waiting++
			}
		}

		failedPrefix := []byte(fmt.Sprintf("queue:%s:failed:", m.queueName))
		for it.Seek(failedPrefix); it.ValidForPrefix(failedPrefix); it.Next() {
			stats.Failed++
		}

		item, err := txn.Get(m.completedKey())
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		return item.Value(func(val []byte) error {
			n, err := strconv.Atoi(string(val))
			if err != nil {
				return err
			}
			stats.Completed = n
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// Stalled lists claimed messages whose visibility window lapsed at least
// olderThan ago without an ack. Observability only; redelivery happens
// naturally through the visibility index.
func (m *BadgerManager) Stalled(ctx context.Context, olderThan time.Duration) ([]models.QueueMessage, error) {
	var stalled []models.QueueMessage
	cutoff := time.Now().Add(-olderThan)

	err := m.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()

		msgPrefix := []byte(fmt.Sprintf("queue:%s:msg:", m.queueName))
		for it.Seek(msgPrefix); it.ValidForPrefix(msgPrefix); it.Next() {
			var stored storedMessage
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &stored)
			}); err != nil {
				return err
			}
			if stored.InFlight && stored.Message.VisibleAt.Before(cutoff) {
				stalled = append(stalled, stored.Message)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stalled, nil
}

// Failed returns the retained failed set for operator inspection
func (m *BadgerManager) Failed(ctx context.Context) ([]models.QueueMessage, error) {
	var failed []models.QueueMessage

	err := m.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(fmt.Sprintf("queue:%s:failed:", m.queueName))
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var stored storedMessage
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &stored)
			}); err != nil {
				return err
			}
			failed = append(failed, stored.Message)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return failed, nil
}

// Close closes the queue manager (no-op; the DB is managed externally)
func (m *BadgerManager) Close() error {
	return nil
}

// Internal helpers, all called within an open transaction

func (m *BadgerManager) nextReady(txn *badger.Txn, priority models.Priority) (*storedMessage, []byte, error) {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	prefix := []byte(fmt.Sprintf("queue:%s:index:%d:", m.queueName, priority))
	now := time.Now()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		key := it.Item().KeyCopy(nil)

		ts, id, err := m.parseIndexKey(key, priority)
		if err != nil {
			continue // Skip invalid keys
		}

		// Keys sort by timestamp within a priority; a future timestamp means
		// nothing later in this priority is ready either.
		if ts.After(now) {
			return nil, nil, nil
		}

		stored, err := m.load(txn, id)
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				// Orphaned index entry; clean it up and keep scanning
				if err := txn.Delete(key); err != nil {
					return nil, nil, err
				}
				continue
			}
			return nil, nil, err
		}

		return stored, key, nil
	}
	return nil, nil, nil
}

func (m *BadgerManager) load(txn *badger.Txn, id string) (*storedMessage, error) {
	item, err := txn.Get(m.msgKey(id))
	if err != nil {
		return nil, err
	}
	var stored storedMessage
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &stored)
	}); err != nil {
		return nil, err
	}
	return &stored, nil
}

// rewrite persists the stored message and moves its index entry from
// oldIndexKey to the key matching its current visibility.
func (m *BadgerManager) rewrite(txn *badger.Txn, stored *storedMessage, oldIndexKey []byte) error {
	data, err := json.Marshal(stored)
	if err != nil {
		return err
	}
	if err := txn.Set(m.msgKey(stored.Message.ID), data); err != nil {
		return err
	}
	if err := txn.Delete(oldIndexKey); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		return err
	}
	return txn.Set(m.indexKey(stored.Message.Priority, stored.Message.VisibleAt, stored.Message.ID), []byte{})
}

func (m *BadgerManager) moveToFailed(txn *badger.Txn, stored *storedMessage, indexKey []byte) error {
	stored.InFlight = false
	data, err := json.Marshal(stored)
	if err != nil {
		return err
	}
	if err := txn.Set(m.failedKey(stored.Message.ID), data); err != nil {
		return err
	}
	if err := txn.Delete(indexKey); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		return err
	}
	return txn.Delete(m.msgKey(stored.Message.ID))
}

func (m *BadgerManager) incrementCompleted(txn *badger.Txn) error {
	count := 0
	item, err := txn.Get(m.completedKey())
	if err == nil {
		if err := item.Value(func(val []byte) error {
			n, convErr := strconv.Atoi(string(val))
			if convErr != nil {
				return convErr
			}
			count = n
			return nil
		}); err != nil {
			return err
		}
	} else if !errors.Is(err, badger.ErrKeyNotFound) {
		return err
	}
	return txn.Set(m.completedKey(), []byte(strconv.Itoa(count+1)))
}

func (m *BadgerManager) msgKey(id string) []byte {
	return []byte(fmt.Sprintf("queue:%s:msg:%s", m.queueName, id))
}

func (m *BadgerManager) failedKey(id string) []byte {
	return []byte(fmt.Sprintf("queue:%s:failed:%s", m.queueName, id))
}

func (m *BadgerManager) completedKey() []byte {
	return []byte(fmt.Sprintf("queue:%s:completed", m.queueName))
}

func (m *BadgerManager) indexKey(priority models.Priority, visibleAt time.Time, id string) []byte {
	// Zero pad to 20 digits so string sorting works like number sorting
	return []byte(fmt.Sprintf("queue:%s:index:%d:%020d:%s", m.queueName, priority, visibleAt.UnixNano(), id))
}

func (m *BadgerManager) parseIndexKey(key []byte, priority models.Priority) (time.Time, string, error) {
	prefixStr := fmt.Sprintf("queue:%s:index:%d:", m.queueName, priority)
	if len(key) <= len(prefixStr) {
		return time.Time{}, "", fmt.Errorf("invalid key length")
	}

	suffix := string(key[len(prefixStr):])
	// Suffix is "{20-digit-ts}:{id}"
	if len(suffix) < 21 {
		return time.Time{}, "", fmt.Errorf("invalid suffix length")
	}

	ts, err := strconv.ParseInt(suffix[:20], 10, 64)
	if err != nil {
		return time.Time{}, "", err
	}

	return time.Unix(0, ts), suffix[21:], nil
}
