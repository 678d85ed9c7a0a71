package store

import (
	"fmt"
	"time"
)

// RedisStateStore keeps short-lived conversation state: the last bot message
// per chat (for edit-in-place menus) and payment URIs for the QR endpoint.
type RedisStateStore struct {
	client *RedisClient
	ttl    time.Duration
}

func NewRedisStateStore(redisClient *RedisClient, ttlHours int) *RedisStateStore {
	ttl := time.Duration(ttlHours) * time.Hour
	if ttlHours <= 0 {
		ttl = 24 * time.Hour
	}

	return &RedisStateStore{
		client: redisClient,
		ttl:    ttl,
	}
}

func (s *RedisStateStore) SetLastMessageID(chatID int64, messageID int) error {
	key := s.client.generateKey("last_msg", fmt.Sprintf("%d", chatID))
	return s.client.Set(key, messageID, s.ttl)
}

func (s *RedisStateStore) GetLastMessageID(chatID int64) (int, bool) {
	key := s.client.generateKey("last_msg", fmt.Sprintf("%d", chatID))
	var id int
	if err := s.client.Get(key, &id); err != nil {
		return 0, false
	}
	return id, id != 0
}

func (s *RedisStateStore) SetPaymentURI(paymentID, uri string) error {
	key := s.client.generateKey("payment_uri", paymentID)
	return s.client.Set(key, uri, s.ttl)
}

func (s *RedisStateStore) GetPaymentURI(paymentID string) (string, bool) {
	key := s.client.generateKey("payment_uri", paymentID)
	var uri string
	if err := s.client.Get(key, &uri); err != nil {
		return "", false
	}
	return uri, uri != ""
}
