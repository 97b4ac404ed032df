package stores

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	tokenRecordVersionV1 = 1
	maxConsumeRetries    = 4
)

var (
	ErrTokenNotFound         = errors.New("recovery token not found")
	ErrTokenSecretMismatch   = errors.New("recovery token secret mismatch")
	ErrTokenRedisUnavailable = errors.New("recovery token redis unavailable")
	// ErrTokenContention wraps ErrTokenRedisUnavailable when the record kept
	// changing under WATCH; the token may still be valid.
	ErrTokenContention = errors.New("recovery token contention")
)

// RecoveryTokenRecord is the persisted half of a recovery token.
type RecoveryTokenRecord struct {
	Name       string
	SecretHash [32]byte
	ExpiresAt  int64
}

type RecoveryTokenStore struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

func NewRecoveryTokenStore(redisClient redis.UniversalClient, prefix string) *RecoveryTokenStore {
	if prefix == "" {
		prefix = "rtok"
	}
	return &RecoveryTokenStore{
		redis:  redisClient,
		prefix: prefix,
		now:    time.Now,
	}
}

func (s *RecoveryTokenStore) key(tokenID string) string {
	return s.prefix + ":" + tokenID
}

func (s *RecoveryTokenStore) Save(ctx context.Context, tokenID string, record *RecoveryTokenRecord, ttl time.Duration) error {
	encoded, err := encodeRecoveryTokenRecord(record)
	if err != nil {
		return err
	}

	if err := s.redis.Set(ctx, s.key(tokenID), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrTokenRedisUnavailable, err)
	}
	return nil
}

// Consume atomically deletes and returns the record when providedHash matches.
// A mismatched secret leaves the record in place.
func (s *RecoveryTokenStore) Consume(ctx context.Context, tokenID string, providedHash [32]byte) (*RecoveryTokenRecord, error) {
	key := s.key(tokenID)

	for i := 0; i < maxConsumeRetries; i++ {
		var matched *RecoveryTokenRecord

		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			record, err := decodeRecoveryTokenRecord(data)
			if err != nil {
				return err
			}

			if s.now().Unix() > record.ExpiresAt {
				if _, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				}); err != nil {
					return err
				}
				return ErrTokenNotFound
			}

			if subtle.ConstantTimeCompare(record.SecretHash[:], providedHash[:]) != 1 {
				return ErrTokenSecretMismatch
			}

			if _, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, key)
				return nil
			}); err != nil {
				return err
			}

			matched = record
			return nil
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			switch {
			case errors.Is(err, redis.Nil):
				return nil, ErrTokenNotFound
			case errors.Is(err, ErrTokenNotFound), errors.Is(err, ErrTokenSecretMismatch):
				return nil, err
			default:
				return nil, fmt.Errorf("%w: %v", ErrTokenRedisUnavailable, err)
			}
		}
		return matched, nil
	}

	return nil, fmt.Errorf("%w: %w", ErrTokenRedisUnavailable, ErrTokenContention)
}

func encodeRecoveryTokenRecord(record *RecoveryTokenRecord) ([]byte, error) {
	if len(record.Name) > 255 {
		return nil, errors.New("recovery token name too long")
	}

	var buf bytes.Buffer
	buf.WriteByte(tokenRecordVersionV1)
	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt); err != nil {
		return nil, err
	}
	buf.WriteByte(byte(len(record.Name)))
	buf.WriteString(record.Name)
	buf.Write(record.SecretHash[:])
	return buf.Bytes(), nil
}

func decodeRecoveryTokenRecord(data []byte) (*RecoveryTokenRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != tokenRecordVersionV1 {
		return nil, errors.New("invalid recovery token record version")
	}

	record := &RecoveryTokenRecord{}
	if err := binary.Read(reader, binary.BigEndian, &record.ExpiresAt); err != nil {
		return nil, err
	}

	nameLen, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	name := make([]byte, nameLen)
	if _, err := io.ReadFull(reader, name); err != nil {
		return nil, err
	}
	record.Name = string(name)

	if _, err := io.ReadFull(reader, record.SecretHash[:]); err != nil {
		return nil, err
	}
	return record, nil
}
