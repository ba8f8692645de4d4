package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"docflow-go/internal/model"

	"github.com/go-redis/redis/v8"
)

const (
	sessionKeyPrefix = "upload:session:"
	partsKeyPrefix   = "upload:parts:"
	sessionIndexKey  = "upload:sessions"
)

// UploadSessionRepository 接口定义了进行中分片上传的 Redis 记录操作。
type UploadSessionRepository interface {
	Save(ctx context.Context, session *model.UploadSession) error
	Get(ctx context.Context, uploadID string) (*model.UploadSession, error)
	MarkPartPresigned(ctx context.Context, uploadID string, partNumber int) error
	PresignedParts(ctx context.Context, uploadID string) ([]int, error)
	Delete(ctx context.Context, uploadID string) error
	ListStale(ctx context.Context, before time.Time, limit int64) ([]model.UploadSession, error)
}

// uploadSessionRepository 是基于 Redis 的实现：hash 存元数据，bitmap 记录已签名分片，zset 按创建时间索引。
type uploadSessionRepository struct {
	redisClient *redis.Client
	ttl         time.Duration
}

// NewUploadSessionRepository 创建一个新的 UploadSessionRepository 实例。
func NewUploadSessionRepository(redisClient *redis.Client, ttl time.Duration) UploadSessionRepository {
	return &uploadSessionRepository{redisClient: redisClient, ttl: ttl}
}

func sessionKey(uploadID string) string { return sessionKeyPrefix + uploadID }
func partsKey(uploadID string) string   { return partsKeyPrefix + uploadID }

// Save 写入会话元数据并加入按时间排序的索引。
func (r *uploadSessionRepository) Save(ctx context.Context, session *model.UploadSession) error {
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}
	createdAt := session.CreatedAt.UnixMilli()

	_, err := r.redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, sessionKey(session.UploadID),
			"filename", session.Filename,
			"contentType", session.ContentType,
			"createdAt", createdAt,
		)
		if r.ttl > 0 {
			pipe.Expire(ctx, sessionKey(session.UploadID), r.ttl)
		}
		pipe.ZAdd(ctx, sessionIndexKey, &redis.Z{Score: float64(createdAt), Member: session.UploadID})
		return nil
	})
	return err
}

// Get 读取会话及其已签名分片，不存在时返回 model.ErrUploadNotFound。
func (r *uploadSessionRepository) Get(ctx context.Context, uploadID string) (*model.UploadSession, error) {
	fields, err := r.redisClient.HGetAll(ctx, sessionKey(uploadID)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, model.ErrUploadNotFound
	}
	createdAt, err := strconv.ParseInt(fields["createdAt"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("会话 %s 的 createdAt 无效: %w", uploadID, err)
	}
	parts, err := r.PresignedParts(ctx, uploadID)
	if err != nil {
		return nil, err
	}
	return &model.UploadSession{
		UploadID:       uploadID,
		Filename:       fields["filename"],
		ContentType:    fields["contentType"],
		CreatedAt:      time.UnixMilli(createdAt),
		PresignedParts: parts,
	}, nil
}

// MarkPartPresigned 在 bitmap 中标记某个分片已签发上传地址，幂等。
// 编号直接作为 SETBIT 偏移量，超出协议范围时拒绝写入。
func (r *uploadSessionRepository) MarkPartPresigned(ctx context.Context, uploadID string, partNumber int) error {
	if partNumber < 1 || partNumber > model.MaxPartNumber {
		return fmt.Errorf("分片编号超出范围: %d", partNumber)
	}
	key := partsKey(uploadID)
	if err := r.redisClient.SetBit(ctx, key, int64(partNumber), 1).Err(); err != nil {
		return err
	}
	if r.ttl > 0 {
		return r.redisClient.Expire(ctx, key, r.ttl).Err()
	}
	return nil
}

// PresignedParts 从 bitmap 中解析出已签名的分片编号，按升序返回。
func (r *uploadSessionRepository) PresignedParts(ctx context.Context, uploadID string) ([]int, error) {
	bitmap, err := r.redisClient.Get(ctx, partsKey(uploadID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []int{}, nil
		}
		return nil, err
	}

	parts := make([]int, 0)
	for byteIndex, b := range bitmap {
		if b == 0 {
			continue
		}
		for bitIndex := 0; bitIndex < 8; bitIndex++ {
			if (b>>(7-bitIndex))&1 == 1 {
				parts = append(parts, byteIndex*8+bitIndex)
			}
		}
	}
	return parts, nil
}

// Delete 删除会话的所有 Redis 记录。
func (r *uploadSessionRepository) Delete(ctx context.Context, uploadID string) error {
	_, err := r.redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, sessionKey(uploadID), partsKey(uploadID))
		pipe.ZRem(ctx, sessionIndexKey, uploadID)
		return nil
	})
	return err
}

// ListStale 返回创建时间早于 before 的会话。元数据已过期的索引项会被顺手清理。
func (r *uploadSessionRepository) ListStale(ctx context.Context, before time.Time, limit int64) ([]model.UploadSession, error) {
	ids, err := r.redisClient.ZRangeByScore(ctx, sessionIndexKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(before.UnixMilli(), 10),
		Count: limit,
	}).Result()
	if err != nil {
		return nil, err
	}

	sessions := make([]model.UploadSession, 0, len(ids))
	for _, id := range ids {
		session, err := r.Get(ctx, id)
		if errors.Is(err, model.ErrUploadNotFound) {
			_ = r.redisClient.ZRem(ctx, sessionIndexKey, id).Err()
			continue
		}
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	return sessions, nil
}
