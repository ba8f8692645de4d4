// Package storage 提供了与对象存储服务（如 MinIO）交互的功能。
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"docflow-go/internal/config"
	"docflow-go/internal/model"
	"docflow-go/pkg/log"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// 存储网关返回的错误。
var (
	ErrInvalidPartNumber = errors.New("partNumber must be between 1 and 10000")
	ErrIncompleteParts   = errors.New("supplied parts do not match the parts received by the store")
	ErrDuplicatePart     = errors.New("duplicate part number")
	ErrObjectNotFound    = errors.New("object not found")
	ErrUploadNotFound    = errors.New("multipart upload not found")
)

const (
	defaultPresignExpiry = time.Hour
	maxListParts         = 1000
)

// Part 是一个已上传分片的编号和 ETag。
type Part struct {
	PartNumber int
	ETag       string
}

// ObjectInfo 是已提交对象的元数据。
type ObjectInfo struct {
	Key          string
	ContentType  string
	Size         int64
	ETag         string
	LastModified time.Time
}

// MinIOGateway 封装 MinIO 的分片上传协议。
type MinIOGateway struct {
	client        *minio.Client
	core          *minio.Core
	bucket        string
	presignExpiry time.Duration
}

// NewMinIOGateway 初始化 MinIO 客户端并确保指定的存储桶存在。
func NewMinIOGateway(ctx context.Context, cfg config.MinIOConfig) (*MinIOGateway, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化 MinIO 客户端失败: %w", err)
	}
	log.Info("MinIO 客户端初始化成功")

	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("检查 MinIO 存储桶失败: %w", err)
	}
	if !exists {
		log.Infof("存储桶 '%s' 不存在，正在创建...", cfg.BucketName)
		if err := client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("创建 MinIO 存储桶失败: %w", err)
		}
		log.Infof("存储桶 '%s' 创建成功", cfg.BucketName)
	} else {
		log.Infof("存储桶 '%s' 已存在", cfg.BucketName)
	}
	return newGateway(client, cfg), nil
}

func newGateway(client *minio.Client, cfg config.MinIOConfig) *MinIOGateway {
	expiry := cfg.PresignExpiry
	if expiry <= 0 {
		expiry = defaultPresignExpiry
	}
	return &MinIOGateway{
		client:        client,
		core:          &minio.Core{Client: client},
		bucket:        cfg.BucketName,
		presignExpiry: expiry,
	}
}

// Bucket 返回网关使用的存储桶名称。
func (g *MinIOGateway) Bucket() string {
	return g.bucket
}

// CreateMultipartUpload 在存储中分配一个新的分片上传 ID。
func (g *MinIOGateway) CreateMultipartUpload(ctx context.Context, key, contentType string) (string, error) {
	uploadID, err := g.core.NewMultipartUpload(ctx, g.bucket, key, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("failed to init multipart upload: %w", err)
	}
	return uploadID, nil
}

// PresignUploadPart 为单个分片生成限时 PUT 地址。每次调用都带一个随机 nonce，
// 所以同一分片重复申请也会得到不同的 URL。不会改变存储端状态。
func (g *MinIOGateway) PresignUploadPart(ctx context.Context, key, uploadID string, partNumber int) (string, error) {
	if !validPartNumber(partNumber) {
		return "", ErrInvalidPartNumber
	}
	reqParams := make(url.Values)
	reqParams.Set("partNumber", strconv.Itoa(partNumber))
	reqParams.Set("uploadId", uploadID)
	reqParams.Set("nonce", uuid.NewString())

	presignedURL, err := g.core.PresignHeader(ctx, http.MethodPut, g.bucket, key, g.presignExpiry, reqParams, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL for part: %w", err)
	}
	return presignedURL.String(), nil
}

// ListUploadedParts 分页列出存储已收到的分片。
func (g *MinIOGateway) ListUploadedParts(ctx context.Context, key, uploadID string) ([]Part, error) {
	var parts []Part
	marker := 0
	for {
		result, err := g.core.ListObjectParts(ctx, g.bucket, key, uploadID, marker, maxListParts)
		if err != nil {
			if isUploadMissing(err) {
				return nil, ErrUploadNotFound
			}
			return nil, fmt.Errorf("failed to list parts: %w", err)
		}
		for _, p := range result.ObjectParts {
			parts = append(parts, Part{PartNumber: p.PartNumber, ETag: cleanETag(p.ETag)})
		}
		if !result.IsTruncated || result.NextPartNumberMarker <= marker {
			break
		}
		marker = result.NextPartNumberMarker
	}
	return parts, nil
}

// CompleteUpload 校验客户端提交的分片与存储实际收到的分片一致后合并为一个对象。
// 不一致时返回 ErrIncompleteParts，不会提交任何对象。
func (g *MinIOGateway) CompleteUpload(ctx context.Context, key, uploadID string, parts []Part) (string, error) {
	received, err := g.ListUploadedParts(ctx, key, uploadID)
	if err != nil {
		return "", err
	}
	completeParts, err := reconcileParts(parts, received)
	if err != nil {
		return "", err
	}

	info, err := g.core.CompleteMultipartUpload(ctx, g.bucket, key, uploadID, completeParts, minio.PutObjectOptions{})
	if err != nil {
		if isUploadMissing(err) {
			return "", ErrUploadNotFound
		}
		if minio.ToErrorResponse(err).Code == "InvalidPart" {
			return "", fmt.Errorf("%w: %v", ErrIncompleteParts, err)
		}
		return "", fmt.Errorf("failed to complete multipart upload: %w", err)
	}
	location := info.Location
	if location == "" {
		location = fmt.Sprintf("%s/%s/%s", g.client.EndpointURL().String(), g.bucket, key)
	}
	return location, nil
}

func validPartNumber(n int) bool {
	return n >= 1 && n <= model.MaxPartNumber
}

// reconcileParts 要求提交的分片编号集合与已收到的完全一致且 ETag 相同（忽略引号），
// 返回按编号排序后的合并列表。
func reconcileParts(supplied, received []Part) ([]minio.CompletePart, error) {
	seen := make(map[int]string, len(supplied))
	for _, p := range supplied {
		if !validPartNumber(p.PartNumber) {
			return nil, ErrInvalidPartNumber
		}
		if _, dup := seen[p.PartNumber]; dup {
			return nil, fmt.Errorf("%w: %d", ErrDuplicatePart, p.PartNumber)
		}
		seen[p.PartNumber] = cleanETag(p.ETag)
	}
	if len(received) != len(supplied) {
		return nil, fmt.Errorf("%w: supplied %d, received %d", ErrIncompleteParts, len(supplied), len(received))
	}
	for _, r := range received {
		etag, ok := seen[r.PartNumber]
		if !ok {
			return nil, fmt.Errorf("%w: part %d was not supplied", ErrIncompleteParts, r.PartNumber)
		}
		if etag != cleanETag(r.ETag) {
			return nil, fmt.Errorf("%w: etag mismatch for part %d", ErrIncompleteParts, r.PartNumber)
		}
	}

	completeParts := make([]minio.CompletePart, 0, len(supplied))
	for number, etag := range seen {
		completeParts = append(completeParts, minio.CompletePart{PartNumber: number, ETag: etag})
	}
	sort.Slice(completeParts, func(i, j int) bool {
		return completeParts[i].PartNumber < completeParts[j].PartNumber
	})
	return completeParts, nil
}

// InspectObject 获取已提交对象的元数据。
func (g *MinIOGateway) InspectObject(ctx context.Context, key string) (*ObjectInfo, error) {
	info, err := g.client.StatObject(ctx, g.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isObjectMissing(err) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to get object info: %w", err)
	}
	return toObjectInfo(info), nil
}

// AbortUpload 释放未完成上传的存储端资源。已中止或已完成的上传视为成功。
func (g *MinIOGateway) AbortUpload(ctx context.Context, key, uploadID string) error {
	err := g.core.AbortMultipartUpload(ctx, g.bucket, key, uploadID)
	if err != nil {
		if isUploadMissing(err) {
			log.Infof("[AbortUpload] 上传已不存在，视为已中止: key=%s, uploadId=%s", key, uploadID)
			return nil
		}
		return fmt.Errorf("failed to abort multipart upload: %w", err)
	}
	log.Infof("[AbortUpload] 分片上传已中止: key=%s, uploadId=%s", key, uploadID)
	return nil
}

// DeleteObject 删除对象。对象不存在时返回 ErrObjectNotFound。
func (g *MinIOGateway) DeleteObject(ctx context.Context, key string) error {
	if _, err := g.InspectObject(ctx, key); err != nil {
		return err
	}
	if err := g.client.RemoveObject(ctx, g.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	log.Infof("[DeleteObject] 对象已删除: bucket=%s, key=%s", g.bucket, key)
	return nil
}

// ListObjects 递归列出指定前缀下的所有对象。
func (g *MinIOGateway) ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var objects []ObjectInfo
	for obj := range g.client.ListObjects(ctx, g.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", obj.Err)
		}
		objects = append(objects, *toObjectInfo(obj))
	}
	return objects, nil
}

func toObjectInfo(info minio.ObjectInfo) *ObjectInfo {
	return &ObjectInfo{
		Key:          info.Key,
		ContentType:  info.ContentType,
		Size:         info.Size,
		ETag:         cleanETag(info.ETag),
		LastModified: info.LastModified,
	}
}

func cleanETag(etag string) string {
	return strings.Trim(etag, "\"")
}

func isUploadMissing(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchUpload"
}

func isObjectMissing(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound"
}
