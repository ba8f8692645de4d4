package storage

import (
	"context"
	"net/url"
	"testing"
	"time"

	"docflow-go/internal/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOfflineGateway(t *testing.T) *MinIOGateway {
	t.Helper()
	// Region 已知时预签名不需要访问存储端。
	client, err := minio.New("localhost:9000", &minio.Options{
		Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
		Region: "us-east-1",
	})
	require.NoError(t, err)
	return newGateway(client, config.MinIOConfig{BucketName: "documents", PresignExpiry: time.Hour})
}

func TestPresignUploadPart_UniquePerCall(t *testing.T) {
	g := newOfflineGateway(t)
	ctx := context.Background()

	first, err := g.PresignUploadPart(ctx, "a.pdf", "upload-1", 1)
	require.NoError(t, err)
	second, err := g.PresignUploadPart(ctx, "a.pdf", "upload-1", 1)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)

	u, err := url.Parse(first)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "1", q.Get("partNumber"))
	assert.Equal(t, "upload-1", q.Get("uploadId"))
	assert.Equal(t, "3600", q.Get("X-Amz-Expires"))
	assert.Equal(t, "/documents/a.pdf", u.Path)
}

func TestPresignUploadPart_InvalidPartNumber(t *testing.T) {
	g := newOfflineGateway(t)
	_, err := g.PresignUploadPart(context.Background(), "a.pdf", "upload-1", 0)
	assert.ErrorIs(t, err, ErrInvalidPartNumber)

	_, err = g.PresignUploadPart(context.Background(), "a.pdf", "upload-1", 10001)
	assert.ErrorIs(t, err, ErrInvalidPartNumber)

	signed, err := g.PresignUploadPart(context.Background(), "a.pdf", "upload-1", 10000)
	require.NoError(t, err)
	assert.Contains(t, signed, "partNumber=10000")
}

func TestNewGateway_DefaultExpiry(t *testing.T) {
	client, err := minio.New("localhost:9000", &minio.Options{Region: "us-east-1"})
	require.NoError(t, err)
	g := newGateway(client, config.MinIOConfig{BucketName: "b"})
	assert.Equal(t, time.Hour, g.presignExpiry)
	assert.Equal(t, "b", g.Bucket())
}

func TestReconcileParts(t *testing.T) {
	received := []Part{{PartNumber: 1, ETag: "e1"}, {PartNumber: 2, ETag: "\"e2\""}}

	t.Run("out of order parts are sorted", func(t *testing.T) {
		parts, err := reconcileParts([]Part{{PartNumber: 2, ETag: "e2"}, {PartNumber: 1, ETag: "\"e1\""}}, received)
		require.NoError(t, err)
		require.Len(t, parts, 2)
		assert.Equal(t, 1, parts[0].PartNumber)
		assert.Equal(t, "e1", parts[0].ETag)
		assert.Equal(t, 2, parts[1].PartNumber)
		assert.Equal(t, "e2", parts[1].ETag)
	})

	t.Run("missing part", func(t *testing.T) {
		_, err := reconcileParts([]Part{{PartNumber: 1, ETag: "e1"}}, received)
		assert.ErrorIs(t, err, ErrIncompleteParts)
	})

	t.Run("part the store never received", func(t *testing.T) {
		_, err := reconcileParts([]Part{{PartNumber: 1, ETag: "e1"}, {PartNumber: 3, ETag: "e3"}}, received)
		assert.ErrorIs(t, err, ErrIncompleteParts)
	})

	t.Run("etag mismatch", func(t *testing.T) {
		_, err := reconcileParts([]Part{{PartNumber: 1, ETag: "e1"}, {PartNumber: 2, ETag: "other"}}, received)
		assert.ErrorIs(t, err, ErrIncompleteParts)
	})

	t.Run("duplicate part number", func(t *testing.T) {
		_, err := reconcileParts([]Part{{PartNumber: 1, ETag: "e1"}, {PartNumber: 1, ETag: "e2"}}, received)
		assert.ErrorIs(t, err, ErrDuplicatePart)
	})

	t.Run("non positive part number", func(t *testing.T) {
		_, err := reconcileParts([]Part{{PartNumber: 0, ETag: "e1"}}, received)
		assert.ErrorIs(t, err, ErrInvalidPartNumber)
	})

	t.Run("part number above protocol limit", func(t *testing.T) {
		_, err := reconcileParts([]Part{{PartNumber: 10001, ETag: "e1"}}, received)
		assert.ErrorIs(t, err, ErrInvalidPartNumber)
	})
}

func TestDetectContentType(t *testing.T) {
	assert.Equal(t, "application/pdf", DetectContentType("report.PDF"))
	assert.Equal(t, "text/markdown", DetectContentType("notes.md"))
	assert.Equal(t, defaultContentType, DetectContentType("README"))
	assert.Equal(t, defaultContentType, DetectContentType("blob.zzqq"))
}
