package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"docflow-go/internal/model"
	"docflow-go/internal/service"
	"docflow-go/pkg/log"
)

// S3 要求除最后一个分片外每片至少 5MiB。
const partSize int64 = 5 * 1024 * 1024

// partUploader 把分片 PUT 到预签名地址并返回 ETag。
type partUploader interface {
	UploadPart(ctx context.Context, url string, body io.Reader, size int64) (string, error)
}

type httpPartUploader struct {
	client *http.Client
}

func newPartUploader() *httpPartUploader {
	return &httpPartUploader{client: &http.Client{Timeout: 5 * time.Minute}}
}

func (u *httpPartUploader) UploadPart(ctx context.Context, url string, body io.Reader, size int64) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, body)
	if err != nil {
		return "", err
	}
	req.ContentLength = size
	resp, err := u.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("上传分片失败, status=%d, body=%s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	etag := strings.Trim(resp.Header.Get("ETag"), `"`)
	if etag == "" {
		return "", errors.New("存储未返回 ETag")
	}
	return etag, nil
}

// importDir 扫描目录下的文件并通过标准上传流程导入。已存在的文件名跳过（幂等）。
func importDir(ctx context.Context, uploads service.UploadService, uploader partUploader, dir string) (imported, skipped int, err error) {
	info, err := os.Stat(dir)
	if err != nil {
		return 0, 0, err
	}
	if !info.IsDir() {
		return 0, 0, fmt.Errorf("%s 不是目录", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, 0, err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		err := importFile(ctx, uploads, uploader, path)
		switch {
		case err == nil:
			imported++
		case errors.Is(err, model.ErrDuplicateFilename):
			log.Infof("[importDir] 已存在，跳过: %s", entry.Name())
			skipped++
		default:
			log.Warnf("[importDir] 导入失败: %s, err=%v", path, err)
			skipped++
		}
		if ctx.Err() != nil {
			return imported, skipped, ctx.Err()
		}
	}
	return imported, skipped, nil
}

func importFile(ctx context.Context, uploads service.UploadService, uploader partUploader, path string) (err error) {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return err
	}
	if stat.Size() == 0 {
		return fmt.Errorf("空文件: %s", path)
	}
	filename := filepath.Base(path)

	uploadID, err := uploads.InitUpload(ctx, filename)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if abortErr := uploads.AbortUpload(context.WithoutCancel(ctx), filename, uploadID); abortErr != nil {
				log.Warnf("[importFile] 中止上传失败: uploadId=%s, err=%v", uploadID, abortErr)
			}
		}
	}()

	totalParts := int((stat.Size() + partSize - 1) / partSize)
	parts := make([]model.UploadPart, 0, totalParts)
	for i := 0; i < totalParts; i++ {
		partNumber := i + 1
		offset := int64(i) * partSize
		size := partSize
		if offset+size > stat.Size() {
			size = stat.Size() - offset
		}

		url, err := uploads.PresignPart(ctx, filename, uploadID, partNumber)
		if err != nil {
			return err
		}
		etag, err := uploader.UploadPart(ctx, url, io.NewSectionReader(file, offset, size), size)
		if err != nil {
			return fmt.Errorf("part %d: %w", partNumber, err)
		}
		parts = append(parts, model.UploadPart{PartNumber: partNumber, ETag: etag})
	}

	result, err := uploads.CompleteUpload(ctx, filename, uploadID, parts)
	if err != nil {
		return err
	}
	log.Infof("[importFile] 导入完成: %s, documentId=%s, status=%s", filename, result.DocumentID, result.Status)
	return nil
}
