package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/weiwangfds/contentvault/config"
	"github.com/weiwangfds/contentvault/internal/logger"
)

// s3Timeout S3单次请求超时
const s3Timeout = 30 * time.Second

// S3Provider S3兼容存储提供商
// 覆盖AWS S3、MinIO及其他兼容S3协议的对象存储
type S3Provider struct {
	client *minio.Client
	bucket string
}

// NewS3Provider 创建S3兼容存储提供商
func NewS3Provider(conf config.ObjectStoreConf) (*S3Provider, error) {
	endpoint := conf.Endpoint
	if endpoint == "" {
		endpoint = "s3.amazonaws.com"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(conf.AccessKey, conf.SecretKey, ""),
		Secure: conf.UseSSL,
		Region: conf.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}

	logger.Infof("S3存储提供商已初始化，端点: %s，存储桶: %s", endpoint, conf.Bucket)
	return &S3Provider{client: client, bucket: conf.Bucket}, nil
}

// isNoSuchKey 判断S3错误是否为对象不存在
func isNoSuchKey(err error) bool {
	var resp minio.ErrorResponse
	if errors.As(err, &resp) {
		return resp.Code == "NoSuchKey" || resp.Code == "NotFound"
	}
	return false
}

// Upload 上传对象到S3
func (p *S3Provider) Upload(filePath string, content []byte, metadata map[string]string, tenantID string) (string, error) {
	key := objectKey(filePath, tenantID)

	opts := minio.PutObjectOptions{}
	if len(metadata) > 0 {
		userMeta := make(map[string]string, len(metadata))
		for k, v := range metadata {
			if k == "content-type" {
				opts.ContentType = v
				continue
			}
			userMeta[k] = v
		}
		opts.UserMetadata = userMeta
	}

	ctx, cancel := context.WithTimeout(context.Background(), s3Timeout)
	defer cancel()

	_, err := p.client.PutObject(ctx, p.bucket, key, bytes.NewReader(content), int64(len(content)), opts)
	if err != nil {
		return "", fmt.Errorf("failed to upload object %s: %w", key, err)
	}
	logger.Debugf("S3上传完成: %s (%d 字节)", key, len(content))
	return filePath, nil
}

// Download 从S3下载对象内容
func (p *S3Provider) Download(filePath string, tenantID string) ([]byte, error) {
	key := objectKey(filePath, tenantID)

	ctx, cancel := context.WithTimeout(context.Background(), s3Timeout)
	defer cancel()

	obj, err := p.client.GetObject(ctx, p.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to download object %s: %w", key, err)
	}
	defer obj.Close()

	content, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", key, err)
	}
	return content, nil
}

// Delete 删除S3对象，对象不存在时返回false
func (p *S3Provider) Delete(filePath string, tenantID string) (bool, error) {
	key := objectKey(filePath, tenantID)

	ctx, cancel := context.WithTimeout(context.Background(), s3Timeout)
	defer cancel()

	if _, err := p.client.StatObject(ctx, p.bucket, key, minio.StatObjectOptions{}); err != nil {
		if isNoSuchKey(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check object %s: %w", key, err)
	}
	if err := p.client.RemoveObject(ctx, p.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return false, fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return true, nil
}

// Exists 检查S3对象是否存在
func (p *S3Provider) Exists(filePath string, tenantID string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), s3Timeout)
	defer cancel()

	_, err := p.client.StatObject(ctx, p.bucket, objectKey(filePath, tenantID), minio.StatObjectOptions{})
	if err != nil {
		if !isNoSuchKey(err) {
			logger.Warnf("S3对象存在性检查失败: %v", err)
		}
		return false
	}
	return true
}

// GetMetadata 获取S3对象元信息
func (p *S3Provider) GetMetadata(filePath string, tenantID string) (*ObjectInfo, error) {
	key := objectKey(filePath, tenantID)

	ctx, cancel := context.WithTimeout(context.Background(), s3Timeout)
	defer cancel()

	stat, err := p.client.StatObject(ctx, p.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get metadata for %s: %w", key, err)
	}

	metadata := make(map[string]string, len(stat.UserMetadata))
	for k, v := range stat.UserMetadata {
		metadata[strings.ToLower(k)] = v
	}

	return &ObjectInfo{
		Key:          key,
		Size:         stat.Size,
		LastModified: stat.LastModified.UTC().Format(time.RFC3339),
		ContentType:  stat.ContentType,
		ETag:         strings.Trim(stat.ETag, `"`),
		Metadata:     metadata,
	}, nil
}

// TestConnection 测试S3连通性
func (p *S3Provider) TestConnection() error {
	ctx, cancel := context.WithTimeout(context.Background(), s3Timeout)
	defer cancel()

	exists, err := p.client.BucketExists(ctx, p.bucket)
	if err != nil {
		return fmt.Errorf("S3 connection test failed: %w", err)
	}
	if !exists {
		return fmt.Errorf("S3 bucket %s does not exist", p.bucket)
	}
	return nil
}
