package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tencentyun/cos-go-sdk-v5"

	"github.com/weiwangfds/contentvault/config"
	"github.com/weiwangfds/contentvault/internal/logger"
)

// tencentTimeout 腾讯云COS单次请求超时
const tencentTimeout = 30 * time.Second

// TencentProvider 腾讯云COS存储提供商
type TencentProvider struct {
	client *cos.Client
	conf   config.ObjectStoreConf
}

// NewTencentProvider 创建腾讯云COS存储提供商
func NewTencentProvider(conf config.ObjectStoreConf) (*TencentProvider, error) {
	rawURL := conf.Endpoint
	if rawURL == "" {
		rawURL = fmt.Sprintf("https://%s.cos.%s.myqcloud.com", conf.Bucket, conf.Region)
	}
	bucketURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid COS bucket URL %s: %w", rawURL, err)
	}

	client := cos.NewClient(&cos.BaseURL{BucketURL: bucketURL}, &http.Client{
		Timeout: tencentTimeout,
		Transport: &cos.AuthorizationTransport{
			SecretID:  conf.AccessKey,
			SecretKey: conf.SecretKey,
		},
	})

	logger.Infof("腾讯云COS存储提供商已初始化，存储桶URL: %s", bucketURL)
	return &TencentProvider{client: client, conf: conf}, nil
}

// Upload 上传对象到COS
func (p *TencentProvider) Upload(filePath string, content []byte, metadata map[string]string, tenantID string) (string, error) {
	key := objectKey(filePath, tenantID)

	header := http.Header{}
	opt := &cos.ObjectPutOptions{
		ObjectPutHeaderOptions: &cos.ObjectPutHeaderOptions{XCosMetaXXX: &header},
	}
	for k, v := range metadata {
		if k == "content-type" {
			opt.ObjectPutHeaderOptions.ContentType = v
			continue
		}
		header.Set("x-cos-meta-"+k, v)
	}

	ctx, cancel := context.WithTimeout(context.Background(), tencentTimeout)
	defer cancel()

	if _, err := p.client.Object.Put(ctx, key, bytes.NewReader(content), opt); err != nil {
		return "", fmt.Errorf("failed to upload object %s: %w", key, err)
	}
	logger.Debugf("COS上传完成: %s (%d 字节)", key, len(content))
	return filePath, nil
}

// Download 从COS下载对象内容
func (p *TencentProvider) Download(filePath string, tenantID string) ([]byte, error) {
	key := objectKey(filePath, tenantID)

	ctx, cancel := context.WithTimeout(context.Background(), tencentTimeout)
	defer cancel()

	resp, err := p.client.Object.Get(ctx, key, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to download object %s: %w", key, err)
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", key, err)
	}
	return content, nil
}

// Delete 删除COS对象，对象不存在时返回false
func (p *TencentProvider) Delete(filePath string, tenantID string) (bool, error) {
	key := objectKey(filePath, tenantID)

	ctx, cancel := context.WithTimeout(context.Background(), tencentTimeout)
	defer cancel()

	exist, err := p.client.Object.IsExist(ctx, key)
	if err != nil {
		return false, fmt.Errorf("failed to check object %s: %w", key, err)
	}
	if !exist {
		return false, nil
	}
	if _, err := p.client.Object.Delete(ctx, key); err != nil {
		return false, fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return true, nil
}

// Exists 检查COS对象是否存在
func (p *TencentProvider) Exists(filePath string, tenantID string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), tencentTimeout)
	defer cancel()

	exist, err := p.client.Object.IsExist(ctx, objectKey(filePath, tenantID))
	if err != nil {
		logger.Warnf("COS对象存在性检查失败: %v", err)
		return false
	}
	return exist
}

// GetMetadata 获取COS对象元信息
func (p *TencentProvider) GetMetadata(filePath string, tenantID string) (*ObjectInfo, error) {
	key := objectKey(filePath, tenantID)

	ctx, cancel := context.WithTimeout(context.Background(), tencentTimeout)
	defer cancel()

	resp, err := p.client.Object.Head(ctx, key, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get metadata for %s: %w", key, err)
	}
	defer resp.Body.Close()

	metadata := map[string]string{}
	for k := range resp.Header {
		lower := strings.ToLower(k)
		if strings.HasPrefix(lower, "x-cos-meta-") {
			metadata[strings.TrimPrefix(lower, "x-cos-meta-")] = resp.Header.Get(k)
		}
	}

	return &ObjectInfo{
		Key:          key,
		Size:         resp.ContentLength,
		LastModified: resp.Header.Get("Last-Modified"),
		ContentType:  resp.Header.Get("Content-Type"),
		ETag:         strings.Trim(resp.Header.Get("Etag"), `"`),
		Metadata:     metadata,
	}, nil
}

// TestConnection 测试COS连通性
func (p *TencentProvider) TestConnection() error {
	ctx, cancel := context.WithTimeout(context.Background(), tencentTimeout)
	defer cancel()

	if _, err := p.client.Bucket.Head(ctx); err != nil {
		return fmt.Errorf("COS connection test failed: %w", err)
	}
	return nil
}
