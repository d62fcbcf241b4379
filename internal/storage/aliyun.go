package storage

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"

	"github.com/weiwangfds/contentvault/config"
	"github.com/weiwangfds/contentvault/internal/logger"
)

// AliyunProvider 阿里云OSS存储提供商
type AliyunProvider struct {
	client *oss.Client
	bucket *oss.Bucket
	conf   config.ObjectStoreConf
}

// NewAliyunProvider 创建阿里云OSS存储提供商
// 参数:
//   - conf: OSS连接配置，Endpoint为空时按Region推导公网端点
func NewAliyunProvider(conf config.ObjectStoreConf) (*AliyunProvider, error) {
	endpoint := conf.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://oss-%s.aliyuncs.com", conf.Region)
	}

	client, err := oss.New(endpoint, conf.AccessKey, conf.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create OSS client: %w", err)
	}

	bucket, err := client.Bucket(conf.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to get OSS bucket %s: %w", conf.Bucket, err)
	}

	logger.Infof("阿里云OSS存储提供商已初始化，存储桶: %s，端点: %s", conf.Bucket, endpoint)
	return &AliyunProvider{client: client, bucket: bucket, conf: conf}, nil
}

// Upload 上传对象到OSS
func (p *AliyunProvider) Upload(filePath string, content []byte, metadata map[string]string, tenantID string) (string, error) {
	key := objectKey(filePath, tenantID)

	options := make([]oss.Option, 0, len(metadata)+1)
	if ct, ok := metadata["content-type"]; ok {
		options = append(options, oss.ContentType(ct))
	}
	for k, v := range metadata {
		if k == "content-type" {
			continue
		}
		options = append(options, oss.Meta(k, v))
	}

	if err := p.bucket.PutObject(key, bytes.NewReader(content), options...); err != nil {
		return "", fmt.Errorf("failed to upload object %s: %w", key, err)
	}
	logger.Debugf("OSS上传完成: %s (%d 字节)", key, len(content))
	return filePath, nil
}

// Download 从OSS下载对象内容
func (p *AliyunProvider) Download(filePath string, tenantID string) ([]byte, error) {
	key := objectKey(filePath, tenantID)
	body, err := p.bucket.GetObject(key)
	if err != nil {
		return nil, fmt.Errorf("failed to download object %s: %w", key, err)
	}
	defer body.Close()

	content, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", key, err)
	}
	return content, nil
}

// Delete 删除OSS对象，对象不存在时返回false
func (p *AliyunProvider) Delete(filePath string, tenantID string) (bool, error) {
	key := objectKey(filePath, tenantID)
	exist, err := p.bucket.IsObjectExist(key)
	if err != nil {
		return false, fmt.Errorf("failed to check object %s: %w", key, err)
	}
	if !exist {
		return false, nil
	}
	if err := p.bucket.DeleteObject(key); err != nil {
		return false, fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return true, nil
}

// Exists 检查OSS对象是否存在
func (p *AliyunProvider) Exists(filePath string, tenantID string) bool {
	exist, err := p.bucket.IsObjectExist(objectKey(filePath, tenantID))
	if err != nil {
		logger.Warnf("OSS对象存在性检查失败: %v", err)
		return false
	}
	return exist
}

// GetMetadata 获取OSS对象元信息
func (p *AliyunProvider) GetMetadata(filePath string, tenantID string) (*ObjectInfo, error) {
	key := objectKey(filePath, tenantID)
	header, err := p.bucket.GetObjectDetailedMeta(key)
	if err != nil {
		return nil, fmt.Errorf("failed to get metadata for %s: %w", key, err)
	}

	size, _ := strconv.ParseInt(header.Get("Content-Length"), 10, 64)
	metadata := map[string]string{}
	for k := range header {
		lower := strings.ToLower(k)
		if strings.HasPrefix(lower, "x-oss-meta-") {
			metadata[strings.TrimPrefix(lower, "x-oss-meta-")] = header.Get(k)
		}
	}

	return &ObjectInfo{
		Key:          key,
		Size:         size,
		LastModified: header.Get("Last-Modified"),
		ContentType:  header.Get("Content-Type"),
		ETag:         strings.Trim(header.Get("Etag"), `"`),
		Metadata:     metadata,
	}, nil
}

// TestConnection 测试OSS连通性
func (p *AliyunProvider) TestConnection() error {
	exist, err := p.client.IsBucketExist(p.conf.Bucket)
	if err != nil {
		return fmt.Errorf("OSS connection test failed: %w", err)
	}
	if !exist {
		return fmt.Errorf("OSS bucket %s does not exist", p.conf.Bucket)
	}
	return nil
}
