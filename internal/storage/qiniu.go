package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/qiniu/go-sdk/v7/auth/qbox"
	kodo "github.com/qiniu/go-sdk/v7/storage"

	"github.com/weiwangfds/contentvault/config"
	"github.com/weiwangfds/contentvault/internal/logger"
)

// QiniuProvider 七牛云Kodo存储提供商
// Kodo没有直连下载API，下载通过带签名的私有链接完成
type QiniuProvider struct {
	mac          *qbox.Mac
	bucketName   string
	bucketDomain string
	region       *kodo.Region
}

// NewQiniuProvider 创建七牛云Kodo存储提供商
// 区域信息通过AccessKey和存储桶名在线查询
func NewQiniuProvider(conf config.ObjectStoreConf) (*QiniuProvider, error) {
	mac := qbox.NewMac(conf.AccessKey, conf.SecretKey)

	region, err := kodo.GetRegion(conf.AccessKey, conf.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to get qiniu region: %w", err)
	}

	bucketDomain := conf.Endpoint
	if bucketDomain == "" {
		bucketDomain = fmt.Sprintf("%s.%s", conf.Bucket, region.RsHost)
	}

	logger.Infof("七牛云Kodo存储提供商已初始化，存储桶: %s，下载域名: %s", conf.Bucket, bucketDomain)
	return &QiniuProvider{
		mac:          mac,
		bucketName:   conf.Bucket,
		bucketDomain: bucketDomain,
		region:       region,
	}, nil
}

// bucketManager 创建存储桶管理器
func (p *QiniuProvider) bucketManager() *kodo.BucketManager {
	return kodo.NewBucketManager(p.mac, &kodo.Config{Region: p.region})
}

// isNotExist 判断Kodo错误是否为对象不存在
func isNotExist(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such file or directory")
}

// Upload 上传对象到Kodo
// 自定义元数据通过x:前缀的魔法变量附加
func (p *QiniuProvider) Upload(filePath string, content []byte, metadata map[string]string, tenantID string) (string, error) {
	key := objectKey(filePath, tenantID)

	putPolicy := kodo.PutPolicy{
		Scope: fmt.Sprintf("%s:%s", p.bucketName, key),
	}
	upToken := putPolicy.UploadToken(p.mac)

	cfg := kodo.Config{
		Region:   p.region,
		UseHTTPS: true,
	}
	formUploader := kodo.NewFormUploader(&cfg)
	ret := kodo.PutRet{}

	putExtra := kodo.PutExtra{}
	if ct, ok := metadata["content-type"]; ok {
		putExtra.MimeType = ct
	}
	if len(metadata) > 0 {
		params := make(map[string]string, len(metadata))
		for k, v := range metadata {
			if k == "content-type" {
				continue
			}
			params["x:"+k] = v
		}
		putExtra.Params = params
	}

	err := formUploader.Put(context.Background(), &ret, upToken, key, bytes.NewReader(content), int64(len(content)), &putExtra)
	if err != nil {
		return "", fmt.Errorf("failed to upload object %s: %w", key, err)
	}
	logger.Debugf("Kodo上传完成: %s (%d 字节)", key, len(content))
	return filePath, nil
}

// Download 通过私有签名链接下载对象内容
func (p *QiniuProvider) Download(filePath string, tenantID string) ([]byte, error) {
	key := objectKey(filePath, tenantID)

	deadline := time.Now().Add(time.Hour).Unix()
	privateURL := kodo.MakePrivateURL(p.mac, p.bucketDomain, key, deadline)

	resp, err := http.Get(privateURL)
	if err != nil {
		return nil, fmt.Errorf("failed to download object %s: %w", key, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download object %s, status: %s", key, resp.Status)
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", key, err)
	}
	return content, nil
}

// Delete 删除Kodo对象，对象不存在时返回false
func (p *QiniuProvider) Delete(filePath string, tenantID string) (bool, error) {
	key := objectKey(filePath, tenantID)

	err := p.bucketManager().Delete(p.bucketName, key)
	if err != nil {
		if isNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return true, nil
}

// Exists 检查Kodo对象是否存在
func (p *QiniuProvider) Exists(filePath string, tenantID string) bool {
	key := objectKey(filePath, tenantID)

	_, err := p.bucketManager().Stat(p.bucketName, key)
	if err != nil {
		if !isNotExist(err) {
			logger.Warnf("Kodo对象存在性检查失败: %v", err)
		}
		return false
	}
	return true
}

// GetMetadata 获取Kodo对象元信息
// Kodo的Stat不回传魔法变量，Metadata字段始终为空映射
func (p *QiniuProvider) GetMetadata(filePath string, tenantID string) (*ObjectInfo, error) {
	key := objectKey(filePath, tenantID)

	fileInfo, err := p.bucketManager().Stat(p.bucketName, key)
	if err != nil {
		return nil, fmt.Errorf("failed to get metadata for %s: %w", key, err)
	}

	return &ObjectInfo{
		Key:          key,
		Size:         fileInfo.Fsize,
		LastModified: time.Unix(fileInfo.PutTime/10000000, 0).UTC().Format(time.RFC3339),
		ContentType:  fileInfo.MimeType,
		ETag:         fileInfo.Hash,
		Metadata:     map[string]string{},
	}, nil
}

// TestConnection 测试Kodo连通性
func (p *QiniuProvider) TestConnection() error {
	_, _, _, _, err := p.bucketManager().ListFiles(p.bucketName, "", "", "", 1)
	if err != nil {
		return fmt.Errorf("qiniu kodo connection test failed: %w", err)
	}
	return nil
}
