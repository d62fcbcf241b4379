// Package metadata 提供XML附属文档的解析能力
// 上传时随附的XML文档被转换为通用的键值结构存入文件记录
// 解析失败被视为可容忍事件，绝不影响文件本身的上传
package metadata

import (
	"github.com/clbanning/mxj"

	"github.com/weiwangfds/contentvault/internal/database"
	"github.com/weiwangfds/contentvault/internal/logger"
)

// Result XML解析结果
// Ignored为true时Metadata为空，Reason说明被忽略的原因
type Result struct {
	Metadata database.JSONMap // 解析出的键值结构
	Ignored  bool             // 文档是否被忽略
	Reason   string           // 忽略原因，仅Ignored为true时有值
}

// Parse 解析XML附属文档
// 空文档和格式非法的文档都返回Ignored结果而非错误，
// 调用方据此决定是否记录XMLMetadata字段
func Parse(raw []byte) *Result {
	if len(raw) == 0 {
		return &Result{Ignored: true, Reason: "empty document"}
	}

	m, err := mxj.NewMapXml(raw)
	if err != nil {
		logger.Warnf("XML附属文档解析失败，已忽略: %v", err)
		return &Result{Ignored: true, Reason: err.Error()}
	}

	return &Result{Metadata: database.JSONMap(m)}
}
