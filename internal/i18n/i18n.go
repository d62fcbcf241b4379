// Package i18n 提供国际化支持
// 负责管理应用程序的语言包和错误消息翻译
package i18n

import (
	"sync"

	"github.com/go-playground/locales/en_US"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/weiwangfds/contentvault/internal/logger"
)

// 支持的语言
const (
	LangZhCN = "zh-CN"
	LangEnUS = "en-US"
)

var (
	instance *I18n
	once     sync.Once

	// 语言包存储
	translations = map[string]map[string]string{
		LangZhCN: {
			"success":               "成功",
			"internal_server_error": "服务器内部错误",
			"invalid_params":        "参数错误",
			"validation_failed":     "校验失败",
			"unauthorized":          "未授权",
			"forbidden":             "禁止访问",
			"not_found":             "资源未找到",

			"authentication_failed": "认证失败",
			"authorization_failed":  "权限不足",
			"token_invalid":         "令牌无效或已过期",

			"tenant_error":         "租户操作失败",
			"tenant_not_found":     "租户未找到",
			"tenant_inactive":      "租户已停用",
			"tenant_access_denied": "无权访问该租户",

			"file_not_found":     "文件未找到",
			"file_upload_failed": "文件上传失败",
			"filename_required":  "文件名不能为空",
			"limit_exceeded":     "分页大小超出上限",

			"share_not_found":   "分享未找到",
			"share_expired":     "分享已过期",
			"share_exhausted":   "分享下载次数已用尽",
			"share_forbidden":   "分享不允许该操作",
			"share_password":    "分享密码错误",

			"storage_error":           "存储操作失败",
			"storage_not_initialized": "存储提供商未初始化",
			"storage_not_supported":   "存储提供商不支持",

			"database_error":   "数据库操作失败",
			"record_not_found": "记录未找到",

			"metadata_error": "元数据处理失败",

			"user_not_found": "用户未找到",

			"unknown_error": "未知错误",
		},
		LangEnUS: {
			"success":               "Success",
			"internal_server_error": "Internal Server Error",
			"invalid_params":        "Invalid Parameters",
			"validation_failed":     "Validation Failed",
			"unauthorized":          "Unauthorized",
			"forbidden":             "Forbidden",
			"not_found":             "Resource Not Found",

			"authentication_failed": "Authentication Failed",
			"authorization_failed":  "Access Denied",
			"token_invalid":         "Invalid or Expired Token",

			"tenant_error":         "Tenant Operation Failed",
			"tenant_not_found":     "Tenant Not Found",
			"tenant_inactive":      "Tenant Is Not Active",
			"tenant_access_denied": "Access Denied to This Tenant",

			"file_not_found":     "File Not Found",
			"file_upload_failed": "File Upload Failed",
			"filename_required":  "Filename Is Required",
			"limit_exceeded":     "Page Limit Exceeded",

			"share_not_found": "Share Not Found",
			"share_expired":   "Share Has Expired",
			"share_exhausted": "Share Download Limit Reached",
			"share_forbidden": "Share Does Not Allow This Operation",
			"share_password":  "Invalid Share Password",

			"storage_error":           "Storage Operation Failed",
			"storage_not_initialized": "Storage Provider Not Initialized",
			"storage_not_supported":   "Storage Provider Not Supported",

			"database_error":   "Database Operation Failed",
			"record_not_found": "Record Not Found",

			"metadata_error": "Metadata Processing Failed",

			"user_not_found": "User Not Found",

			"unknown_error": "Unknown Error",
		},
	}
)

// I18n 国际化管理器
type I18n struct {
	translators map[string]ut.Translator
	defaultLang string
}

// GetInstance 获取I18n单例
func GetInstance() *I18n {
	once.Do(func() {
		instance = &I18n{
			translators: make(map[string]ut.Translator),
			defaultLang: LangEnUS,
		}
		instance.initTranslators()
	})
	return instance
}

// initTranslators 初始化翻译器
func (i *I18n) initTranslators() {
	zhCN := zh.New()
	enUS := en_US.New()
	uni := ut.New(enUS, zhCN, enUS)

	langMappings := map[string]string{
		LangZhCN: "zh",
		LangEnUS: "en_US",
	}

	for ourLang, localeLang := range langMappings {
		trans, found := uni.GetTranslator(localeLang)
		if !found {
			logger.Errorf("初始化翻译器失败 for language %s (locale: %s): translator not found", ourLang, localeLang)
			continue
		}
		i.translators[ourLang] = trans
	}
}

// Translate 根据键和语言获取翻译
func (i *I18n) Translate(key, lang string) string {
	if translation, found := translations[lang][key]; found {
		return translation
	}

	// 当前语言未命中时回退到默认语言
	if lang != i.defaultLang {
		if translation, found := translations[i.defaultLang][key]; found {
			return translation
		}
	}

	logger.Warnf("未找到翻译: %s, 语言: %s", key, lang)
	return key
}

// SetDefaultLanguage 设置默认语言
func (i *I18n) SetDefaultLanguage(lang string) {
	i.defaultLang = lang
}

// GetDefaultLanguage 获取默认语言
func (i *I18n) GetDefaultLanguage() string {
	return i.defaultLang
}

// IsSupportedLanguage 检查语言是否支持
func (i *I18n) IsSupportedLanguage(lang string) bool {
	_, exists := i.translators[lang]
	return exists
}
