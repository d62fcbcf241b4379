// Package config 提供应用程序配置管理
// 基于viper实现，支持配置文件和环境变量两种来源
// 涵盖服务器、数据库、存储后端、文件上传、认证、多租户和日志配置
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config 应用程序总配置
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`   // HTTP服务器配置
	Database DatabaseConfig `mapstructure:"database"` // 数据库配置
	Storage  StorageConfig  `mapstructure:"storage"`  // 存储后端配置
	File     FileConfig     `mapstructure:"file"`     // 文件上传限制配置
	Auth     AuthConfig     `mapstructure:"auth"`     // 认证配置
	Tenant   TenantConfig   `mapstructure:"tenant"`   // 多租户配置
	Log      LogConfig      `mapstructure:"log"`      // 日志配置
}

// ServerConfig HTTP服务器配置
type ServerConfig struct {
	Host         string `mapstructure:"host"`          // 监听地址
	Port         int    `mapstructure:"port"`          // 监听端口
	ReadTimeout  int    `mapstructure:"read_timeout"`  // 读超时，单位为秒
	WriteTimeout int    `mapstructure:"write_timeout"` // 写超时，单位为秒
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`            // 数据库驱动，目前支持sqlite
	DSN             string `mapstructure:"dsn"`               // 数据源名称
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`    // 最大空闲连接数
	MaxOpenConns    int    `mapstructure:"max_open_conns"`    // 最大打开连接数
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // 连接最大生命周期，单位为秒
}

// StorageConfig 存储后端配置
// Type字段决定进程内激活的唯一存储提供商
type StorageConfig struct {
	Type      string          `mapstructure:"type"`       // 存储类型：local、aliyun、tencent、qiniu、s3
	LocalPath string          `mapstructure:"local_path"` // 本地存储根目录，仅local类型使用
	Aliyun    ObjectStoreConf `mapstructure:"aliyun"`     // 阿里云OSS配置
	Tencent   ObjectStoreConf `mapstructure:"tencent"`    // 腾讯云COS配置
	Qiniu     ObjectStoreConf `mapstructure:"qiniu"`      // 七牛云Kodo配置
	S3        ObjectStoreConf `mapstructure:"s3"`         // S3兼容存储配置（MinIO、AWS等）
}

// ObjectStoreConf 对象存储连接配置
// 各云服务商共用的连接认证信息
type ObjectStoreConf struct {
	Region    string `mapstructure:"region"`     // 服务区域
	Bucket    string `mapstructure:"bucket"`     // 存储桶名称
	AccessKey string `mapstructure:"access_key"` // 访问密钥ID
	SecretKey string `mapstructure:"secret_key"` // 访问密钥Secret
	Endpoint  string `mapstructure:"endpoint"`   // 自定义服务端点，可选
	UseSSL    bool   `mapstructure:"use_ssl"`    // 是否使用HTTPS，S3类型使用
}

// FileConfig 文件上传限制配置
type FileConfig struct {
	MaxFileSize       int64    `mapstructure:"max_file_size"`      // 单文件最大字节数
	AllowedExtensions []string `mapstructure:"allowed_extensions"` // 允许的扩展名列表，"*"表示不限制
}

// AuthConfig 认证配置
// 令牌由外部身份提供商签发，本服务仅做校验
type AuthConfig struct {
	JWTSecret    string `mapstructure:"jwt_secret"`    // HS256签名密钥
	JWTAlgorithm string `mapstructure:"jwt_algorithm"` // 签名算法，默认HS256
}

// TenantConfig 多租户配置
type TenantConfig struct {
	EnableMultiTenancy bool   `mapstructure:"enable_multi_tenancy"` // 是否启用多租户
	DefaultTenantID    string `mapstructure:"default_tenant_id"`    // 默认租户ID
}

// LogConfig 日志配置
type LogConfig struct {
	Level    string `mapstructure:"level"`     // 日志级别
	Format   string `mapstructure:"format"`    // 日志格式：json、text
	Output   string `mapstructure:"output"`    // 输出方式：console、file、both
	FilePath string `mapstructure:"file_path"` // 日志文件路径
}

// Load 加载应用程序配置
// 优先读取config.yaml，环境变量（前缀CONTENTVAULT_）可覆盖任意配置项
// 返回:
//   - *Config: 配置实例
//   - error: 加载或解析错误
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("CONTENTVAULT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// 配置文件缺失时仅依赖默认值和环境变量
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults 设置默认配置项
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 30)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "data/contentvault.db")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", 3600)

	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_path", "./uploads")

	v.SetDefault("file.max_file_size", 100*1024*1024)
	v.SetDefault("file.allowed_extensions", []string{"*"})

	v.SetDefault("auth.jwt_algorithm", "HS256")

	v.SetDefault("tenant.enable_multi_tenancy", true)
	v.SetDefault("tenant.default_tenant_id", "default")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.output", "console")
	v.SetDefault("log.file_path", "logs/app.log")
}

// validate 校验配置合法性
func validate(cfg *Config) error {
	switch cfg.Storage.Type {
	case "local", "aliyun", "tencent", "qiniu", "s3":
	default:
		return fmt.Errorf("unsupported storage type: %s", cfg.Storage.Type)
	}

	if cfg.Database.Driver != "sqlite" {
		return fmt.Errorf("unsupported database driver: %s", cfg.Database.Driver)
	}

	return nil
}
