package config

import (
	"log"
	"os"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Port      string `yaml:"port"`
		Password  string `yaml:"password"`   // 共享访问口令
		JWTSecret string `yaml:"jwt_secret"` // 登录 Cookie 签名密钥
	} `yaml:"server"`
	MySQL struct {
		DSN string `yaml:"dsn"` // 为空时使用内存存储（开发/降级模式）
	} `yaml:"mysql"`
	AI struct {
		ImageAPI       string  `yaml:"image_api"`
		TimeoutSeconds int     `yaml:"timeout_seconds"`
		CostPerImage   float64 `yaml:"cost_per_image"` // 每次调用的固定计费（美元）
	} `yaml:"ai"`
	Redis struct {
		Addr     string `yaml:"addr"` // 为空时模板集合使用内存版本库
		Password string `yaml:"password"`
	} `yaml:"redis"`
	MinIO struct {
		Endpoint  string `yaml:"endpoint"` // 为空时使用内存 Blob 存储
		AccessKey string `yaml:"access_key"`
		SecretKey string `yaml:"secret_key"`
		Bucket    string `yaml:"bucket"`
		UseSSL    bool   `yaml:"use_ssl"`
		Domain    string `yaml:"domain"`
	} `yaml:"minio"`
}

var AppConfig *Config

func InitConfig() {
	path := os.Getenv("PATTERNSTUDIO_CONFIG")
	if path == "" {
		path = "config/config.yaml"
	}
	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("配置文件读取失败: %v", err)
	}
	defer f.Close()
	decoder := yaml.NewDecoder(f)
	AppConfig = &Config{}
	if err := decoder.Decode(AppConfig); err != nil {
		log.Fatalf("配置文件解析失败: %v", err)
	}
	if AppConfig.AI.TimeoutSeconds <= 0 {
		AppConfig.AI.TimeoutSeconds = 60
	}
	if AppConfig.AI.CostPerImage <= 0 {
		AppConfig.AI.CostPerImage = 0.04
	}
}
