package config

import (
	"time"

	"github.com/spf13/viper"
)

type AppConf struct {
	Env            string `mapstructure:"env"`
	Port           int    `mapstructure:"port"`
	ShutdownSecond int    `mapstructure:"shutdown_seconds"`
	ReadSeconds    int    `mapstructure:"read_timeout_seconds"`
	WriteSeconds   int    `mapstructure:"write_timeout_seconds"`
}

type MongoConf struct {
	URI        string `mapstructure:"uri"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
}

type AWSConf struct {
	Region   string `mapstructure:"region"`
	Bucket   string `mapstructure:"bucket"`
	Endpoint string `mapstructure:"endpoint"`
}

type S3Conf struct {
	PublicRead bool `mapstructure:"public_read"`
	PresignTTL int  `mapstructure:"presign_ttl_seconds"`
}

type RedisConf struct {
	Addr        string `mapstructure:"addr"`
	Password    string `mapstructure:"password"`
	DB          int    `mapstructure:"db"`
	URLCacheTTL int    `mapstructure:"url_cache_ttl_seconds"`
}

type JWTConf struct {
	PublicKeyPath string `mapstructure:"public_key_path"`
}

type RateLimitConf struct {
	IPPerMinute  int `mapstructure:"ip_per_minute"`
	UploadPerMin int `mapstructure:"upload_per_minute"`
}

type ReconcileConf struct {
	VerifyExisting       bool `mapstructure:"verify_existing"`
	AbortOnDeleteFailure bool `mapstructure:"abort_on_delete_failure"`
}

type Config struct {
	App       AppConf       `mapstructure:"app"`
	Mongo     MongoConf     `mapstructure:"mongodb"`
	AWS       AWSConf       `mapstructure:"aws"`
	S3        S3Conf        `mapstructure:"s3"`
	Redis     RedisConf     `mapstructure:"redis"`
	JWT       JWTConf       `mapstructure:"jwt"`
	RateLimit RateLimitConf `mapstructure:"rate_limit"`
	Reconcile ReconcileConf `mapstructure:"reconcile"`

	// derived
	ShutdownTimeout time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	PresignTTL      time.Duration
	URLCacheTTL     time.Duration
}

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if cfg.App.ShutdownSecond == 0 {
		cfg.App.ShutdownSecond = 15
	}
	if cfg.App.ReadSeconds == 0 {
		cfg.App.ReadSeconds = 30
	}
	if cfg.App.WriteSeconds == 0 {
		cfg.App.WriteSeconds = 30
	}
	if cfg.Mongo.Collection == "" {
		cfg.Mongo.Collection = "records"
	}
	if cfg.S3.PresignTTL == 0 {
		cfg.S3.PresignTTL = 600
	}
	if cfg.Redis.URLCacheTTL == 0 {
		cfg.Redis.URLCacheTTL = cfg.S3.PresignTTL
	}
	if cfg.RateLimit.IPPerMinute == 0 {
		cfg.RateLimit.IPPerMinute = 300
	}
	if cfg.RateLimit.UploadPerMin == 0 {
		cfg.RateLimit.UploadPerMin = 30
	}
	cfg.ShutdownTimeout = time.Duration(cfg.App.ShutdownSecond) * time.Second
	cfg.ReadTimeout = time.Duration(cfg.App.ReadSeconds) * time.Second
	cfg.WriteTimeout = time.Duration(cfg.App.WriteSeconds) * time.Second
	cfg.PresignTTL = time.Duration(cfg.S3.PresignTTL) * time.Second
	cfg.URLCacheTTL = time.Duration(cfg.Redis.URLCacheTTL) * time.Second
	return &cfg, nil
}
