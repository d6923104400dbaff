package config

import (
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	Env       string `mapstructure:"env"`
	Port      int    `mapstructure:"port"`
	JWTSecret string `mapstructure:"jwt_secret"`
}

type MongoConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type KafkaConfig struct {
	Brokers          []string `mapstructure:"brokers"`
	TopicMessageSent string   `mapstructure:"topic_message_sent"`
	ConsumerGroup    string   `mapstructure:"consumer_group"`
}

type FCMConfig struct {
	Endpoint       string `mapstructure:"endpoint"`
	ServerKey      string `mapstructure:"server_key"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

type S3Config struct {
	Region     string `mapstructure:"region"`
	Bucket     string `mapstructure:"bucket"`
	PublicRead bool   `mapstructure:"public_read"`
}

type RateLimitConfig struct {
	PerMinute int `mapstructure:"per_minute"`
}

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Mongo     MongoConfig     `mapstructure:"mongo"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	FCM       FCMConfig       `mapstructure:"fcm"`
	S3        S3Config        `mapstructure:"s3"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`

	// derived
	FCMTimeout time.Duration
}

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()

	v.SetDefault("app.env", "dev")
	v.SetDefault("app.port", 8084)
	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "roomchat")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.prefix", "roomchat")
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic_message_sent", "message.sent")
	v.SetDefault("kafka.consumer_group", "roomchat-notifications")
	v.SetDefault("fcm.endpoint", "https://fcm.googleapis.com/fcm/send")
	v.SetDefault("fcm.timeout_seconds", 5)
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("rate_limit.per_minute", 120)

	// config file is optional; defaults plus env cover local runs
	_ = v.ReadInConfig()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}
	if c.FCM.TimeoutSeconds == 0 {
		c.FCM.TimeoutSeconds = 5
	}
	c.FCMTimeout = time.Duration(c.FCM.TimeoutSeconds) * time.Second
	return &c, nil
}
