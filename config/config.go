// server/config/config.go
package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// --- Sub-structs, mirroring the YAML layout ---

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	GinMode         string        `mapstructure:"ginMode"`
	ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout"`
	CORSOrigins     []string      `mapstructure:"corsOrigins"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// StorageConfig selects the persistence backend: "mongo" or "memory".
type StorageConfig struct {
	Driver string `mapstructure:"driver"`
}

type MongoConfig struct {
	URI            string        `mapstructure:"uri"`
	DBName         string        `mapstructure:"dbName"`
	ConnectTimeout time.Duration `mapstructure:"connectTimeout"`
}

type JWTConfig struct {
	Secret   string `mapstructure:"secret"`
	Issuer   string `mapstructure:"issuer"`
	Audience string `mapstructure:"audience"`
}

type MQTTConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Broker         string        `mapstructure:"broker"`
	ClientID       string        `mapstructure:"clientID"`
	Username       string        `mapstructure:"username"`
	Password       string        `mapstructure:"password"`
	Topics         []string      `mapstructure:"topics"`
	QoS            byte          `mapstructure:"qos"`
	MessageTimeout time.Duration `mapstructure:"messageTimeout"`
}

type NATSConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	URL           string `mapstructure:"url"`
	SubjectPrefix string `mapstructure:"subjectPrefix"`
}

type S3Config struct {
	Enabled          bool   `mapstructure:"enabled"`
	Bucket           string `mapstructure:"bucket"`
	Region           string `mapstructure:"region"`
	AccessKeyID      string `mapstructure:"accessKeyID"`
	SecretAccessKey  string `mapstructure:"secretAccessKey"`
	CloudFrontDomain string `mapstructure:"cloudFrontDomain"`
}

// RulesConfig holds the anomaly thresholds. A zero ConnectionLostAfter
// disables the connection watchdog.
type RulesConfig struct {
	FullnessWarningLevel  int           `mapstructure:"fullnessWarningLevel"`
	FullnessCriticalLevel int           `mapstructure:"fullnessCriticalLevel"`
	OverloadAlerts        bool          `mapstructure:"overloadAlerts"`
	ConnectionLostAfter   time.Duration `mapstructure:"connectionLostAfter"`
	WatchdogInterval      time.Duration `mapstructure:"watchdogInterval"`
}

type SeedConfig struct {
	AdminNickname string `mapstructure:"adminNickname"`
	AdminPassword string `mapstructure:"adminPassword"`
	AdminFullName string `mapstructure:"adminFullName"`
}

// --- Main Config struct ---

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
	Storage StorageConfig `mapstructure:"storage"`
	Mongo   MongoConfig   `mapstructure:"mongo"`
	JWT     JWTConfig     `mapstructure:"jwt"`
	MQTT    MQTTConfig    `mapstructure:"mqtt"`
	NATS    NATSConfig    `mapstructure:"nats"`
	S3      S3Config      `mapstructure:"s3"`
	Rules   RulesConfig   `mapstructure:"rules"`
	Seed    SeedConfig    `mapstructure:"seed"`
}

var envBindings = map[string]string{
	"server.port":                 "SERVER_PORT",
	"server.ginMode":              "GIN_MODE",
	"log.level":                   "LOG_LEVEL",
	"log.pretty":                  "LOG_PRETTY",
	"storage.driver":              "STORAGE_DRIVER",
	"mongo.uri":                   "MONGO_URI",
	"mongo.dbName":                "MONGO_DBNAME",
	"jwt.secret":                  "JWT_SECRET",
	"jwt.issuer":                  "JWT_ISSUER",
	"jwt.audience":                "JWT_AUDIENCE",
	"mqtt.enabled":                "MQTT_ENABLED",
	"mqtt.broker":                 "MQTT_BROKER",
	"mqtt.clientID":               "MQTT_CLIENT_ID",
	"mqtt.username":               "MQTT_USERNAME",
	"mqtt.password":               "MQTT_PASSWORD",
	"nats.enabled":                "NATS_ENABLED",
	"nats.url":                    "NATS_URL",
	"s3.enabled":                  "S3_ENABLED",
	"s3.bucket":                   "S3_BUCKET",
	"s3.region":                   "S3_REGION",
	"s3.accessKeyID":              "S3_ACCESS_KEY_ID",
	"s3.secretAccessKey":          "S3_SECRET_ACCESS_KEY",
	"s3.cloudFrontDomain":         "S3_CLOUDFRONT_DOMAIN",
	"rules.overloadAlerts":        "RULES_OVERLOAD_ALERTS",
	"rules.connectionLostAfter":   "RULES_CONNECTION_LOST_AFTER",
	"seed.adminNickname":          "SEED_ADMIN_NICKNAME",
	"seed.adminPassword":          "SEED_ADMIN_PASSWORD",
	"rules.fullnessWarningLevel":  "RULES_FULLNESS_WARNING_LEVEL",
	"rules.fullnessCriticalLevel": "RULES_FULLNESS_CRITICAL_LEVEL",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.ginMode", "release")
	v.SetDefault("server.shutdownTimeout", 10*time.Second)
	v.SetDefault("server.corsOrigins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("storage.driver", "mongo")
	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.dbName", "smartbin")
	v.SetDefault("mongo.connectTimeout", 10*time.Second)
	v.SetDefault("jwt.issuer", "smartbin-api")
	v.SetDefault("jwt.audience", "smartbin-clients")
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.clientID", "smartbin-api")
	v.SetDefault("mqtt.topics", []string{"bins/+/telemetry"})
	v.SetDefault("mqtt.qos", 1)
	v.SetDefault("mqtt.messageTimeout", 5*time.Second)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.subjectPrefix", "smartbin.alerts")
	v.SetDefault("rules.fullnessWarningLevel", 90)
	v.SetDefault("rules.fullnessCriticalLevel", 100)
	v.SetDefault("rules.watchdogInterval", time.Minute)
	v.SetDefault("seed.adminNickname", "admin")
	v.SetDefault("seed.adminFullName", "System Administrator")
}

// LoadConfig reads config.yaml from path and overrides it with environment
// variables. A .env file in the working directory or in path is loaded first.
func LoadConfig(path string) (config Config, err error) {
	loadDotEnv(".env", filepath.Join(path, ".env"))

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	setDefaults(v)

	for key, env := range envBindings {
		if err = v.BindEnv(key, env); err != nil {
			return
		}
	}

	// A missing config.yaml is fine: defaults and env variables still apply.
	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return
		}
		err = nil
	}

	err = v.Unmarshal(&config)
	return
}

func loadDotEnv(paths ...string) {
	for _, p := range paths {
		if _, statErr := os.Stat(p); statErr == nil {
			// Existing env variables win over .env entries.
			_ = godotenv.Load(p)
		}
	}
}
