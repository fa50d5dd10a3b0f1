package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	JWT          JWTConfig
	SMTP         SMTPConfig
	RateLimit    RateLimitConfig
	CORS         CORSConfig
	MQTT         MQTTConfig
	Ingestion    IngestionConfig
	Jobs         JobsConfig
	License      LicenseConfig
	Notification NotificationConfig
	Cache        CacheConfig
}

type ServerConfig struct {
	Port        string
	Host        string
	Environment string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type JWTConfig struct {
	Secret      string
	ExpiryHours int
}

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

type RateLimitConfig struct {
	GeneralRPS   float64 // Requests per second for general endpoints
	GeneralBurst int     // Burst size for general endpoints
}

type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

type MQTTConfig struct {
	Broker               string
	ClientID             string
	Username             string
	Password             string
	DataTopic            string
	QoS                  byte
	KeepAlive            int
	ConnectTimeout       int
	MaxReconnectInterval time.Duration
	// SettleDelay gives a device time to subscribe before jobs are published.
	SettleDelay   time.Duration
	SenderEnabled bool
}

type IngestionConfig struct {
	Workers    int
	BufferSize int
}

type JobsConfig struct {
	PayloadLimit           int
	AllowedConnections     int
	FailAfterDays          int
	SweepInterval          time.Duration
	LocationUpdateInterval time.Duration
	PageSize               int
}

type LicenseConfig struct {
	AssetHolderCompanyID string
	UsageInterval        time.Duration
}

type NotificationConfig struct {
	PageSize       int
	FanoutInterval time.Duration
	PushEndpoint   string
	PushServerKey  string
	SiteURL        string
}

type CacheConfig struct {
	RoutesPath string
}

func setDefaults() {
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("ENVIRONMENT", "development")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("JWT_EXPIRY_HOURS", 24)
	viper.SetDefault("SMTP_PORT", 587)
	viper.SetDefault("RATE_LIMIT_GENERAL_RPS", 20.0)
	viper.SetDefault("RATE_LIMIT_GENERAL_BURST", 40)
	viper.SetDefault("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	viper.SetDefault("CORS_ALLOWED_HEADERS", []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"})
	viper.SetDefault("MQTT_BROKER", "tcp://localhost:1883")
	viper.SetDefault("MQTT_CLIENT_ID", "waste-fleet-monitor")
	viper.SetDefault("MQTT_DATA_TOPIC", "/sensors/+/data")
	viper.SetDefault("MQTT_QOS", 1)
	viper.SetDefault("MQTT_KEEP_ALIVE", 30)
	viper.SetDefault("MQTT_CONNECT_TIMEOUT", 10)
	viper.SetDefault("MQTT_MAX_RECONNECT_INTERVAL", "1m")
	viper.SetDefault("MQTT_SETTLE_DELAY", "10s")
	viper.SetDefault("MQTT_SENDER_ENABLED", true)
	viper.SetDefault("INGESTION_WORKERS", 4)
	viper.SetDefault("INGESTION_BUFFER_SIZE", 1000)
	viper.SetDefault("JOBS_PAYLOAD_LIMIT", 128)
	viper.SetDefault("JOBS_ALLOWED_CONNECTIONS", 2)
	viper.SetDefault("JOBS_FAIL_AFTER_DAYS", 2)
	viper.SetDefault("JOBS_SWEEP_INTERVAL", "15m")
	viper.SetDefault("JOBS_LOCATION_UPDATE_INTERVAL", "24h")
	viper.SetDefault("JOBS_PAGE_SIZE", 1000)
	viper.SetDefault("LICENSE_USAGE_INTERVAL", "24h")
	viper.SetDefault("NOTIFICATION_PAGE_SIZE", 1000)
	viper.SetDefault("NOTIFICATION_FANOUT_INTERVAL", "1m")
	viper.SetDefault("CACHE_ROUTES_PATH", "routes.db")
}

func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.AddConfigPath(".")
	if homeDir, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(homeDir)
	}
	viper.AutomaticEnv()
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	config := &Config{
		Server: ServerConfig{
			Port:        viper.GetString("SERVER_PORT"),
			Host:        viper.GetString("SERVER_HOST"),
			Environment: viper.GetString("ENVIRONMENT"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			DBName:   viper.GetString("DB_NAME"),
			SSLMode:  viper.GetString("DB_SSLMODE"),
		},
		JWT: JWTConfig{
			Secret:      viper.GetString("JWT_SECRET"),
			ExpiryHours: viper.GetInt("JWT_EXPIRY_HOURS"),
		},
		SMTP: SMTPConfig{
			Host:     viper.GetString("SMTP_HOST"),
			Port:     viper.GetInt("SMTP_PORT"),
			User:     viper.GetString("SMTP_USER"),
			Password: viper.GetString("SMTP_PASSWORD"),
			From:     viper.GetString("SMTP_FROM"),
		},
		RateLimit: RateLimitConfig{
			GeneralRPS:   viper.GetFloat64("RATE_LIMIT_GENERAL_RPS"),
			GeneralBurst: viper.GetInt("RATE_LIMIT_GENERAL_BURST"),
		},
		CORS: CORSConfig{
			AllowedOrigins:   viper.GetStringSlice("CORS_ALLOWED_ORIGINS"),
			AllowedMethods:   viper.GetStringSlice("CORS_ALLOWED_METHODS"),
			AllowedHeaders:   viper.GetStringSlice("CORS_ALLOWED_HEADERS"),
			ExposedHeaders:   viper.GetStringSlice("CORS_EXPOSED_HEADERS"),
			AllowCredentials: viper.GetBool("CORS_ALLOW_CREDENTIALS"),
			MaxAge:           viper.GetInt("CORS_MAX_AGE"),
		},
		MQTT: MQTTConfig{
			Broker:               viper.GetString("MQTT_BROKER"),
			ClientID:             viper.GetString("MQTT_CLIENT_ID"),
			Username:             viper.GetString("MQTT_USERNAME"),
			Password:             viper.GetString("MQTT_PASSWORD"),
			DataTopic:            viper.GetString("MQTT_DATA_TOPIC"),
			QoS:                  byte(viper.GetUint("MQTT_QOS")),
			KeepAlive:            viper.GetInt("MQTT_KEEP_ALIVE"),
			ConnectTimeout:       viper.GetInt("MQTT_CONNECT_TIMEOUT"),
			MaxReconnectInterval: viper.GetDuration("MQTT_MAX_RECONNECT_INTERVAL"),
			SettleDelay:          viper.GetDuration("MQTT_SETTLE_DELAY"),
			SenderEnabled:        viper.GetBool("MQTT_SENDER_ENABLED"),
		},
		Ingestion: IngestionConfig{
			Workers:    viper.GetInt("INGESTION_WORKERS"),
			BufferSize: viper.GetInt("INGESTION_BUFFER_SIZE"),
		},
		Jobs: JobsConfig{
			PayloadLimit:           viper.GetInt("JOBS_PAYLOAD_LIMIT"),
			AllowedConnections:     viper.GetInt("JOBS_ALLOWED_CONNECTIONS"),
			FailAfterDays:          viper.GetInt("JOBS_FAIL_AFTER_DAYS"),
			SweepInterval:          viper.GetDuration("JOBS_SWEEP_INTERVAL"),
			LocationUpdateInterval: viper.GetDuration("JOBS_LOCATION_UPDATE_INTERVAL"),
			PageSize:               viper.GetInt("JOBS_PAGE_SIZE"),
		},
		License: LicenseConfig{
			AssetHolderCompanyID: viper.GetString("SENSOR_ASSET_HOLDER_COMPANY_ID"),
			UsageInterval:        viper.GetDuration("LICENSE_USAGE_INTERVAL"),
		},
		Notification: NotificationConfig{
			PageSize:       viper.GetInt("NOTIFICATION_PAGE_SIZE"),
			FanoutInterval: viper.GetDuration("NOTIFICATION_FANOUT_INTERVAL"),
			PushEndpoint:   viper.GetString("PUSH_ENDPOINT"),
			PushServerKey:  viper.GetString("PUSH_SERVER_KEY"),
			SiteURL:        viper.GetString("SITE_URL"),
		},
		Cache: CacheConfig{
			RoutesPath: viper.GetString("CACHE_ROUTES_PATH"),
		},
	}

	return config, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// Validate reports settings the service cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.Database.Host == "" || c.Database.DBName == "" {
		errs = append(errs, errors.New("database configuration is missing: set DB_HOST and DB_NAME"))
	}
	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("JWT secret is missing: set JWT_SECRET"))
	}
	if c.Jobs.PayloadLimit <= 0 {
		errs = append(errs, errors.New("JOBS_PAYLOAD_LIMIT must be positive"))
	}
	if c.Ingestion.Workers <= 0 {
		errs = append(errs, errors.New("INGESTION_WORKERS must be positive"))
	}
	return errors.Join(errs...)
}
