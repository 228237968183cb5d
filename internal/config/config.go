package config

import (
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"gopkg.in/yaml.v3"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Database   DatabaseConfig   `yaml:"database"`
	Attendance AttendanceConfig `yaml:"attendance"`
	Analytics  AnalyticsConfig  `yaml:"analytics"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	Console    bool   `yaml:"console"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

// AttendanceConfig carries the domain thresholds. Times of day are "HH:MM"
// and compared in UTC, the same reference all event timestamps use.
type AttendanceConfig struct {
	DebounceSeconds  int     `yaml:"debounce_seconds"`
	ClockSkewSeconds int     `yaml:"clock_skew_seconds"`
	CacheTTLSeconds  int     `yaml:"cache_ttl_seconds"`
	LateAfter        string  `yaml:"late_after"`
	EarlyBefore      string  `yaml:"early_before"`
	FullDayHours     float64 `yaml:"full_day_hours"`
}

type AnalyticsConfig struct {
	ScoreFloor         float64 `yaml:"score_floor"`
	MovementCeiling    int     `yaml:"movement_ceiling"`
	ForecastWindowDays int     `yaml:"forecast_window_days"`
	ForecastMargin     float64 `yaml:"forecast_margin"`
}

func Load(configFile string) *Config {
	c := &Config{
		Server: ServerConfig{Port: 9842},
		Log:    LogConfig{Level: "info", Console: true, MaxSizeMB: 100, MaxBackups: 3, MaxAgeDays: 30},
		Database: DatabaseConfig{
			Host: "127.0.0.1", Port: 3306, Name: "presence_track",
		},
		Attendance: AttendanceConfig{
			DebounceSeconds:  2,
			ClockSkewSeconds: 30,
			CacheTTLSeconds:  300,
			LateAfter:        "09:00",
			EarlyBefore:      "17:00",
			FullDayHours:     7.5,
		},
		Analytics: AnalyticsConfig{
			ScoreFloor:         70,
			MovementCeiling:    10,
			ForecastWindowDays: 7,
			ForecastMargin:     5,
		},
	}

	paths := []string{"etc/config-dev.yaml", "/etc/presence-track/config.yaml"}
	if configFile != "" {
		paths = []string{configFile}
	}
	for _, path := range paths {
		if data, err := os.ReadFile(path); err == nil {
			yaml.Unmarshal(data, c)
			break
		}
	}

	envOverride(&c.Database.Host, "DB_HOST")
	envOverride(&c.Database.User, "DB_USER")
	envOverride(&c.Database.Password, "DB_PASS")
	envOverride(&c.Database.Name, "DB_NAME")
	envOverride(&c.Log.Level, "LOG_LEVEL")
	envOverride(&c.Log.File, "LOG_FILE")
	envOverrideInt(&c.Server.Port, "PORT")
	envOverrideInt(&c.Database.Port, "DB_PORT")

	return c
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

func (c *Config) DebounceWindow() time.Duration {
	return time.Duration(c.Attendance.DebounceSeconds) * time.Second
}

func (c *Config) ClockSkew() time.Duration {
	return time.Duration(c.Attendance.ClockSkewSeconds) * time.Second
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Attendance.CacheTTLSeconds) * time.Second
}

func (c *Config) OpenGormDB() (*gorm.DB, error) {
	cfg := gomysql.NewConfig()
	cfg.User = c.Database.User
	cfg.Passwd = c.Database.Password
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%d", c.Database.Host, c.Database.Port)
	cfg.DBName = c.Database.Name
	cfg.ParseTime = true

	connector, err := gomysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("create connector: %w", err)
	}
	sqlDB := sql.OpenDB(connector)
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}

	return gorm.Open(mysql.New(mysql.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
}

func envOverride(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envOverrideInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
