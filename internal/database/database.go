package database

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"reviewdesk/internal/models"
)

// Config holds the connection settings, read from viper under "db.*" with
// environment overrides.
type Config struct {
	User            string
	Password        string
	Host            string
	Port            uint32
	Name            string
	MaxOpenConns    uint32
	MaxIdleConns    uint32
	ConnMaxIdleTime uint32
	ConnMaxLifeTime uint32
}

func ReadConfig() *Config {
	viper.BindEnv("db.user", "DB_USER")
	viper.BindEnv("db.password", "DB_PASSWORD")
	viper.BindEnv("db.host", "DB_HOST")
	viper.BindEnv("db.port", "DB_PORT")
	viper.BindEnv("db.name", "DB_NAME")

	return &Config{
		User:            viper.GetString("db.user"),
		Password:        viper.GetString("db.password"),
		Host:            viper.GetString("db.host"),
		Port:            viper.GetUint32("db.port"),
		Name:            viper.GetString("db.name"),
		MaxOpenConns:    viper.GetUint32("db.max_open_conns"),
		MaxIdleConns:    viper.GetUint32("db.max_idle_conns"),
		ConnMaxIdleTime: viper.GetUint32("db.conn_max_idle_time"),
		ConnMaxLifeTime: viper.GetUint32("db.conn_max_life_time"),
	}
}

// Open connects to MySQL, applies pool limits, and migrates the schema.
func Open(cfg *Config, logger *zap.Logger) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(int(cfg.MaxIdleConns))
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(int(cfg.MaxOpenConns))
	}
	if cfg.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)
	}
	if cfg.ConnMaxLifeTime > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifeTime) * time.Minute)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := db.AutoMigrate(
		&models.Form{},
		&models.RoleReviewRubric{},
		&models.InterviewRubric{},
		&models.ApplicationReview{},
		&models.ApplicationInterview{},
		&models.Assignment{},
		&models.Profile{},
		&models.DecisionStatus{},
		&models.AppStatus{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	logger.Info("Database connected successfully")
	return db, nil
}
