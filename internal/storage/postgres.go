package storage

import (
	"fmt"
	"log"
	"os"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/arisecrossover/guildsite/internal/model"
)

// defaultDSN is used when neither DATABASE_URL nor config supply one.
const defaultDSN = "host=127.0.0.1 port=5432 user=postgres password=postgres dbname=guildsite sslmode=disable"

// InitPostgres 初始化 PostgreSQL 连接
func InitPostgres(dsn string, maxIdleConns, maxOpenConns int) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		log.Printf("Failed to connect to database: %v", err)
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetMaxOpenConns(maxOpenConns)

	// 自动迁移
	err = db.AutoMigrate(
		&model.User{},
		&model.DiscordMember{},
		&model.Announcement{},
		&model.LoginLog{},
	)
	if err != nil {
		log.Printf("Failed to migrate models: %v", err)
		return nil, err
	}
	return db, nil
}

// BuildDSN 构建PostgreSQL DSN
func BuildDSN(host, port, user, password, dbname string) string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable", host, port, user, password, dbname)
}

// ResolveDSN prefers DATABASE_URL, then the configured pieces, then a fixed
// local default.
func ResolveDSN(host, port, user, password, dbname string) string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	if host == "" {
		return defaultDSN
	}
	return BuildDSN(host, port, user, password, dbname)
}
