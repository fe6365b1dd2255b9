package db

import (
	"fmt"
	"log/slog"
	"time"

	"burrow/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open 连接数据库、迁移表结构并写入预设分类
func Open(dsn string) (*gorm.DB, error) {
	const op = "db.Open"

	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	slog.Info("database connection established")

	if err := Migrate(gdb); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	seedCategories(gdb)

	return gdb, nil
}

// Migrate 自动迁移所有模型
func Migrate(gdb *gorm.DB) error {
	err := gdb.AutoMigrate(
		&models.Category{},
		&models.Post{},
		&models.Comment{},
		&models.Vote{},
		&models.GuestbookEntry{},
		&models.User{},
	)
	if err != nil {
		return err
	}
	slog.Info("database migration completed")
	return nil
}

// Close 关闭连接池
func Close(gdb *gorm.DB) error {
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func seedCategories(gdb *gorm.DB) {
	// 已有分类就跳过
	var count int64
	gdb.Model(&models.Category{}).Count(&count)
	if count > 0 {
		slog.Debug("categories already seeded, skipping")
		return
	}

	categories := []models.Category{
		{Name: "General", Slug: "general", Description: "Anything that fits nowhere else"},
		{Name: "Technology", Slug: "technology", Description: "Software, hardware and networks"},
		{Name: "Privacy", Slug: "privacy", Description: "Anonymity, encryption and surveillance"},
		{Name: "Onions", Slug: "onions", Description: "Hidden services worth a visit"},
		{Name: "Meta", Slug: "meta", Description: "About this site"},
	}

	for _, cat := range categories {
		if err := gdb.Create(&cat).Error; err != nil {
			slog.Warn("failed to create category", "name", cat.Name, "err", err)
		}
	}
	slog.Info("initial categories created")
}
