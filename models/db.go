package models

import (
	"log"
	"time"

	"PatternStudio-server/config"

	_ "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

var GormDB *gorm.DB

// InitDB 连接 MySQL 并自动建表。DSN 为空时由 main 选择内存实现，这里不会被调用。
func InitDB() {
	if config.AppConfig == nil {
		log.Fatal("config.AppConfig is nil, call config.InitConfig first")
	}
	dsn := config.AppConfig.MySQL.DSN

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("GORM 初始化失败: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("获取底层连接失败: %v", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)
	if err := sqlDB.Ping(); err != nil {
		log.Fatalf("连接数据库失败: %v", err)
	}

	GormDB = db
	log.Println("数据库连接成功 (GORM)")

	if err := db.AutoMigrate(&PersistentPattern{}, &GenerationSession{}); err != nil {
		log.Printf("自动建表失败: %v", err)
	}
}
