package db

import (
	"os"
	"shallot/internal/logger"
	"shallot/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func Init() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		// Fallback for local dev if not set
		dsn = "host=localhost user=postgres password=postgres dbname=shallot port=5432 sslmode=disable TimeZone=UTC"
	}

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		logger.L().Fatalf("Failed to connect to database: %v", err)
	}

	logger.L().Info("Database connection established")

	if err := Migrate(DB); err != nil {
		logger.L().Fatalf("Failed to migrate database: %v", err)
	}
	logger.L().Info("Database migration completed")

	// Seed initial communities
	seedCommunities()
}

// InitWithConnection 直接注入已建立的连接（测试用，配合内存 SQLite）
func InitWithConnection(conn *gorm.DB) {
	DB = conn
}

// Migrate 执行全部模型的自动迁移
func Migrate(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&models.User{},
		&models.Community{},
		&models.Membership{},
		&models.Post{},
		&models.PostMedia{},
		&models.Comment{},
		&models.UserPostRelation{},
		&models.UserCommentRelation{},
		&models.OnionLog{},
		&models.Notification{},
	)
}

func seedCommunities() {
	// 检查是否已有社区数据
	var count int64
	DB.Model(&models.Community{}).Count(&count)
	if count > 0 {
		logger.L().Info("Communities already seeded, skipping")
		return
	}

	// 创建预设社区
	communities := []models.Community{
		{Name: "tech", Title: "技术", Description: "技术相关的讨论和分享"},
		{Name: "life", Title: "生活", Description: "生活日常、经验分享"},
		{Name: "showcase", Title: "展示", Description: "作品展示、项目分享"},
		{Name: "chat", Title: "闲聊", Description: "随便聊聊"},
	}

	for _, community := range communities {
		if err := DB.Create(&community).Error; err != nil {
			logger.L().Errorf("Failed to create community %s: %v", community.Name, err)
		}
	}
	logger.L().Info("Initial communities created successfully")
}
