package db

import (
	"eventsbot/internal/log"
	"eventsbot/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultCategories 初始分类目录，ID 固定不变
var DefaultCategories = []models.Category{
	{ID: 1, Name: "Parties"},
	{ID: 2, Name: "Sports"},
	{ID: 3, Name: "Culture"},
	{ID: 4, Name: "Science"},
	{ID: 5, Name: "Business"},
	{ID: 6, Name: "Medicine"},
	{ID: 7, Name: "Education"},
	{ID: 8, Name: "Travel"},
	{ID: 9, Name: "Cooking"},
	{ID: 10, Name: "Theatre"},
	{ID: 11, Name: "Board games"},
	{ID: 12, Name: "Music"},
	{ID: 13, Name: "Cinema"},
	{ID: 15, Name: "Games"},
}

// Open connects to Postgres and prepares the schema.
func Open(dsn string) (*gorm.DB, error) {
	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}
	log.Info.Println("Database connection established")

	if err := Setup(conn); err != nil {
		return nil, err
	}
	return conn, nil
}

// Setup migrates the schema and seeds the category catalog. It is shared
// with tests, which run it against SQLite.
func Setup(conn *gorm.DB) error {
	if err := Migrate(conn); err != nil {
		return err
	}
	log.Info.Println("Database migration completed")
	return SeedCategories(conn, DefaultCategories)
}

func Migrate(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&models.Category{},
		&models.User{},
		&models.Post{},
		&models.ModerationRecord{},
		&models.Like{},
	)
}

// SeedCategories inserts catalog rows that are not there yet.
func SeedCategories(conn *gorm.DB, cats []models.Category) error {
	var count int64
	conn.Model(&models.Category{}).Count(&count)
	if count >= int64(len(cats)) {
		log.Info.Println("Categories already seeded, skipping")
		return nil
	}

	seed := make([]models.Category, len(cats))
	for i, c := range cats {
		c.IsActive = true
		seed[i] = c
	}
	if err := conn.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		log.Error.Printf("Failed to seed categories: %v", err)
		return err
	}
	log.Info.Printf("Seeded %d categories", len(seed))
	return nil
}
