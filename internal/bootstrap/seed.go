package bootstrap

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/arisehq/levelup/internal/model"
	"github.com/arisehq/levelup/internal/repository"
	"github.com/arisehq/levelup/pkg/storage"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Goal{},
		&model.Step{},
		&model.Habit{},
		&model.HabitStep{},
		&model.HabitLog{},
		&model.Badge{},
		&model.UserBadge{},
		&model.Notification{},
		&model.ResetRun{},
	)
}

// badgeCatalog is the full unlockable set. Names keep the Solo Leveling
// flavor of the product; conditions are the symbolic keys the evaluator
// understands.
var badgeCatalog = []model.Badge{
	{
		Name:        "Éveil du Hunter",
		Description: "Valider votre toute première habitude",
		Icon:        "Sparkles",
		Condition:   "first_habit_completed",
	},
	{
		Name:        "Premier Sang",
		Description: "Terminer votre premier objectif",
		Icon:        "Sword",
		Condition:   "first_goal_completed",
	},
	{
		Name:        "Discipline de Fer",
		Description: "Atteindre un streak de 2 jours",
		Icon:        "Footprints",
		Condition:   "2_days_streak",
	},
	{
		Name:        "Ténacité de Sung",
		Description: "Atteindre un streak de 7 jours",
		Icon:        "Flame",
		Condition:   "7_days_streak",
	},
	{
		Name:        "Volonté Inébranlable",
		Description: "Atteindre un streak de 30 jours",
		Icon:        "Crown",
		Condition:   "30_days_streak",
	},
	{
		Name:        "Explorateur de Donjons",
		Description: "Terminer 5 objectifs",
		Icon:        "Map",
		Condition:   "5_goals_completed",
	},
	{
		Name:        "Maître de la Guilde",
		Description: "Terminer 10 objectifs",
		Icon:        "Shield",
		Condition:   "10_goals_completed",
	},
	{
		Name:        "Architecte du Destin",
		Description: "Créer 5 habitudes différentes",
		Icon:        "Layout",
		Condition:   "5_habits_created",
	},
}

// SeedBadges upserts the badge catalog by name. When an image store and a
// local icon directory are available, bundled art replaces the symbolic
// icon name with a CDN URL; otherwise the symbolic name is kept and the
// client renders its own icon set.
func SeedBadges(ctx context.Context, badgeRepo repository.BadgeRepository, images storage.ImageStorage, iconDir string) error {
	catalog := make([]model.Badge, len(badgeCatalog))
	copy(catalog, badgeCatalog)

	if images != nil && iconDir != "" {
		for i := range catalog {
			url, err := uploadIcon(ctx, images, iconDir, catalog[i].Icon)
			if err != nil {
				log.Printf("badge icon upload skipped for %q: %v", catalog[i].Name, err)
				continue
			}
			catalog[i].Icon = url
		}
	}

	return badgeRepo.UpsertCatalog(ctx, catalog)
}

func uploadIcon(ctx context.Context, images storage.ImageStorage, iconDir, iconName string) (string, error) {
	fileName := strings.ToLower(iconName) + ".png"
	f, err := os.Open(filepath.Join(iconDir, fileName))
	if err != nil {
		return "", err
	}
	defer f.Close()

	return images.UploadImage(ctx, f, "badges", fileName)
}

// SeedDevUser creates a known local account so the API is usable right
// after migration in development. It never runs against an existing email.
func SeedDevUser(db *gorm.DB) error {
	var count int64
	if err := db.Model(&model.User{}).
		Where("email = ?", "hunter@levelup.local").
		Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		log.Println("Dev user already exists, skipping seed")
		return nil
	}

	hashedPasswordBytes, err := bcrypt.GenerateFromPassword([]byte("hunter123"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user := model.User{
		Username:     "hunter",
		Email:        "hunter@levelup.local",
		PasswordHash: string(hashedPasswordBytes),
	}
	return db.Create(&user).Error
}
