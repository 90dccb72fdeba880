// Command seed bootstraps the platform accounts: the admin user who owns
// the master balance, and an accountant who can run deposits and bonuses.
package main

import (
	"errors"
	"log"
	"os"

	"coursewallet/internal/config"
	"coursewallet/internal/models"
	"coursewallet/internal/repositories"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func main() {
	config.LoadEnv()

	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminPassword := os.Getenv("ADMIN_PASSWORD")
	accountantEmail := os.Getenv("ACCOUNTANT_EMAIL")
	accountantPassword := os.Getenv("ACCOUNTANT_PASSWORD")

	if adminEmail == "" || adminPassword == "" {
		log.Fatal("ADMIN_EMAIL and ADMIN_PASSWORD must be set in environment")
	}

	if err := repositories.InitDB(); err != nil {
		log.Fatalf("Failed to initialize databases: %v", err)
	}
	defer func() {
		if repositories.DB != nil {
			if sqlDB, err := repositories.DB.DB(); err == nil {
				if err := sqlDB.Close(); err != nil {
					log.Printf("Failed to close PostgreSQL connection: %v", err)
				}
			}
		}
		if repositories.CacheService != nil {
			if err := repositories.CacheService.Close(); err != nil {
				log.Printf("Failed to close Redis connection: %v", err)
			}
		}
	}()

	admin, err := ensureUser(adminEmail, adminPassword, "Administrator", models.RoleAdmin)
	if err != nil {
		log.Fatalf("Failed to create admin user: %v", err)
	}

	if err := ensureMasterBalance(admin); err != nil {
		log.Fatalf("Failed to create master balance: %v", err)
	}

	if accountantEmail != "" && accountantPassword != "" {
		if _, err := ensureUser(accountantEmail, accountantPassword, "Accountant", models.RoleAccountant); err != nil {
			log.Fatalf("Failed to create accountant user: %v", err)
		}
	}

	if os.Getenv("SEED_DEMO") == "true" {
		if err := seedDemoCatalog(); err != nil {
			log.Fatalf("Failed to seed demo catalog: %v", err)
		}
	}

	log.Println("Seeding complete")
}

// seedDemoCatalog creates a demo teacher with one priced course so a fresh
// install can exercise enrollment and bonus payout immediately.
func seedDemoCatalog() error {
	teacher, err := ensureUser("teacher@example.com", "teacher", "Demo Teacher", models.RoleTeacher)
	if err != nil {
		return err
	}

	courses := repositories.NewCourseRepository(repositories.DB)
	if ids, err := courses.GetIDsByTeacher(teacher.ID); err != nil {
		return err
	} else if len(ids) > 0 {
		log.Println("Demo course already exists")
		return nil
	}

	course := &models.Course{
		Name:      "Introduction to Programming",
		TeacherID: teacher.ID,
		Cost:      decimal.NewFromInt(40),
		Currency:  "USD",
	}
	if err := courses.Create(course); err != nil {
		return err
	}
	log.Printf("Created demo course %q (%s)", course.Name, course.Cost)
	return nil
}

func ensureUser(email, password, name string, role models.Role) (*models.User, error) {
	var existing models.User
	if err := repositories.DB.Where("email = ?", email).First(&existing).Error; err == nil {
		log.Printf("User %s already exists", email)
		return &existing, nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Email:    email,
		Password: string(hashed),
		Name:     name,
		Role:     role,
	}
	if err := repositories.DB.Create(&user).Error; err != nil {
		return nil, err
	}
	log.Printf("Created %s user %s", role, email)
	return &user, nil
}

func ensureMasterBalance(admin *models.User) error {
	var existing models.Balance
	err := repositories.DB.Where("is_master = ?", true).First(&existing).Error
	if err == nil {
		log.Println("Master balance already exists")
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	master := models.Balance{
		OwnerID:  admin.ID,
		Amount:   decimal.Zero,
		Currency: "USD",
		IsMaster: true,
	}
	if err := repositories.DB.Create(&master).Error; err != nil {
		return err
	}

	admin.BalanceID = &master.ID
	if err := repositories.DB.Model(admin).Update("balance_id", master.ID).Error; err != nil {
		return err
	}
	log.Printf("Created master balance %d owned by %s", master.ID, admin.Email)
	return nil
}
