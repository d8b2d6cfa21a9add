package seeders

import (
	"errors"
	"log"
	"os"

	"tutorlink_go/database"
	"tutorlink_go/models"
	"tutorlink_go/utils"

	"gorm.io/gorm"
)

// SeedAll runs all seeders
func SeedAll() error {
	log.Println("Starting database seeding...")
	if err := SeedAdmin(); err != nil {
		return err
	}
	if err := SeedSubjects(); err != nil {
		return err
	}
	log.Println("Database seeding completed successfully!")
	return nil
}

// SeedAdmin creates the first administrator when no admin exists.
// SEED_ADMIN_EMAIL and SEED_ADMIN_PASSWORD override the defaults; without a
// password a temporary one is generated and printed once.
func SeedAdmin() error {
	var count int64
	database.DB.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count)
	if count > 0 {
		log.Println("Admin already seeded, skipping...")
		return nil
	}

	email := utils.NormalizeEmail(getenv("SEED_ADMIN_EMAIL", "admin@tutorlink.local"))
	password := os.Getenv("SEED_ADMIN_PASSWORD")
	generated := password == ""
	if generated {
		var err error
		if password, err = utils.GenerateTemporaryPassword(16); err != nil {
			return err
		}
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return err
	}

	admin := models.User{
		FirstName:  "System",
		LastName:   "Administrator",
		Email:      email,
		Password:   hash,
		Role:       models.RoleAdmin,
		Status:     models.UserActive,
		FirstLogin: generated,
	}
	if err := database.DB.Create(&admin).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			log.Printf("User %s exists but is not an admin; promote it manually", email)
			return nil
		}
		return err
	}
	if generated {
		log.Printf("Admin %s created with temporary password: %s", email, password)
	} else {
		log.Printf("Admin %s created", email)
	}
	return nil
}

// SeedSubjects inserts the default catalogue. Existing codes are left alone.
func SeedSubjects() error {
	subjects := []models.Subject{
		{Name: "Computer Programming 1", Code: "CP101", Program: "BSIT", YearLevel: 1},
		{Name: "Computer Programming 2", Code: "CP102", Program: "BSIT", YearLevel: 1},
		{Name: "Data Structures and Algorithms", Code: "DSA201", Program: "BSIT", YearLevel: 2},
		{Name: "Database Management Systems", Code: "DBMS201", Program: "BSIT", YearLevel: 2},
		{Name: "Web Development", Code: "WEB301", Program: "BSIT", YearLevel: 3},
		{Name: "Discrete Mathematics", Code: "DM101", Program: "BSCS", YearLevel: 1},
		{Name: "Object-Oriented Programming", Code: "OOP201", Program: "BSCS", YearLevel: 2},
		{Name: "Operating Systems", Code: "OS301", Program: "BSCS", YearLevel: 3},
		{Name: "Purposive Communication", Code: "GE105", YearLevel: 0},
		{Name: "Mathematics in the Modern World", Code: "GE104", YearLevel: 0},
	}

	created := 0
	for _, s := range subjects {
		s.Active = true
		res := database.DB.Where(models.Subject{Code: s.Code}).FirstOrCreate(&s)
		if res.Error != nil {
			log.Printf("Error seeding subject %s: %v", s.Code, res.Error)
			continue
		}
		created += int(res.RowsAffected)
	}
	log.Printf("Subjects seeded: %d new", created)
	return nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
