// Command seed loads the demo administrator and two catalog cars.  It is
// safe to run repeatedly: existing rows are left in place.
package main

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/gommon/log"

	"github.com/iliyamo/car-rental/internal/config"
	"github.com/iliyamo/car-rental/internal/database"
	"github.com/iliyamo/car-rental/internal/model"
	"github.com/iliyamo/car-rental/internal/repository"
	"github.com/iliyamo/car-rental/internal/service"
	"github.com/iliyamo/car-rental/internal/utils"
)

const (
	adminEmail    = "admin@example.com"
	adminPassword = "admin123"
)

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func specs(transmission, fuel string, seats, luggage int) *model.CarSpecifications {
	return &model.CarSpecifications{
		Transmission: strPtr(transmission),
		FuelType:     strPtr(fuel),
		Seats:        intPtr(seats),
		Luggage:      intPtr(luggage),
	}
}

var demoCars = []service.CarInput{
	{
		ID: "camry-2023", Make: "Toyota", Model: "Camry", Year: 2023, Type: "Sedan", PricePerDay: 4500,
		Description:    strPtr("Toyota Camry, a comfortable business-class sedan"),
		Features:       []string{"Automatic", "Climate control", "Cruise control", "Heated seats"},
		Specifications: specs("Automatic", "Petrol", 5, 480),
	},
	{
		ID: "bmw-x5-2023", Make: "BMW", Model: "X5", Year: 2023, Type: "Crossover", PricePerDay: 11000,
		Description:    strPtr("BMW X5, a luxury mid-size crossover"),
		Features:       []string{"All-wheel drive", "Leather interior", "Panoramic roof", "Autopilot"},
		Specifications: specs("Automatic", "Petrol", 5, 650),
	},
}

func main() {
	logger := log.New("seed")
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := database.Open(ctx, cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logger.Fatalf("database: %v", err)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		logger.Fatalf("database: %v", err)
	}

	users := repository.NewUserRepo(db)
	admin, err := ensureAdmin(ctx, users, cfg.BcryptCost)
	if err != nil {
		logger.Fatalf("admin: %v", err)
	}
	logger.Infof("admin %s ready (id=%s)", admin.Email, admin.ID)

	cars := service.NewCarService(repository.NewCarRepo(db))
	for _, in := range demoCars {
		_, err := cars.Create(ctx, admin.ID, in)
		switch {
		case errors.Is(err, service.ErrCarExists):
			logger.Infof("car %s already present", in.ID)
		case err != nil:
			logger.Fatalf("car %s: %v", in.ID, err)
		default:
			logger.Infof("car %s created", in.ID)
		}
	}
}

// ensureAdmin creates the demo administrator, or promotes an existing
// account with the same email back to ADMIN.
func ensureAdmin(ctx context.Context, users *repository.UserRepo, cost int) (*model.User, error) {
	u, err := users.GetByEmail(ctx, adminEmail)
	if err == nil {
		if u.Role != model.RoleAdmin {
			if err := users.UpdateRole(ctx, u.ID, model.RoleAdmin); err != nil {
				return nil, err
			}
			u.Role = model.RoleAdmin
		}
		return u, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hash, err := utils.HashPassword(adminPassword, cost)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	u = &model.User{
		ID:           uuid.NewString(),
		Email:        adminEmail,
		PasswordHash: hash,
		FirstName:    "Admin",
		LastName:     "User",
		Role:         model.RoleAdmin,
		IsVerified:   true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return u, users.Create(ctx, u)
}
