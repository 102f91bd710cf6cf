package main

import (
	"time"

	"github.com/coursepay-next/internal/config"
	"github.com/coursepay-next/internal/constants"
	"github.com/coursepay-next/internal/logger"
	"github.com/coursepay-next/internal/models"
	"github.com/coursepay-next/internal/service"

	"github.com/shopspring/decimal"
)

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 默认管理员
	if err := models.InitDefaultAdmin("admin", "admin123456"); err != nil {
		stdLog.Printf("Failed to init default admin: %v", err)
	}

	// 演示讲师与学员账号
	users := []struct {
		Email    string
		Password string
		Role     string
	}{
		{Email: "instructor@example.com", Password: "instructor123", Role: constants.RoleInstructor},
		{Email: "student@example.com", Password: "student123", Role: constants.RoleStudent},
	}
	userIDs := map[string]uint{}
	for _, u := range users {
		var existing models.User
		if err := models.DB.Where("email = ?", u.Email).First(&existing).Error; err == nil {
			stdLog.Printf("User already exists: %s", u.Email)
			userIDs[u.Email] = existing.ID
			continue
		}
		hash, err := service.HashPassword(u.Password)
		if err != nil {
			stdLog.Printf("Failed to hash password for %s: %v", u.Email, err)
			continue
		}
		user := models.User{
			Email:        u.Email,
			PasswordHash: hash,
			Role:         u.Role,
			Status:       constants.UserStatusActive,
		}
		if err := models.DB.Create(&user).Error; err != nil {
			stdLog.Printf("Failed to create user %s: %v", u.Email, err)
			continue
		}
		userIDs[u.Email] = user.ID
		stdLog.Printf("Created user: %s (%s)", u.Email, u.Role)
	}
	instructorID := userIDs["instructor@example.com"]

	// 演示课程
	courses := []models.Course{
		{
			Slug:         "go-backend-bootcamp",
			Title:        "Go Backend Bootcamp",
			CategoryID:   1,
			InstructorID: instructorID,
			Price:        models.NewMoneyFromDecimal(decimal.NewFromFloat(1299000)),
			Published:    true,
		},
		{
			Slug:         "sql-for-developers",
			Title:        "SQL for Developers",
			CategoryID:   1,
			InstructorID: instructorID,
			Price:        models.NewMoneyFromDecimal(decimal.NewFromFloat(899000)),
			Published:    true,
		},
		{
			Slug:         "intro-to-programming",
			Title:        "Introduction to Programming",
			CategoryID:   2,
			InstructorID: instructorID,
			Price:        models.NewMoneyFromDecimal(decimal.Zero),
			IsFree:       true,
			Published:    true,
		},
		{
			Slug:         "kubernetes-in-practice",
			Title:        "Kubernetes in Practice",
			CategoryID:   3,
			InstructorID: instructorID,
			Price:        models.NewMoneyFromDecimal(decimal.NewFromFloat(1599000)),
			Published:    false,
		},
	}
	for _, course := range courses {
		var existing models.Course
		if err := models.DB.Where("slug = ?", course.Slug).First(&existing).Error; err == nil {
			stdLog.Printf("Course already exists: %s", course.Slug)
			continue
		}
		if err := models.DB.Create(&course).Error; err != nil {
			stdLog.Printf("Failed to create course %s: %v", course.Slug, err)
		} else {
			stdLog.Printf("Created course: %s", course.Slug)
		}
	}

	// 演示优惠券
	endsAt := time.Now().AddDate(0, 3, 0)
	coupons := []models.Coupon{
		{
			Code:         "SALE10",
			Type:         constants.CouponTypePercent,
			Value:        models.NewMoneyFromDecimal(decimal.NewFromInt(10)),
			MaxDiscount:  models.NewMoneyFromDecimal(decimal.NewFromFloat(200000)),
			UsageLimit:   100,
			PerUserLimit: 1,
			EndsAt:       &endsAt,
			IsActive:     true,
		},
		{
			Code:          "WELCOME50K",
			Type:          constants.CouponTypeFixed,
			Value:         models.NewMoneyFromDecimal(decimal.NewFromFloat(50000)),
			MinOrderValue: models.NewMoneyFromDecimal(decimal.NewFromFloat(500000)),
			PerUserLimit:  1,
			IsActive:      true,
		},
	}
	for _, coupon := range coupons {
		var existing models.Coupon
		if err := models.DB.Where("code = ?", coupon.Code).First(&existing).Error; err == nil {
			stdLog.Printf("Coupon already exists: %s", coupon.Code)
			continue
		}
		if err := models.DB.Create(&coupon).Error; err != nil {
			stdLog.Printf("Failed to create coupon %s: %v", coupon.Code, err)
		} else {
			stdLog.Printf("Created coupon: %s", coupon.Code)
		}
	}

	stdLog.Printf("Seed completed")
}
