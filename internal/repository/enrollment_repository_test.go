package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/coursepay-next/internal/constants"
	"github.com/coursepay-next/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupEnrollmentRepositoryTest(t *testing.T) (*GormEnrollmentRepository, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:enrollment_repo_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Enrollment{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return NewEnrollmentRepository(db), db
}

func TestEnrollmentCreateIgnoreDuplicate(t *testing.T) {
	repo, _ := setupEnrollmentRepositoryTest(t)
	now := time.Now().UTC().Truncate(time.Second)

	first := models.Enrollment{
		UserID:     7,
		CourseID:   3,
		Status:     constants.EnrollmentStatusActive,
		EnrolledAt: now,
	}
	inserted, err := repo.CreateIgnoreDuplicate(&first)
	if err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	if !inserted {
		t.Fatalf("first insert should report inserted")
	}

	again := models.Enrollment{
		UserID:     7,
		CourseID:   3,
		Status:     constants.EnrollmentStatusActive,
		EnrolledAt: now.Add(time.Minute),
	}
	inserted, err = repo.CreateIgnoreDuplicate(&again)
	if err != nil {
		t.Fatalf("second insert failed: %v", err)
	}
	if inserted {
		t.Fatalf("repeated enrollment should be ignored")
	}

	rows, total, err := repo.ListByUser(7, 1, 10)
	if err != nil {
		t.Fatalf("list by user failed: %v", err)
	}
	if total != 1 || len(rows) != 1 {
		t.Fatalf("want single enrollment, got total=%d len=%d", total, len(rows))
	}
}

func TestEnrollmentRevokeAndReactivate(t *testing.T) {
	repo, _ := setupEnrollmentRepositoryTest(t)
	now := time.Now().UTC().Truncate(time.Second)

	enrollment := models.Enrollment{
		UserID:     8,
		CourseID:   4,
		Status:     constants.EnrollmentStatusActive,
		EnrolledAt: now,
	}
	if _, err := repo.CreateIgnoreDuplicate(&enrollment); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	if err := repo.Revoke(8, 4); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	reloaded, err := repo.GetByUserAndCourse(8, 4)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if reloaded.Status != constants.EnrollmentStatusRevoked {
		t.Fatalf("status want revoked got %s", reloaded.Status)
	}

	if err := repo.Reactivate(8, 4); err != nil {
		t.Fatalf("reactivate failed: %v", err)
	}
	reloaded, err = repo.GetByUserAndCourse(8, 4)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if reloaded.Status != constants.EnrollmentStatusActive {
		t.Fatalf("status want active got %s", reloaded.Status)
	}
}
