package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/coursepay-next/internal/constants"
	"github.com/coursepay-next/internal/models"
	"github.com/coursepay-next/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupEnrollmentTest(t *testing.T) (*EnrollmentService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:enrollment_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Course{}, &models.Enrollment{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db
	svc := NewEnrollmentService(repository.NewEnrollmentRepository(db), repository.NewCourseRepository(db))
	return svc, db
}

func TestEnrollFree(t *testing.T) {
	svc, db := setupEnrollmentTest(t)
	createTestCourse(t, db, 7, 0, true, true)

	enrollment, err := svc.EnrollFree(1, 7)
	if err != nil {
		t.Fatalf("enroll free failed: %v", err)
	}
	if enrollment.Status != constants.EnrollmentStatusActive {
		t.Fatalf("status = %s, want active", enrollment.Status)
	}
	if enrollment.ProgressPercent != 0 {
		t.Fatalf("fresh enrollment progress = %d, want 0", enrollment.ProgressPercent)
	}

	if _, err := svc.EnrollFree(1, 7); !errors.Is(err, ErrAlreadyEnrolled) {
		t.Fatalf("second enroll err = %v, want ErrAlreadyEnrolled", err)
	}
}

func TestEnrollFreeRejectsPaidAndUnpublished(t *testing.T) {
	svc, db := setupEnrollmentTest(t)
	createTestCourse(t, db, 8, 500000, false, true)
	createTestCourse(t, db, 9, 0, true, false)

	if _, err := svc.EnrollFree(1, 8); !errors.Is(err, ErrCourseNotFree) {
		t.Fatalf("paid course err = %v, want ErrCourseNotFree", err)
	}
	if _, err := svc.EnrollFree(1, 9); !errors.Is(err, ErrCourseUnavailable) {
		t.Fatalf("unpublished course err = %v, want ErrCourseUnavailable", err)
	}
	if _, err := svc.EnrollFree(1, 404); !errors.Is(err, ErrCourseNotFound) {
		t.Fatalf("missing course err = %v, want ErrCourseNotFound", err)
	}
}

func TestProvisionIdempotentAndReactivates(t *testing.T) {
	svc, db := setupEnrollmentTest(t)

	created, err := svc.Provision(nil, 1, 7)
	if err != nil || !created {
		t.Fatalf("first provision (created=%v, err=%v), want created", created, err)
	}
	created, err = svc.Provision(nil, 1, 7)
	if err != nil {
		t.Fatalf("second provision failed: %v", err)
	}
	if created {
		t.Fatalf("duplicate provision must not insert a second row")
	}
	var count int64
	db.Model(&models.Enrollment{}).Where("user_id = ? AND course_id = ?", 1, 7).Count(&count)
	if count != 1 {
		t.Fatalf("enrollment rows = %d, want 1", count)
	}

	// 撤销后重购恢复 active
	if err := svc.Revoke(nil, 1, 7); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	if _, err := svc.Provision(nil, 1, 7); err != nil {
		t.Fatalf("re-provision failed: %v", err)
	}
	enrollment, err := svc.GetByUserAndCourse(1, 7)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if enrollment.Status != constants.EnrollmentStatusActive {
		t.Fatalf("status after re-purchase = %s, want active", enrollment.Status)
	}
}

func TestUpdateProgress(t *testing.T) {
	svc, db := setupEnrollmentTest(t)
	createTestCourse(t, db, 7, 0, true, true)
	if _, err := svc.EnrollFree(1, 7); err != nil {
		t.Fatalf("enroll failed: %v", err)
	}

	enrollment, err := svc.UpdateProgress(1, 7, 42)
	if err != nil {
		t.Fatalf("update progress failed: %v", err)
	}
	if enrollment.ProgressPercent != 42 {
		t.Fatalf("progress = %d, want 42", enrollment.ProgressPercent)
	}

	if _, err := svc.UpdateProgress(1, 7, -1); !errors.Is(err, ErrProgressInvalid) {
		t.Fatalf("negative progress err = %v, want ErrProgressInvalid", err)
	}
	if _, err := svc.UpdateProgress(1, 7, 101); !errors.Is(err, ErrProgressInvalid) {
		t.Fatalf("overflow progress err = %v, want ErrProgressInvalid", err)
	}
	if _, err := svc.UpdateProgress(2, 7, 10); !errors.Is(err, ErrEnrollmentNotFound) {
		t.Fatalf("missing enrollment err = %v, want ErrEnrollmentNotFound", err)
	}

	// 撤销后的记录不再接受进度上报
	if err := svc.Revoke(nil, 1, 7); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	if _, err := svc.UpdateProgress(1, 7, 50); !errors.Is(err, ErrEnrollmentNotFound) {
		t.Fatalf("revoked enrollment err = %v, want ErrEnrollmentNotFound", err)
	}
}
