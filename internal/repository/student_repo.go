package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/hostel-allocation-api/internal/models"
)

// StudentRepository provides access to student records.
type StudentRepository interface {
	GetByID(ctx context.Context, id uint) (models.Student, error)
	GetByMatricNo(ctx context.Context, matricNo string) (models.Student, error)
	Upsert(ctx context.Context, students []models.Student) error
}

type studentRepository struct {
	db *gorm.DB
}

// NewStudentRepository constructs a student repository.
func NewStudentRepository(db *gorm.DB) StudentRepository {
	return &studentRepository{db: db}
}

func (r *studentRepository) GetByID(ctx context.Context, id uint) (models.Student, error) {
	var student models.Student
	if err := r.db.WithContext(ctx).First(&student, id).Error; err != nil {
		return models.Student{}, err
	}

	return student, nil
}

func (r *studentRepository) GetByMatricNo(ctx context.Context, matricNo string) (models.Student, error) {
	var student models.Student
	if err := r.db.WithContext(ctx).Where("matric_no = ?", matricNo).First(&student).Error; err != nil {
		return models.Student{}, err
	}

	return student, nil
}

// Upsert inserts students by matric number. Existing rows keep their gender so
// a reseed never invalidates requests already made against a hostel.
func (r *studentRepository) Upsert(ctx context.Context, students []models.Student) error {
	if len(students) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "matric_no"}},
		DoUpdates: clause.AssignmentColumns([]string{"full_name", "level", "updated_at"}),
	}).Create(&students).Error
}
