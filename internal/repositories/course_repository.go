package repositories

import (
	"errors"
	"fmt"

	"coursewallet/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrCourseNotFound = errors.New("course not found")

// CourseRepository is the slice of the course-catalog collaborator this
// service consumes: course cost, course-to-teacher ownership, and the
// membership records created after a successful enrollment transfer.
type CourseRepository interface {
	Create(course *models.Course) error
	GetByID(id uint) (*models.Course, error)
	GetIDsByTeacher(teacherID uint) ([]uint, error)
	IsStudentEnrolled(courseID, studentID uint) (bool, error)
	// AddStudent records course membership. Idempotent: re-adding an
	// existing member is a no-op.
	AddStudent(courseID, studentID uint) error
}

type courseRepository struct {
	db *gorm.DB
}

func NewCourseRepository(db *gorm.DB) CourseRepository {
	return &courseRepository{db: db}
}

func (r *courseRepository) Create(course *models.Course) error {
	if err := r.db.Create(course).Error; err != nil {
		return fmt.Errorf("failed to create course: %w", err)
	}
	return nil
}

func (r *courseRepository) GetByID(id uint) (*models.Course, error) {
	var course models.Course
	if err := r.db.First(&course, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	return &course, nil
}

func (r *courseRepository) GetIDsByTeacher(teacherID uint) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.Course{}).
		Where("teacher_id = ?", teacherID).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get teacher courses: %w", err)
	}
	return ids, nil
}

func (r *courseRepository) IsStudentEnrolled(courseID, studentID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.CourseStudent{}).
		Where("course_id = ? AND student_id = ?", courseID, studentID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check enrollment: %w", err)
	}
	return count > 0, nil
}

func (r *courseRepository) AddStudent(courseID, studentID uint) error {
	member := models.CourseStudent{CourseID: courseID, StudentID: studentID}
	err := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&member).Error
	if err != nil {
		return fmt.Errorf("failed to add student to course: %w", err)
	}
	return nil
}
