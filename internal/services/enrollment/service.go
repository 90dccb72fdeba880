// Package enrollment mediates paid course enrollment: one atomic transfer
// of the course cost from the student's balance to the master balance,
// followed by the membership record the catalog uses for access.
package enrollment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"coursewallet/internal/models"
	"coursewallet/internal/repositories"
	"coursewallet/internal/services/ledger"

	"github.com/shopspring/decimal"
)

// Service errors
var (
	ErrAccessDenied      = errors.New("only students can enroll in courses")
	ErrAlreadyEnrolled   = errors.New("already enrolled in course")
	ErrInsufficientFunds = ledger.ErrInsufficientFunds
	ErrCourseNotFound    = errors.New("course not found")
)

// Receipt confirms a successful enrollment transfer. The catalog
// collaborator uses it to create the student's per-course access records.
type Receipt struct {
	StudentID  uint                `json:"student_id"`
	CourseID   uint                `json:"course_id"`
	CourseName string              `json:"course_name"`
	Amount     decimal.Decimal     `json:"amount"`
	Debit      *models.Transaction `json:"debit"`
	Credit     *models.Transaction `json:"credit"`
	EnrolledAt time.Time           `json:"enrolled_at"`
}

// Service handles paid course enrollment.
type Service interface {
	Enroll(ctx context.Context, actor models.Actor, courseID uint) (*Receipt, error)
}

type service struct {
	ledgerSvc ledger.Service
	courses   repositories.CourseRepository
	users     repositories.UserRepository
}

// NewService creates a new enrollment service.
func NewService(ledgerSvc ledger.Service, courses repositories.CourseRepository, users repositories.UserRepository) Service {
	if ledgerSvc == nil {
		panic("ledger service is required")
	}
	if courses == nil {
		panic("course repository is required")
	}
	if users == nil {
		panic("user repository is required")
	}
	return &service{
		ledgerSvc: ledgerSvc,
		courses:   courses,
		users:     users,
	}
}

// Enroll charges the course cost against the student's balance and credits
// it to the master balance as one atomic transfer. On insufficient funds it
// returns ErrInsufficientFunds and leaves no partial state behind.
func (s *service) Enroll(ctx context.Context, actor models.Actor, courseID uint) (*Receipt, error) {
	if !actor.IsStudent() {
		return nil, ErrAccessDenied
	}

	course, err := s.courses.GetByID(courseID)
	if err != nil {
		if errors.Is(err, repositories.ErrCourseNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}

	enrolled, err := s.courses.IsStudentEnrolled(courseID, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to check enrollment: %w", err)
	}
	if enrolled {
		return nil, ErrAlreadyEnrolled
	}

	student, err := s.users.GetByID(actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get student: %w", err)
	}

	studentBalance, err := s.ledgerSvc.GetOrCreateBalance(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	masterBalance, err := s.ledgerSvc.GetMasterBalance(ctx)
	if err != nil {
		return nil, err
	}

	// Early read-only check so an obviously underfunded student never
	// opens a transaction. The transfer re-verifies under row locks.
	if studentBalance.Amount.LessThan(course.Cost) {
		return nil, ErrInsufficientFunds
	}

	result, err := s.ledgerSvc.Transfer(ctx, ledger.TransferRequest{
		FromBalanceID:     studentBalance.ID,
		ToBalanceID:       masterBalance.ID,
		Amount:            course.Cost,
		DebitKind:         models.KindExpenditure,
		CreditKind:        models.KindDeposit,
		Source:            models.SourceAutomatic,
		DebitDescription:  fmt.Sprintf("Enrollment in course: %s", course.Name),
		CreditDescription: fmt.Sprintf("Payment from %s for course: %s", student.Name, course.Name),
		CourseID:          &course.ID,
	})
	if err != nil {
		return nil, err
	}

	if err := s.courses.AddStudent(course.ID, actor.UserID); err != nil {
		return nil, fmt.Errorf("transfer committed but membership record failed: %w", err)
	}

	return &Receipt{
		StudentID:  actor.UserID,
		CourseID:   course.ID,
		CourseName: course.Name,
		Amount:     course.Cost,
		Debit:      result.Debit,
		Credit:     result.Credit,
		EnrolledAt: time.Now().UTC(),
	}, nil
}
