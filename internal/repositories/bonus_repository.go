package repositories

import (
	"errors"
	"fmt"

	"coursewallet/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrBonusNotFound  = errors.New("bonus not found")
	ErrDuplicateBonus = errors.New("bonus already exists for teacher and month")
)

// BonusRepository persists monthly teacher bonus records.
// (teacher_id, year, month) is unique; creation races surface as
// ErrDuplicateBonus so callers can treat create-or-fetch as an upsert.
type BonusRepository interface {
	Create(bonus *models.Bonus) error
	GetByID(id uint) (*models.Bonus, error)
	GetByTeacherMonth(teacherID uint, year, month int) (*models.Bonus, error)
	// GetForUpdate fetches the bonus row under a row-level write lock.
	// Only valid inside a surrounding database transaction.
	GetForUpdate(id uint) (*models.Bonus, error)
	Update(bonus *models.Bonus) error
	List(limit, offset int) ([]models.Bonus, error)
}

type bonusRepository struct {
	db *gorm.DB
}

func NewBonusRepository(db *gorm.DB) BonusRepository {
	return &bonusRepository{db: db}
}

func (r *bonusRepository) Create(bonus *models.Bonus) error {
	if err := r.db.Create(bonus).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateBonus
		}
		return fmt.Errorf("failed to create bonus: %w", err)
	}
	return nil
}

func (r *bonusRepository) GetByID(id uint) (*models.Bonus, error) {
	var bonus models.Bonus
	if err := r.db.First(&bonus, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBonusNotFound
		}
		return nil, fmt.Errorf("failed to get bonus: %w", err)
	}
	return &bonus, nil
}

func (r *bonusRepository) GetByTeacherMonth(teacherID uint, year, month int) (*models.Bonus, error) {
	var bonus models.Bonus
	err := r.db.
		Where("teacher_id = ? AND year = ? AND month = ?", teacherID, year, month).
		First(&bonus).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBonusNotFound
		}
		return nil, fmt.Errorf("failed to get bonus: %w", err)
	}
	return &bonus, nil
}

func (r *bonusRepository) GetForUpdate(id uint) (*models.Bonus, error) {
	var bonus models.Bonus
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&bonus, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBonusNotFound
		}
		return nil, fmt.Errorf("failed to lock bonus: %w", err)
	}
	return &bonus, nil
}

func (r *bonusRepository) Update(bonus *models.Bonus) error {
	if err := r.db.Save(bonus).Error; err != nil {
		return fmt.Errorf("failed to update bonus: %w", err)
	}
	return nil
}

func (r *bonusRepository) List(limit, offset int) ([]models.Bonus, error) {
	var bonuses []models.Bonus
	err := r.db.
		Order("year DESC, month DESC").
		Limit(limit).
		Offset(offset).
		Find(&bonuses).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list bonuses: %w", err)
	}
	return bonuses, nil
}
