package repositories

import "gorm.io/gorm"

// Store bundles the repositories so a service can run a unit of work
// spanning more than one of them. ExecuteInTransaction hands the caller a
// transaction-scoped Store; everything done through it commits or rolls
// back as one database transaction.
type Store interface {
	Ledger() LedgerRepository
	Bonuses() BonusRepository
	Courses() CourseRepository
	Users() UserRepository
	ExecuteInTransaction(fn func(Store) error) error
}

type gormStore struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Ledger() LedgerRepository {
	return NewLedgerRepository(s.db)
}

func (s *gormStore) Bonuses() BonusRepository {
	return NewBonusRepository(s.db)
}

func (s *gormStore) Courses() CourseRepository {
	return NewCourseRepository(s.db)
}

func (s *gormStore) Users() UserRepository {
	return NewUserRepository(s.db)
}

func (s *gormStore) ExecuteInTransaction(fn func(Store) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}
