// Package memstore is an in-memory implementation of the repositories
// used by the service tests. It enforces the same unique constraints the
// Postgres schema does and gives ExecuteInTransaction real rollback
// semantics by snapshotting state before fn runs. A single mutex
// serializes transactions, so row locks degrade to plain reads.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"coursewallet/internal/models"
	"coursewallet/internal/repositories"

	"github.com/shopspring/decimal"
)

type data struct {
	balances     map[uint]*models.Balance
	transactions map[uint]*models.Transaction
	bonuses      map[uint]*models.Bonus
	courses      map[uint]*models.Course
	members      map[[2]uint]bool
	users        map[uint]*models.User

	nextBalanceID uint
	nextTxnID     uint
	nextBonusID   uint
	nextCourseID  uint
	nextUserID    uint
}

// Store implements repositories.Store in memory.
type Store struct {
	mu   *sync.Mutex
	data *data
	inTx bool
}

func New() *Store {
	return &Store{
		mu: &sync.Mutex{},
		data: &data{
			balances:     make(map[uint]*models.Balance),
			transactions: make(map[uint]*models.Transaction),
			bonuses:      make(map[uint]*models.Bonus),
			courses:      make(map[uint]*models.Course),
			members:      make(map[[2]uint]bool),
			users:        make(map[uint]*models.User),
		},
	}
}

func (s *Store) Ledger() repositories.LedgerRepository { return &ledgerRepo{s} }
func (s *Store) Bonuses() repositories.BonusRepository { return &bonusRepo{s} }
func (s *Store) Courses() repositories.CourseRepository {
	return &courseRepo{s}
}
func (s *Store) Users() repositories.UserRepository { return &userRepo{s} }

func (s *Store) ExecuteInTransaction(fn func(repositories.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	tx := &Store{mu: s.mu, data: s.data, inTx: true}
	if err := fn(tx); err != nil {
		*s.data = *snapshot
		return err
	}
	return nil
}

// lock guards single operations outside a transaction; inside one the
// transaction already holds the mutex.
func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (d *data) clone() *data {
	c := &data{
		balances:      make(map[uint]*models.Balance, len(d.balances)),
		transactions:  make(map[uint]*models.Transaction, len(d.transactions)),
		bonuses:       make(map[uint]*models.Bonus, len(d.bonuses)),
		courses:       make(map[uint]*models.Course, len(d.courses)),
		members:       make(map[[2]uint]bool, len(d.members)),
		users:         make(map[uint]*models.User, len(d.users)),
		nextBalanceID: d.nextBalanceID,
		nextTxnID:     d.nextTxnID,
		nextBonusID:   d.nextBonusID,
		nextCourseID:  d.nextCourseID,
		nextUserID:    d.nextUserID,
	}
	for id, b := range d.balances {
		cp := *b
		c.balances[id] = &cp
	}
	for id, t := range d.transactions {
		cp := *t
		c.transactions[id] = &cp
	}
	for id, b := range d.bonuses {
		cp := *b
		c.bonuses[id] = &cp
	}
	for id, course := range d.courses {
		cp := *course
		c.courses[id] = &cp
	}
	for k, v := range d.members {
		c.members[k] = v
	}
	for id, u := range d.users {
		cp := *u
		c.users[id] = &cp
	}
	return c
}

// ledgerRepo

type ledgerRepo struct {
	s *Store
}

func (r *ledgerRepo) CreateBalance(balance *models.Balance) error {
	defer r.s.lock()()
	for _, existing := range r.s.data.balances {
		if existing.OwnerID == balance.OwnerID {
			return repositories.ErrDuplicateBalance
		}
	}
	r.s.data.nextBalanceID++
	balance.ID = r.s.data.nextBalanceID
	balance.CreatedAt = time.Now().UTC()
	cp := *balance
	r.s.data.balances[balance.ID] = &cp
	return nil
}

func (r *ledgerRepo) GetBalanceByID(id uint) (*models.Balance, error) {
	defer r.s.lock()()
	b, ok := r.s.data.balances[id]
	if !ok {
		return nil, repositories.ErrBalanceNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *ledgerRepo) GetBalanceByOwnerID(ownerID uint) (*models.Balance, error) {
	defer r.s.lock()()
	for _, b := range r.s.data.balances {
		if b.OwnerID == ownerID {
			cp := *b
			return &cp, nil
		}
	}
	return nil, repositories.ErrBalanceNotFound
}

func (r *ledgerRepo) GetMasterBalance() (*models.Balance, error) {
	defer r.s.lock()()
	for _, b := range r.s.data.balances {
		if b.IsMaster {
			cp := *b
			return &cp, nil
		}
	}
	return nil, repositories.ErrBalanceNotFound
}

func (r *ledgerRepo) GetBalanceForUpdate(id uint) (*models.Balance, error) {
	return r.GetBalanceByID(id)
}

func (r *ledgerRepo) UpdateBalanceAmount(id uint, amount decimal.Decimal) error {
	defer r.s.lock()()
	b, ok := r.s.data.balances[id]
	if !ok {
		return repositories.ErrBalanceNotFound
	}
	b.Amount = amount
	b.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *ledgerRepo) CreateTransaction(tx *models.Transaction) error {
	defer r.s.lock()()
	r.s.data.nextTxnID++
	tx.ID = r.s.data.nextTxnID
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	cp := *tx
	r.s.data.transactions[tx.ID] = &cp
	return nil
}

func (r *ledgerRepo) GetTransactionByID(id uint) (*models.Transaction, error) {
	defer r.s.lock()()
	t, ok := r.s.data.transactions[id]
	if !ok {
		return nil, repositories.ErrTransactionNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *ledgerRepo) GetTransactionsByBalance(ctx context.Context, balanceID uint, limit, offset int) ([]models.Transaction, error) {
	defer r.s.lock()()
	var out []models.Transaction
	for _, t := range r.s.data.transactions {
		if t.BalanceID == balanceID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *ledgerRepo) SumExpenditures(ctx context.Context, courseIDs []uint, start, end time.Time) (decimal.Decimal, error) {
	defer r.s.lock()()
	ids := make(map[uint]bool, len(courseIDs))
	for _, id := range courseIDs {
		ids[id] = true
	}
	total := decimal.Zero
	for _, t := range r.s.data.transactions {
		if t.Kind != models.KindExpenditure || t.CourseID == nil || !ids[*t.CourseID] {
			continue
		}
		if t.CreatedAt.Before(start) || t.CreatedAt.After(end) {
			continue
		}
		total = total.Add(t.Amount)
	}
	return total, nil
}

func (r *ledgerRepo) ExecuteInTransaction(fn func(repositories.LedgerRepository) error) error {
	return r.s.ExecuteInTransaction(func(tx repositories.Store) error {
		return fn(tx.Ledger())
	})
}

// bonusRepo

type bonusRepo struct {
	s *Store
}

func (r *bonusRepo) Create(bonus *models.Bonus) error {
	defer r.s.lock()()
	for _, existing := range r.s.data.bonuses {
		if existing.TeacherID == bonus.TeacherID && existing.Year == bonus.Year && existing.Month == bonus.Month {
			return repositories.ErrDuplicateBonus
		}
	}
	r.s.data.nextBonusID++
	bonus.ID = r.s.data.nextBonusID
	bonus.CreatedAt = time.Now().UTC()
	cp := *bonus
	r.s.data.bonuses[bonus.ID] = &cp
	return nil
}

func (r *bonusRepo) GetByID(id uint) (*models.Bonus, error) {
	defer r.s.lock()()
	b, ok := r.s.data.bonuses[id]
	if !ok {
		return nil, repositories.ErrBonusNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *bonusRepo) GetByTeacherMonth(teacherID uint, year, month int) (*models.Bonus, error) {
	defer r.s.lock()()
	for _, b := range r.s.data.bonuses {
		if b.TeacherID == teacherID && b.Year == year && b.Month == month {
			cp := *b
			return &cp, nil
		}
	}
	return nil, repositories.ErrBonusNotFound
}

func (r *bonusRepo) GetForUpdate(id uint) (*models.Bonus, error) {
	return r.GetByID(id)
}

func (r *bonusRepo) Update(bonus *models.Bonus) error {
	defer r.s.lock()()
	if _, ok := r.s.data.bonuses[bonus.ID]; !ok {
		return repositories.ErrBonusNotFound
	}
	bonus.UpdatedAt = time.Now().UTC()
	cp := *bonus
	r.s.data.bonuses[bonus.ID] = &cp
	return nil
}

func (r *bonusRepo) List(limit, offset int) ([]models.Bonus, error) {
	defer r.s.lock()()
	var out []models.Bonus
	for _, b := range r.s.data.bonuses {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year > out[j].Year
		}
		if out[i].Month != out[j].Month {
			return out[i].Month > out[j].Month
		}
		return out[i].ID > out[j].ID
	})
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// courseRepo

type courseRepo struct {
	s *Store
}

func (r *courseRepo) Create(course *models.Course) error {
	defer r.s.lock()()
	r.s.data.nextCourseID++
	course.ID = r.s.data.nextCourseID
	course.CreatedAt = time.Now().UTC()
	cp := *course
	r.s.data.courses[course.ID] = &cp
	return nil
}

func (r *courseRepo) GetByID(id uint) (*models.Course, error) {
	defer r.s.lock()()
	c, ok := r.s.data.courses[id]
	if !ok {
		return nil, repositories.ErrCourseNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *courseRepo) GetIDsByTeacher(teacherID uint) ([]uint, error) {
	defer r.s.lock()()
	var ids []uint
	for _, c := range r.s.data.courses {
		if c.TeacherID == teacherID {
			ids = append(ids, c.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (r *courseRepo) IsStudentEnrolled(courseID, studentID uint) (bool, error) {
	defer r.s.lock()()
	return r.s.data.members[[2]uint{courseID, studentID}], nil
}

func (r *courseRepo) AddStudent(courseID, studentID uint) error {
	defer r.s.lock()()
	r.s.data.members[[2]uint{courseID, studentID}] = true
	return nil
}

// userRepo

type userRepo struct {
	s *Store
}

func (r *userRepo) Create(user *models.User) error {
	defer r.s.lock()()
	for _, existing := range r.s.data.users {
		if existing.Email == user.Email {
			return repositories.ErrDuplicateUser
		}
	}
	r.s.data.nextUserID++
	user.ID = r.s.data.nextUserID
	cp := *user
	r.s.data.users[user.ID] = &cp
	return nil
}

func (r *userRepo) GetByID(id uint) (*models.User, error) {
	defer r.s.lock()()
	u, ok := r.s.data.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *userRepo) GetByEmail(email string) (*models.User, error) {
	defer r.s.lock()()
	for _, u := range r.s.data.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r *userRepo) Update(user *models.User) error {
	defer r.s.lock()()
	if _, ok := r.s.data.users[user.ID]; !ok {
		return repositories.ErrUserNotFound
	}
	cp := *user
	r.s.data.users[user.ID] = &cp
	return nil
}

func (r *userRepo) GetTeacherIDs(excludeOwnerIDs []uint) ([]uint, error) {
	defer r.s.lock()()
	excluded := make(map[uint]bool, len(excludeOwnerIDs))
	for _, id := range excludeOwnerIDs {
		excluded[id] = true
	}
	var ids []uint
	for _, u := range r.s.data.users {
		if u.Role == models.RoleTeacher && !excluded[u.ID] {
			ids = append(ids, u.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}
