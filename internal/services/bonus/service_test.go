package bonus

import (
	"context"
	"sync"
	"testing"
	"time"

	"coursewallet/internal/models"
	"coursewallet/internal/repositories/memstore"
	"coursewallet/internal/services/ledger"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopCache struct{}

func (nopCache) GetBalance(ctx context.Context, ownerID uint) (*models.Balance, error) {
	return nil, nil
}
func (nopCache) CacheBalance(ctx context.Context, balance *models.Balance) error { return nil }
func (nopCache) InvalidateBalance(ctx context.Context, ownerID uint) error       { return nil }

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

var accountant = models.Actor{UserID: 99, Role: models.RoleAccountant}

type fixture struct {
	svc       Service
	ledgerSvc ledger.Service
	store     *memstore.Store
	teacher   *models.User
	course    *models.Course
}

// newFixture seeds one teacher with one course and creates the master
// balance, owned by a teacher-role user so the batch exclusion is
// observable.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	store := memstore.New()

	masterOwner := &models.User{Email: "director@school.test", Name: "Director", Role: models.RoleTeacher}
	require.NoError(t, store.Users().Create(masterOwner))

	teacher := &models.User{Email: "teacher@school.test", Name: "Ada", Role: models.RoleTeacher}
	require.NoError(t, store.Users().Create(teacher))

	course := &models.Course{Name: "Go Basics", TeacherID: teacher.ID, Cost: dec("40")}
	require.NoError(t, store.Courses().Create(course))

	ledgerSvc := ledger.NewService(store.Ledger(), nopCache{}, ledger.Config{MasterOwnerID: masterOwner.ID}, nil)
	_, err := ledgerSvc.GetMasterBalance(ctx)
	require.NoError(t, err)

	svc := NewService(store, ledgerSvc, nopCache{})
	return &fixture{svc: svc, ledgerSvc: ledgerSvc, store: store, teacher: teacher, course: course}
}

// seedExpenditure inserts an expenditure row against a course at a fixed
// instant, the way an enrollment transfer would have recorded it.
func (f *fixture) seedExpenditure(t *testing.T, courseID uint, amount string, at time.Time) {
	t.Helper()
	require.NoError(t, f.store.Ledger().CreateTransaction(&models.Transaction{
		BalanceID:   1,
		Amount:      dec(amount),
		Kind:        models.KindExpenditure,
		Source:      models.SourceAutomatic,
		Description: "Enrollment in course",
		Reference:   time.Now().Format(time.RFC3339Nano),
		CourseID:    &courseID,
		CreatedAt:   at,
	}))
}

func (f *fixture) fundMaster(t *testing.T, amount string) {
	t.Helper()
	ctx := context.Background()
	master, err := f.ledgerSvc.GetMasterBalance(ctx)
	require.NoError(t, err)
	_, err = f.ledgerSvc.Record(ctx, ledger.RecordRequest{
		BalanceID:   master.ID,
		Amount:      dec(amount),
		Kind:        models.KindDeposit,
		Source:      models.SourceAccountant,
		Description: "Deposit by accountant",
	})
	require.NoError(t, err)
}

func TestCompute(t *testing.T) {
	ctx := context.Background()
	march := time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)

	t.Run("takes the default percentage of the month's course revenue", func(t *testing.T) {
		f := newFixture(t)
		f.seedExpenditure(t, f.course.ID, "300", march)
		f.seedExpenditure(t, f.course.ID, "200", march.AddDate(0, 0, 5))
		f.seedExpenditure(t, f.course.ID, "100", march.AddDate(0, 1, 0)) // April
		otherCourse := &models.Course{Name: "Rust Basics", TeacherID: 77, Cost: dec("40")}
		require.NoError(t, f.store.Courses().Create(otherCourse))
		f.seedExpenditure(t, otherCourse.ID, "150", march)

		bonus, err := f.svc.Compute(ctx, accountant, f.teacher.ID, 2026, 3)
		require.NoError(t, err)
		assert.True(t, bonus.Amount.Equal(dec("350")), "got %s", bonus.Amount)
		assert.Equal(t, models.BonusStateCalculated, bonus.State)
		assert.False(t, bonus.Sent)
	})

	t.Run("honors a record's own percentage", func(t *testing.T) {
		f := newFixture(t)
		f.seedExpenditure(t, f.course.ID, "500", march)
		require.NoError(t, f.store.Bonuses().Create(&models.Bonus{
			TeacherID:  f.teacher.ID,
			Year:       2026,
			Month:      3,
			Percentage: 50,
			Amount:     decimal.Zero,
			State:      models.BonusStateDraft,
		}))

		bonus, err := f.svc.Compute(ctx, accountant, f.teacher.ID, 2026, 3)
		require.NoError(t, err)
		assert.True(t, bonus.Amount.Equal(dec("250")), "got %s", bonus.Amount)
	})

	t.Run("recompute refreshes the amount", func(t *testing.T) {
		f := newFixture(t)
		f.seedExpenditure(t, f.course.ID, "100", march)

		first, err := f.svc.Compute(ctx, accountant, f.teacher.ID, 2026, 3)
		require.NoError(t, err)
		assert.True(t, first.Amount.Equal(dec("70")), "got %s", first.Amount)

		f.seedExpenditure(t, f.course.ID, "100", march)
		second, err := f.svc.Compute(ctx, accountant, f.teacher.ID, 2026, 3)
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		assert.True(t, second.Amount.Equal(dec("140")), "got %s", second.Amount)
	})

	t.Run("teacher without sales computes to zero", func(t *testing.T) {
		f := newFixture(t)
		bonus, err := f.svc.Compute(ctx, accountant, f.teacher.ID, 2026, 3)
		require.NoError(t, err)
		assert.True(t, bonus.Amount.IsZero())
	})

	t.Run("a sent bonus is final", func(t *testing.T) {
		f := newFixture(t)
		f.seedExpenditure(t, f.course.ID, "500", march)
		f.fundMaster(t, "1000")

		bonus, err := f.svc.Compute(ctx, accountant, f.teacher.ID, 2026, 3)
		require.NoError(t, err)
		_, err = f.svc.Send(ctx, accountant, bonus.ID)
		require.NoError(t, err)

		_, err = f.svc.Compute(ctx, accountant, f.teacher.ID, 2026, 3)
		assert.ErrorIs(t, err, ErrAlreadySent)
	})

	t.Run("rejects invalid periods and non-accountants", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.Compute(ctx, accountant, f.teacher.ID, 2026, 0)
		assert.ErrorIs(t, err, ErrInvalidPeriod)
		_, err = f.svc.Compute(ctx, accountant, f.teacher.ID, 2026, 13)
		assert.ErrorIs(t, err, ErrInvalidPeriod)

		student := models.Actor{UserID: 5, Role: models.RoleStudent}
		_, err = f.svc.Compute(ctx, student, f.teacher.ID, 2026, 3)
		assert.ErrorIs(t, err, ErrAccessDenied)
	})
}

func TestSend(t *testing.T) {
	ctx := context.Background()
	march := time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)

	prepare := func(t *testing.T, masterFunds string) (*fixture, *models.Bonus) {
		t.Helper()
		f := newFixture(t)
		f.seedExpenditure(t, f.course.ID, "500", march)
		if masterFunds != "0" {
			f.fundMaster(t, masterFunds)
		}
		bonus, err := f.svc.Compute(ctx, accountant, f.teacher.ID, 2026, 3)
		require.NoError(t, err)
		return f, bonus
	}

	t.Run("pays the teacher from the master balance", func(t *testing.T) {
		f, bonus := prepare(t, "1000")

		payout, err := f.svc.Send(ctx, accountant, bonus.ID)
		require.NoError(t, err)
		assert.Equal(t, models.KindBonus, payout.Kind)
		require.NotNil(t, payout.BonusID)
		assert.Equal(t, bonus.ID, *payout.BonusID)

		teacherBalance, err := f.ledgerSvc.GetBalanceByOwner(ctx, f.teacher.ID)
		require.NoError(t, err)
		assert.True(t, teacherBalance.Amount.Equal(dec("350")), "got %s", teacherBalance.Amount)

		master, err := f.ledgerSvc.GetMasterBalance(ctx)
		require.NoError(t, err)
		assert.True(t, master.Amount.Equal(dec("650")), "got %s", master.Amount)

		sent, err := f.svc.Get(ctx, accountant, bonus.ID)
		require.NoError(t, err)
		assert.True(t, sent.Sent)
		assert.Equal(t, models.BonusStateSent, sent.State)
		require.NotNil(t, sent.TransactionID)
		assert.Equal(t, payout.ID, *sent.TransactionID)
	})

	t.Run("a bonus can only be sent once", func(t *testing.T) {
		f, bonus := prepare(t, "1000")

		_, err := f.svc.Send(ctx, accountant, bonus.ID)
		require.NoError(t, err)
		_, err = f.svc.Send(ctx, accountant, bonus.ID)
		assert.ErrorIs(t, err, ErrAlreadySent)

		teacherBalance, err := f.ledgerSvc.GetBalanceByOwner(ctx, f.teacher.ID)
		require.NoError(t, err)
		assert.True(t, teacherBalance.Amount.Equal(dec("350")), "paid twice: %s", teacherBalance.Amount)
	})

	t.Run("concurrent sends pay exactly once", func(t *testing.T) {
		f, bonus := prepare(t, "1000")

		// Pre-create the teacher balance so the concurrent sends only
		// contend on the bonus row.
		_, err := f.ledgerSvc.GetOrCreateBalance(ctx, f.teacher.ID)
		require.NoError(t, err)

		const senders = 8
		errs := make([]error, senders)
		var wg sync.WaitGroup
		for i := 0; i < senders; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = f.svc.Send(ctx, accountant, bonus.ID)
			}(i)
		}
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
			} else {
				assert.ErrorIs(t, err, ErrAlreadySent)
			}
		}
		assert.Equal(t, 1, succeeded)

		teacherBalance, err := f.ledgerSvc.GetBalanceByOwner(ctx, f.teacher.ID)
		require.NoError(t, err)
		assert.True(t, teacherBalance.Amount.Equal(dec("350")), "got %s", teacherBalance.Amount)
	})

	t.Run("insufficient master funds fails atomically", func(t *testing.T) {
		f, bonus := prepare(t, "100")

		_, err := f.svc.Send(ctx, accountant, bonus.ID)
		assert.ErrorIs(t, err, ErrInsufficientMasterFunds)

		master, err := f.ledgerSvc.GetMasterBalance(ctx)
		require.NoError(t, err)
		assert.True(t, master.Amount.Equal(dec("100")), "got %s", master.Amount)

		unsent, err := f.svc.Get(ctx, accountant, bonus.ID)
		require.NoError(t, err)
		assert.False(t, unsent.Sent)
		assert.Equal(t, models.BonusStateCalculated, unsent.State)
	})

	t.Run("a zero bonus cannot be sent", func(t *testing.T) {
		f := newFixture(t)
		f.fundMaster(t, "1000")
		bonus, err := f.svc.Compute(ctx, accountant, f.teacher.ID, 2026, 3)
		require.NoError(t, err)

		_, err = f.svc.Send(ctx, accountant, bonus.ID)
		assert.ErrorIs(t, err, ErrNonPositiveAmount)
	})

	t.Run("unknown bonus", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Send(ctx, accountant, 999)
		assert.ErrorIs(t, err, ErrBonusNotFound)
	})
}

func TestComputeAll(t *testing.T) {
	ctx := context.Background()

	t.Run("creates drafts for every teacher except the master owner", func(t *testing.T) {
		f := newFixture(t)
		second := &models.User{Email: "second@school.test", Name: "Grace", Role: models.RoleTeacher}
		require.NoError(t, f.store.Users().Create(second))
		student := &models.User{Email: "student@school.test", Name: "Linus", Role: models.RoleStudent}
		require.NoError(t, f.store.Users().Create(student))

		created, err := f.svc.ComputeAll(ctx, accountant, 2026, 3)
		require.NoError(t, err)
		assert.Equal(t, 2, created) // f.teacher and second; the master owner is skipped

		_, err = f.store.Bonuses().GetByTeacherMonth(f.teacher.ID, 2026, 3)
		assert.NoError(t, err)
		_, err = f.store.Bonuses().GetByTeacherMonth(second.ID, 2026, 3)
		assert.NoError(t, err)
	})

	t.Run("idempotent across runs", func(t *testing.T) {
		f := newFixture(t)

		first, err := f.svc.ComputeAll(ctx, accountant, 2026, 3)
		require.NoError(t, err)
		assert.Equal(t, 1, first)

		second, err := f.svc.ComputeAll(ctx, accountant, 2026, 3)
		require.NoError(t, err)
		assert.Equal(t, 0, second)
	})

	t.Run("existing records are left untouched", func(t *testing.T) {
		f := newFixture(t)
		march := time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)
		f.seedExpenditure(t, f.course.ID, "500", march)

		calculated, err := f.svc.Compute(ctx, accountant, f.teacher.ID, 2026, 3)
		require.NoError(t, err)

		created, err := f.svc.ComputeAll(ctx, accountant, 2026, 3)
		require.NoError(t, err)
		assert.Equal(t, 0, created)

		after, err := f.store.Bonuses().GetByTeacherMonth(f.teacher.ID, 2026, 3)
		require.NoError(t, err)
		assert.True(t, after.Amount.Equal(calculated.Amount))
		assert.Equal(t, models.BonusStateCalculated, after.State)
	})

	t.Run("rejects invalid periods and non-accountants", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.ComputeAll(ctx, accountant, 2026, 13)
		assert.ErrorIs(t, err, ErrInvalidPeriod)

		teacher := models.Actor{UserID: 5, Role: models.RoleTeacher}
		_, err = f.svc.ComputeAll(ctx, teacher, 2026, 3)
		assert.ErrorIs(t, err, ErrAccessDenied)
	})
}

func TestList(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Compute(ctx, accountant, f.teacher.ID, 2026, 2)
	require.NoError(t, err)
	_, err = f.svc.Compute(ctx, accountant, f.teacher.ID, 2026, 3)
	require.NoError(t, err)

	bonuses, err := f.svc.List(ctx, accountant, 10, 0)
	require.NoError(t, err)
	require.Len(t, bonuses, 2)
	assert.Equal(t, 3, bonuses[0].Month) // newest period first

	student := models.Actor{UserID: 5, Role: models.RoleStudent}
	_, err = f.svc.List(ctx, student, 10, 0)
	assert.ErrorIs(t, err, ErrAccessDenied)
}
