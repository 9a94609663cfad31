// Package inmem is a map-backed implementation of the repositories. It backs
// the memory storage driver and the service tests.
package inmem

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/SAP-F-2025/evaluation-service/internal/clock"
	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/SAP-F-2025/evaluation-service/internal/repositories"
)

type (
	DB struct {
		mu    sync.RWMutex
		data  *tables
		clock clock.Clock
	}

	stateKey struct {
		departmentID uint
		year         int
	}

	answerKey struct {
		teacherID  string
		questionID uint
		term       models.TermStatus
		year       int
	}

	tables struct {
		seq uint

		users        map[string]models.User
		departments  map[uint]models.Department
		terms        map[uint]models.Term
		termStates   map[stateKey]models.TermState
		questions    map[uint]models.Question
		answers      map[answerKey]models.TeacherAnswer
		selfComments map[repositories.EvaluationKey]models.SelfComment

		hodReviews   map[repositories.EvaluationKey]models.HodReview
		asstReviews  map[repositories.EvaluationKey]models.AsstReview
		finalReviews map[repositories.EvaluationKey]models.FinalReview
		asstDeanHod  map[repositories.EvaluationKey]models.AsstDeanHodReview
		deanHod      map[repositories.EvaluationKey]models.DeanHodReview

		audit []models.AuditLog
	}
)

// Open returns an empty store. Timestamps are taken from clk.
func Open(clk clock.Clock) *DB {
	if clk == nil {
		clk = clock.Real()
	}
	return &DB{
		clock: clk,
		data: &tables{
			users:        make(map[string]models.User),
			departments:  make(map[uint]models.Department),
			terms:        make(map[uint]models.Term),
			termStates:   make(map[stateKey]models.TermState),
			questions:    make(map[uint]models.Question),
			answers:      make(map[answerKey]models.TeacherAnswer),
			selfComments: make(map[repositories.EvaluationKey]models.SelfComment),
			hodReviews:   make(map[repositories.EvaluationKey]models.HodReview),
			asstReviews:  make(map[repositories.EvaluationKey]models.AsstReview),
			finalReviews: make(map[repositories.EvaluationKey]models.FinalReview),
			asstDeanHod:  make(map[repositories.EvaluationKey]models.AsstDeanHodReview),
			deanHod:      make(map[repositories.EvaluationKey]models.DeanHodReview),
		},
	}
}

func (t *tables) clone() *tables {
	return &tables{
		seq:          t.seq,
		users:        maps.Clone(t.users),
		departments:  maps.Clone(t.departments),
		terms:        maps.Clone(t.terms),
		termStates:   maps.Clone(t.termStates),
		questions:    maps.Clone(t.questions),
		answers:      maps.Clone(t.answers),
		selfComments: maps.Clone(t.selfComments),
		hodReviews:   maps.Clone(t.hodReviews),
		asstReviews:  maps.Clone(t.asstReviews),
		finalReviews: maps.Clone(t.finalReviews),
		asstDeanHod:  maps.Clone(t.asstDeanHod),
		deanHod:      maps.Clone(t.deanHod),
		audit:        append([]models.AuditLog(nil), t.audit...),
	}
}

func (t *tables) nextID() uint {
	t.seq++
	return t.seq
}

// Repository implements repositories.Repository. Inside a transaction tx
// points at a private copy of the tables and the DB write lock is held.
type Repository struct {
	db *DB
	tx *tables
}

var _ repositories.Repository = (*Repository)(nil)

func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) now() time.Time {
	return r.db.clock.Now()
}

func (r *Repository) read(fn func(t *tables) error) error {
	if r.tx != nil {
		return fn(r.tx)
	}
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	return fn(r.db.data)
}

func (r *Repository) write(fn func(t *tables) error) error {
	if r.tx != nil {
		return fn(r.tx)
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return fn(r.db.data)
}

// WithTransaction applies fn to a copy of the tables and swaps it in only if
// fn succeeds. Nested calls join the outer transaction.
func (r *Repository) WithTransaction(ctx context.Context, fn func(tx repositories.Repository) error) error {
	if r.tx != nil {
		return fn(r)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	work := r.db.data.clone()
	if err := fn(&Repository{db: r.db, tx: work}); err != nil {
		return err
	}
	r.db.data = work
	return nil
}

func (r *Repository) User() repositories.UserRepository {
	return &userStore{r}
}

func (r *Repository) Department() repositories.DepartmentRepository {
	return &departmentStore{r}
}

func (r *Repository) Term() repositories.TermRepository {
	return &termStore{r}
}

func (r *Repository) TermState() repositories.TermStateRepository {
	return &termStateStore{r}
}

func (r *Repository) Question() repositories.QuestionRepository {
	return &questionStore{r}
}

func (r *Repository) Submission() repositories.SubmissionRepository {
	return &submissionStore{r}
}

func (r *Repository) Review() repositories.ReviewRepository {
	return &reviewStore{r}
}

func (r *Repository) HodPerformance() repositories.HodPerformanceRepository {
	return &hodPerformanceStore{r}
}

func (r *Repository) Audit() repositories.AuditRepository {
	return &auditStore{r}
}
