package inmem

import (
	"context"
	"sort"
	"time"

	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/SAP-F-2025/evaluation-service/internal/repositories"
)

type reviewRow[E any] interface {
	*E
	Record() *models.ReviewRecord
}

// saveReview mirrors the SQL compare-and-swap: inserts start at version 1 and
// updates only apply while the stored version matches.
func saveReview[E any, P reviewRow[E]](t *tables, table map[repositories.EvaluationKey]E, key repositories.EvaluationKey, row P, now time.Time) error {
	record := row.Record()
	current, exists := table[key]

	if record.ID == 0 {
		if exists {
			return repositories.ErrVersionConflict
		}
		record.ID = t.nextID()
		record.Version = 1
		record.CreatedAt, record.UpdatedAt = now, now
		table[key] = *row
		return nil
	}

	if !exists {
		return repositories.ErrNotFound
	}
	stored := P(&current).Record()
	if stored.ID != record.ID || stored.Version != record.Version {
		return repositories.ErrVersionConflict
	}

	record.Version++
	record.CreatedAt = stored.CreatedAt
	record.UpdatedAt = now
	table[key] = *row
	return nil
}

func getReview[E any](r *Repository, pick func(t *tables) map[repositories.EvaluationKey]E, key repositories.EvaluationKey) (*E, error) {
	var row E
	err := r.read(func(t *tables) error {
		found, ok := pick(t)[key]
		if !ok {
			return repositories.ErrNotFound
		}
		row = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func listReviews[E any](r *Repository, pick func(t *tables) map[repositories.EvaluationKey]E, match func(repositories.EvaluationKey) bool) []*E {
	type entry struct {
		key repositories.EvaluationKey
		row E
	}
	var entries []entry
	_ = r.read(func(t *tables) error {
		for k, row := range pick(t) {
			if match(k) {
				entries = append(entries, entry{k, row})
			}
		}
		return nil
	})
	sort.Slice(entries, func(i, j int) bool { return entries[i].key.SubjectID < entries[j].key.SubjectID })

	rows := make([]*E, 0, len(entries))
	for i := range entries {
		rows = append(rows, &entries[i].row)
	}
	return rows
}

func matchSubjects(ids []string, term models.TermStatus, year int) func(repositories.EvaluationKey) bool {
	wanted := toSet(ids)
	return func(k repositories.EvaluationKey) bool {
		return (ids == nil || wanted[k.SubjectID]) && k.Term == term && k.Year == year
	}
}

func teacherKey(teacherID string, term models.TermStatus, year int) repositories.EvaluationKey {
	return repositories.EvaluationKey{SubjectID: teacherID, Term: term, Year: year}
}

type reviewStore struct {
	*Repository
}

func hodReviews(t *tables) map[repositories.EvaluationKey]models.HodReview     { return t.hodReviews }
func asstReviews(t *tables) map[repositories.EvaluationKey]models.AsstReview   { return t.asstReviews }
func finalReviews(t *tables) map[repositories.EvaluationKey]models.FinalReview { return t.finalReviews }

func (s *reviewStore) GetHodReview(_ context.Context, key repositories.EvaluationKey) (*models.HodReview, error) {
	return getReview(s.Repository, hodReviews, key)
}

func (s *reviewStore) SaveHodReview(_ context.Context, review *models.HodReview) error {
	return s.write(func(t *tables) error {
		return saveReview(t, t.hodReviews, teacherKey(review.TeacherID, review.Term, review.Year), review, s.now())
	})
}

func (s *reviewStore) ListHodReviews(_ context.Context, teacherIDs []string, term models.TermStatus, year int) ([]*models.HodReview, error) {
	if len(teacherIDs) == 0 {
		return nil, nil
	}
	return listReviews(s.Repository, hodReviews, matchSubjects(teacherIDs, term, year)), nil
}

func (s *reviewStore) GetAsstReview(_ context.Context, key repositories.EvaluationKey) (*models.AsstReview, error) {
	return getReview(s.Repository, asstReviews, key)
}

func (s *reviewStore) SaveAsstReview(_ context.Context, review *models.AsstReview) error {
	return s.write(func(t *tables) error {
		return saveReview(t, t.asstReviews, teacherKey(review.TeacherID, review.Term, review.Year), review, s.now())
	})
}

func (s *reviewStore) ListAsstReviews(_ context.Context, teacherIDs []string, term models.TermStatus, year int) ([]*models.AsstReview, error) {
	if len(teacherIDs) == 0 {
		return nil, nil
	}
	return listReviews(s.Repository, asstReviews, matchSubjects(teacherIDs, term, year)), nil
}

func (s *reviewStore) GetFinalReview(_ context.Context, key repositories.EvaluationKey) (*models.FinalReview, error) {
	return getReview(s.Repository, finalReviews, key)
}

func (s *reviewStore) SaveFinalReview(_ context.Context, review *models.FinalReview) error {
	return s.write(func(t *tables) error {
		return saveReview(t, t.finalReviews, teacherKey(review.TeacherID, review.Term, review.Year), review, s.now())
	})
}

func (s *reviewStore) ListFinalReviews(_ context.Context, teacherIDs []string, term models.TermStatus, year int) ([]*models.FinalReview, error) {
	if len(teacherIDs) == 0 {
		return nil, nil
	}
	return listReviews(s.Repository, finalReviews, matchSubjects(teacherIDs, term, year)), nil
}

type hodPerformanceStore struct {
	*Repository
}

func asstDeanHod(t *tables) map[repositories.EvaluationKey]models.AsstDeanHodReview { return t.asstDeanHod }
func deanHod(t *tables) map[repositories.EvaluationKey]models.DeanHodReview         { return t.deanHod }

func (s *hodPerformanceStore) GetAsstDeanReview(_ context.Context, key repositories.EvaluationKey) (*models.AsstDeanHodReview, error) {
	return getReview(s.Repository, asstDeanHod, key)
}

func (s *hodPerformanceStore) SaveAsstDeanReview(_ context.Context, review *models.AsstDeanHodReview) error {
	return s.write(func(t *tables) error {
		return saveReview(t, t.asstDeanHod, teacherKey(review.HodID, review.Term, review.Year), review, s.now())
	})
}

func (s *hodPerformanceStore) ListAsstDeanReviews(_ context.Context, term models.TermStatus, year int) ([]*models.AsstDeanHodReview, error) {
	return listReviews(s.Repository, asstDeanHod, matchSubjects(nil, term, year)), nil
}

func (s *hodPerformanceStore) GetDeanReview(_ context.Context, key repositories.EvaluationKey) (*models.DeanHodReview, error) {
	return getReview(s.Repository, deanHod, key)
}

func (s *hodPerformanceStore) SaveDeanReview(_ context.Context, review *models.DeanHodReview) error {
	return s.write(func(t *tables) error {
		return saveReview(t, t.deanHod, teacherKey(review.HodID, review.Term, review.Year), review, s.now())
	})
}

func (s *hodPerformanceStore) ListDeanReviews(_ context.Context, term models.TermStatus, year int) ([]*models.DeanHodReview, error) {
	return listReviews(s.Repository, deanHod, matchSubjects(nil, term, year)), nil
}
