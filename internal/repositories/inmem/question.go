package inmem

import (
	"context"
	"sort"

	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/SAP-F-2025/evaluation-service/internal/repositories"
)

type questionStore struct {
	*Repository
}

func (s *questionStore) Create(_ context.Context, question *models.Question) error {
	return s.write(func(t *tables) error {
		question.ID = t.nextID()
		now := s.now()
		question.CreatedAt, question.UpdatedAt = now, now
		t.questions[question.ID] = *question
		return nil
	})
}

func (s *questionStore) GetByID(_ context.Context, id uint) (*models.Question, error) {
	var question models.Question
	err := s.read(func(t *tables) error {
		found, ok := t.questions[id]
		if !ok {
			return repositories.ErrNotFound
		}
		question = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &question, nil
}

func (s *questionStore) Update(_ context.Context, question *models.Question) error {
	return s.write(func(t *tables) error {
		existing, ok := t.questions[question.ID]
		if !ok {
			return repositories.ErrNotFound
		}
		question.CreatedAt = existing.CreatedAt
		question.UpdatedAt = s.now()
		t.questions[question.ID] = *question
		return nil
	})
}

func (s *questionStore) Delete(_ context.Context, id uint) error {
	return s.write(func(t *tables) error {
		if _, ok := t.questions[id]; !ok {
			return repositories.ErrNotFound
		}
		delete(t.questions, id)
		return nil
	})
}

func (s *questionStore) List(_ context.Context, filters repositories.QuestionFilters) ([]*models.Question, error) {
	var questions []*models.Question
	_ = s.read(func(t *tables) error {
		for _, q := range t.questions {
			if !inScope(q, filters.DepartmentID, filters.Term, filters.Year) {
				continue
			}
			if filters.ActiveOnly && !q.IsActive {
				continue
			}
			if filters.PublishedOnly && !q.IsPublished {
				continue
			}
			q := q
			questions = append(questions, &q)
		}
		return nil
	})
	sort.Slice(questions, func(i, j int) bool {
		if questions[i].SortOrder == questions[j].SortOrder {
			return questions[i].ID < questions[j].ID
		}
		return questions[i].SortOrder < questions[j].SortOrder
	})
	return questions, nil
}

func (s *questionStore) NextOrder(_ context.Context, departmentID uint, term models.TermStatus, year int) (int, error) {
	maxOrder := 0
	_ = s.read(func(t *tables) error {
		for _, q := range t.questions {
			if inScope(q, departmentID, term, year) && q.SortOrder > maxOrder {
				maxOrder = q.SortOrder
			}
		}
		return nil
	})
	return maxOrder + 1, nil
}

func (s *questionStore) PublishPending(_ context.Context, departmentID uint, term models.TermStatus, year int) (int64, error) {
	var published int64
	err := s.write(func(t *tables) error {
		now := s.now()
		for id, q := range t.questions {
			if !inScope(q, departmentID, term, year) || !q.IsActive || q.IsPublished {
				continue
			}
			q.IsPublished = true
			q.UpdatedAt = now
			t.questions[id] = q
			published++
		}
		return nil
	})
	return published, err
}

func inScope(q models.Question, departmentID uint, term models.TermStatus, year int) bool {
	return q.DepartmentID == departmentID && q.Term == term && q.Year == year
}
