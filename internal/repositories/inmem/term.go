package inmem

import (
	"context"
	"sort"

	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/SAP-F-2025/evaluation-service/internal/repositories"
)

type termStore struct {
	*Repository
}

func (s *termStore) Create(_ context.Context, term *models.Term) error {
	return s.write(func(t *tables) error {
		for _, d := range term.Departments {
			if _, ok := t.departments[d.ID]; !ok {
				return repositories.ErrNotFound
			}
		}
		term.ID = t.nextID()
		now := s.now()
		term.CreatedAt, term.UpdatedAt = now, now
		t.terms[term.ID] = *term
		return nil
	})
}

func (s *termStore) GetByID(_ context.Context, id uint) (*models.Term, error) {
	var term models.Term
	err := s.read(func(t *tables) error {
		found, ok := t.terms[id]
		if !ok {
			return repositories.ErrNotFound
		}
		term = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &term, nil
}

func (s *termStore) GetForDepartment(_ context.Context, departmentID uint, status models.TermStatus) (*models.Term, error) {
	var candidates []models.Term
	_ = s.read(func(t *tables) error {
		for _, term := range t.terms {
			if term.Status == status && term.LinksDepartment(departmentID) {
				candidates = append(candidates, term)
			}
		}
		return nil
	})
	if len(candidates) == 0 {
		return nil, repositories.ErrNotFound
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].CreatedAt.Equal(candidates[j].CreatedAt) {
			return candidates[i].ID > candidates[j].ID
		}
		return candidates[i].CreatedAt.After(candidates[j].CreatedAt)
	})
	return &candidates[0], nil
}

type termStateStore struct {
	*Repository
}

func (s *termStateStore) Get(_ context.Context, departmentID uint, year int) (*models.TermState, error) {
	var state models.TermState
	err := s.read(func(t *tables) error {
		found, ok := t.termStates[stateKey{departmentID, year}]
		if !ok {
			return repositories.ErrNotFound
		}
		state = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// GetForUpdate is Get; transactions already hold the store's write lock.
func (s *termStateStore) GetForUpdate(ctx context.Context, departmentID uint, year int) (*models.TermState, error) {
	return s.Get(ctx, departmentID, year)
}

func (s *termStateStore) Upsert(_ context.Context, state *models.TermState) error {
	return s.write(func(t *tables) error {
		key := stateKey{state.DepartmentID, state.Year}
		now := s.now()
		if existing, ok := t.termStates[key]; ok {
			state.ID = existing.ID
			state.CreatedAt = existing.CreatedAt
		} else {
			state.ID = t.nextID()
			state.CreatedAt = now
		}
		state.UpdatedAt = now
		t.termStates[key] = *state
		return nil
	})
}

func (s *termStateStore) ListByYear(_ context.Context, year int) ([]*models.TermState, error) {
	var states []*models.TermState
	_ = s.read(func(t *tables) error {
		for key, state := range t.termStates {
			if key.year == year {
				state := state
				states = append(states, &state)
			}
		}
		return nil
	})
	sort.Slice(states, func(i, j int) bool { return states[i].DepartmentID < states[j].DepartmentID })
	return states, nil
}

func (s *termStateStore) ResetVisibility(_ context.Context, year int) (int64, error) {
	var touched int64
	err := s.write(func(t *tables) error {
		now := s.now()
		for key, state := range t.termStates {
			if key.year != year {
				continue
			}
			state.ResetVisibility()
			state.UpdatedAt = now
			t.termStates[key] = state
			touched++
		}
		return nil
	})
	return touched, err
}
