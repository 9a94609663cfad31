package inmem

import (
	"context"
	"sort"

	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/SAP-F-2025/evaluation-service/internal/repositories"
)

type submissionStore struct {
	*Repository
}

func (s *submissionStore) UpsertAnswers(_ context.Context, answers []*models.TeacherAnswer) error {
	return s.write(func(t *tables) error {
		now := s.now()
		for _, a := range answers {
			key := answerKey{a.TeacherID, a.QuestionID, a.Term, a.Year}
			if existing, ok := t.answers[key]; ok {
				a.ID = existing.ID
				a.CreatedAt = existing.CreatedAt
			} else {
				a.ID = t.nextID()
				a.CreatedAt = now
			}
			a.UpdatedAt = now
			t.answers[key] = *a
		}
		return nil
	})
}

func (s *submissionStore) ListAnswers(_ context.Context, key repositories.EvaluationKey) ([]*models.TeacherAnswer, error) {
	var answers []*models.TeacherAnswer
	_ = s.read(func(t *tables) error {
		for k, a := range t.answers {
			if k.teacherID == key.SubjectID && k.term == key.Term && k.year == key.Year {
				a := a
				answers = append(answers, &a)
			}
		}
		return nil
	})
	sort.Slice(answers, func(i, j int) bool { return answers[i].QuestionID < answers[j].QuestionID })
	return answers, nil
}

func (s *submissionStore) CountAnswers(ctx context.Context, key repositories.EvaluationKey) (int64, error) {
	answers, err := s.ListAnswers(ctx, key)
	return int64(len(answers)), err
}

func (s *submissionStore) CountAnswersForQuestion(_ context.Context, questionID uint) (int64, error) {
	var count int64
	_ = s.read(func(t *tables) error {
		for k := range t.answers {
			if k.questionID == questionID {
				count++
			}
		}
		return nil
	})
	return count, nil
}

func (s *submissionStore) CountAnswersByTeacher(_ context.Context, teacherIDs []string, term models.TermStatus, year int) (map[string]int64, error) {
	wanted := toSet(teacherIDs)
	counts := make(map[string]int64, len(teacherIDs))
	_ = s.read(func(t *tables) error {
		for k := range t.answers {
			if wanted[k.teacherID] && k.term == term && k.year == year {
				counts[k.teacherID]++
			}
		}
		return nil
	})
	return counts, nil
}

func (s *submissionStore) CreateSelfComment(_ context.Context, comment *models.SelfComment) error {
	return s.write(func(t *tables) error {
		key := repositories.EvaluationKey{SubjectID: comment.TeacherID, Term: comment.Term, Year: comment.Year}
		if _, exists := t.selfComments[key]; exists {
			return repositories.ErrDuplicate
		}
		comment.ID = t.nextID()
		comment.CreatedAt = s.now()
		t.selfComments[key] = *comment
		return nil
	})
}

func (s *submissionStore) GetSelfComment(_ context.Context, key repositories.EvaluationKey) (*models.SelfComment, error) {
	var comment models.SelfComment
	err := s.read(func(t *tables) error {
		found, ok := t.selfComments[key]
		if !ok {
			return repositories.ErrNotFound
		}
		comment = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

func (s *submissionStore) ListSelfComments(_ context.Context, teacherIDs []string, term models.TermStatus, year int) ([]*models.SelfComment, error) {
	wanted := toSet(teacherIDs)
	var comments []*models.SelfComment
	_ = s.read(func(t *tables) error {
		for k, c := range t.selfComments {
			if wanted[k.SubjectID] && k.Term == term && k.Year == year {
				c := c
				comments = append(comments, &c)
			}
		}
		return nil
	})
	sort.Slice(comments, func(i, j int) bool { return comments[i].TeacherID < comments[j].TeacherID })
	return comments, nil
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
