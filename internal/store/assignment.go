package store

import "github.com/pavelanni/coursework/internal/model"

// ListAssignments returns the assignments of a course, or of every course
// when courseID is model.AllCourses. Each returned assignment has a
// non-nil Submissions slice, even if the stored record predates the field.
func (s *Store) ListAssignments(courseID int64) []model.Assignment {
	s.assignments.mu.Lock()
	defer s.assignments.mu.Unlock()

	out := []model.Assignment{}
	for _, a := range s.loadAssignments().Homeworks {
		if courseID != model.AllCourses && a.CourseID != courseID {
			continue
		}
		if a.Submissions == nil {
			a.Submissions = []model.Submission{}
		}
		out = append(out, a)
	}
	return out
}

// PublishAssignment stores a new assignment with id len(existing)+1, the
// current creation time and no submissions. Assignments are never deleted,
// so the id is also one above the current maximum.
func (s *Store) PublishAssignment(a model.Assignment) (model.Assignment, error) {
	s.assignments.mu.Lock()
	defer s.assignments.mu.Unlock()

	doc := s.loadAssignments()
	a.ID = int64(len(doc.Homeworks) + 1)
	a.CreatedAt = model.Now()
	a.Submissions = []model.Submission{}

	doc.Homeworks = append(doc.Homeworks, a)
	if err := s.saveAssignments(doc); err != nil {
		return model.Assignment{}, err
	}
	s.log.Info("published assignment", "id", a.ID, "title", a.Title, "teacher", a.TeacherName)
	return a, nil
}

// SubmitAnswer records a student's answer. An existing submission by the
// same student keeps its id and is otherwise rebuilt, which clears any
// score. A first submission gets id count+1 within the assignment.
func (s *Store) SubmitAnswer(in model.SubmissionInput) (model.Submission, error) {
	s.assignments.mu.Lock()
	defer s.assignments.mu.Unlock()

	doc := s.loadAssignments()
	for i := range doc.Homeworks {
		hw := &doc.Homeworks[i]
		if hw.ID != in.AssignmentID {
			continue
		}

		existing := -1
		for j, sub := range hw.Submissions {
			if sub.StudentID == in.StudentID {
				existing = j
				break
			}
		}

		sub := model.Submission{
			ID:          int64(len(hw.Submissions) + 1),
			StudentID:   in.StudentID,
			StudentName: in.StudentName,
			Answer:      in.Answer,
			SubmitTime:  model.Now(),
			Status:      model.StatusSubmitted,
			Score:       nil,
		}
		if existing >= 0 {
			sub.ID = hw.Submissions[existing].ID
			hw.Submissions[existing] = sub
			s.log.Info("submission updated", "assignment", hw.ID, "student", in.StudentName)
		} else {
			hw.Submissions = append(hw.Submissions, sub)
			s.log.Info("first submission", "assignment", hw.ID, "student", in.StudentName)
		}

		if err := s.saveAssignments(doc); err != nil {
			return model.Submission{}, err
		}
		return sub, nil
	}
	return model.Submission{}, ErrNotFound
}

// GradeSubmission sets the score of a submission. Submission ids are only
// unique within their assignment: with assignmentID zero the first
// assignment (in file order) holding a matching id wins, otherwise only
// the given assignment is searched. It returns the id of the assignment
// that was updated.
func (s *Store) GradeSubmission(assignmentID, submissionID int64, score int) (int64, error) {
	s.assignments.mu.Lock()
	defer s.assignments.mu.Unlock()

	doc := s.loadAssignments()
	for i := range doc.Homeworks {
		hw := &doc.Homeworks[i]
		if assignmentID != 0 && hw.ID != assignmentID {
			continue
		}
		for j := range hw.Submissions {
			if hw.Submissions[j].ID != submissionID {
				continue
			}
			hw.Submissions[j].Score = &score
			if err := s.saveAssignments(doc); err != nil {
				return 0, err
			}
			s.log.Info("submission graded", "assignment", hw.ID, "submission", submissionID, "score", score)
			return hw.ID, nil
		}
	}
	return 0, ErrNotFound
}
