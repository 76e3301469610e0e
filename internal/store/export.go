package store

import (
	"time"

	"github.com/pavelanni/coursework/internal/model"
)

// ExportGradebook builds a gradebook from the stored assignments, resolving
// student usernames from the accounts collection where possible.
func (s *Store) ExportGradebook(courseID int64) model.Gradebook {
	usernames := make(map[int64]string)
	for _, a := range s.ListAccounts() {
		usernames[a.ID] = a.Username
	}

	book := model.Gradebook{
		GeneratedAt: time.Now(),
		CourseID:    courseID,
		Assignments: []model.AssignmentResult{},
	}
	for _, hw := range s.ListAssignments(courseID) {
		res := model.AssignmentResult{
			ID:          hw.ID,
			Title:       hw.Title,
			CourseID:    hw.CourseID,
			TeacherName: hw.TeacherName,
			Deadline:    hw.Deadline,
			Submissions: []model.StudentResult{},
		}

		var total int
		for _, sub := range hw.Submissions {
			res.Submissions = append(res.Submissions, model.StudentResult{
				SubmissionID: sub.ID,
				StudentID:    sub.StudentID,
				StudentName:  sub.StudentName,
				Username:     usernames[sub.StudentID],
				SubmitTime:   sub.SubmitTime,
				Score:        sub.Score,
			})
			if sub.Score != nil {
				res.Graded++
				total += *sub.Score
			}
		}
		if res.Graded > 0 {
			avg := float64(total) / float64(res.Graded)
			res.Average = &avg
		}
		book.Assignments = append(book.Assignments, res)
	}
	return book
}
