package model

import "time"

// Gradebook is the top-level JSON structure produced by the export command.
type Gradebook struct {
	GeneratedAt time.Time          `json:"generated_at"`
	CourseID    int64              `json:"course_id"`
	Assignments []AssignmentResult `json:"assignments"`
}

// AssignmentResult holds one assignment and its graded and ungraded work.
type AssignmentResult struct {
	ID          int64           `json:"id"`
	Title       string          `json:"title"`
	CourseID    int64           `json:"course_id"`
	TeacherName string          `json:"teacher_name"`
	Deadline    string          `json:"deadline"`
	Submissions []StudentResult `json:"submissions"`
	Graded      int             `json:"graded"`
	Average     *float64        `json:"average,omitempty"`
}

// StudentResult is a single submission in the export.
type StudentResult struct {
	SubmissionID int64  `json:"submission_id"`
	StudentID    int64  `json:"student_id"`
	StudentName  string `json:"student_name"`
	Username     string `json:"username,omitempty"`
	SubmitTime   string `json:"submit_time"`
	Score        *int   `json:"score"`
}
