package model

import (
	"context"
	"time"
)

// TimeLayout is the timestamp format written to the collection files.
const TimeLayout = "2006-01-02T15:04:05"

// Now returns the current local time formatted with TimeLayout.
func Now() string {
	return time.Now().Format(TimeLayout)
}

// UserRole represents an account's access level.
type UserRole string

const (
	// UserRoleStudent is a student user role.
	UserRoleStudent UserRole = "student"
	// UserRoleTeacher is a teacher user role.
	UserRoleTeacher UserRole = "teacher"
	// UserRoleAdmin is an admin user role.
	UserRoleAdmin UserRole = "admin"
)

// Valid reports whether r is one of the known roles.
func (r UserRole) Valid() bool {
	switch r {
	case UserRoleStudent, UserRoleTeacher, UserRoleAdmin:
		return true
	}
	return false
}

// AccountStatus tells whether an account may log in.
type AccountStatus string

const (
	// StatusActive accounts may log in.
	StatusActive AccountStatus = "active"
	// StatusDisabled accounts are refused at login.
	StatusDisabled AccountStatus = "disabled"
)

// Valid reports whether s is one of the known statuses.
func (s AccountStatus) Valid() bool {
	return s == StatusActive || s == StatusDisabled
}

// SubmissionStatus is the state of a submission. Only "submitted" exists.
type SubmissionStatus string

// StatusSubmitted marks a stored answer, graded or not.
const StatusSubmitted SubmissionStatus = "submitted"

// Account is a stored user account. Passwords are kept as given unless
// password hashing is enabled, in which case they hold a bcrypt hash.
type Account struct {
	ID        int64         `json:"id"`
	Username  string        `json:"username"`
	Password  string        `json:"password"`
	Role      UserRole      `json:"role"`
	Status    AccountStatus `json:"status"`
	CreatedAt string        `json:"created_at"`
}

// Disabled reports whether the account is blocked from logging in.
// Records without a status are treated as active.
func (a Account) Disabled() bool {
	return a.Status == StatusDisabled
}

// PublicAccount is an account as returned to clients, without the password.
type PublicAccount struct {
	ID        int64         `json:"id"`
	Username  string        `json:"username"`
	Role      UserRole      `json:"role"`
	Status    AccountStatus `json:"status,omitempty"`
	CreatedAt string        `json:"created_at,omitempty"`
}

// Public strips the password from an account.
func (a Account) Public() PublicAccount {
	return PublicAccount{
		ID:        a.ID,
		Username:  a.Username,
		Role:      a.Role,
		Status:    a.Status,
		CreatedAt: a.CreatedAt,
	}
}

// AccountPatch holds the fields of a partial account update. Nil fields
// are left untouched.
type AccountPatch struct {
	Password *string
	Role     *UserRole
	Status   *AccountStatus
}

// Assignment is a published homework with its submissions.
type Assignment struct {
	ID          int64        `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Deadline    string       `json:"deadline"`
	CourseID    int64        `json:"courseId"`
	TeacherID   int64        `json:"teacherId"`
	TeacherName string       `json:"teacherName"`
	CreatedAt   string       `json:"createdAt"`
	Submissions []Submission `json:"submissions"`
}

// Submission is one student's latest answer to an assignment. A nil Score
// means ungraded and is written as null.
type Submission struct {
	ID          int64            `json:"id"`
	StudentID   int64            `json:"studentId"`
	StudentName string           `json:"studentName"`
	Answer      string           `json:"answer"`
	SubmitTime  string           `json:"submitTime"`
	Status      SubmissionStatus `json:"status"`
	Score       *int             `json:"score"`
}

// SubmissionInput carries the fields of a submit request.
type SubmissionInput struct {
	AssignmentID int64
	StudentID    int64
	StudentName  string
	Answer       string
}

// AllCourses disables the course filter when listing assignments.
const AllCourses int64 = -1

// ServerConfig holds runtime parameters set via CLI flags.
type ServerConfig struct {
	Lang            string // default message language
	IdleTimeout     time.Duration
	MaxRequestBytes int
	HashPasswords   bool // store bcrypt hashes for new and edited passwords
	ValidateScores  bool // enforce 0..100 on grading
}

type connIDCtxKey struct{}

// ContextWithConnID stores the connection id in context.
func ContextWithConnID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, connIDCtxKey{}, id)
}

// ConnIDFromContext retrieves the connection id from context (empty string if not set).
func ConnIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(connIDCtxKey{}).(string)
	return id
}
