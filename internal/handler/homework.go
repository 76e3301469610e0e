package handler

import (
	"context"
	"errors"

	"github.com/pavelanni/coursework/internal/events"
	"github.com/pavelanni/coursework/internal/model"
	"github.com/pavelanni/coursework/internal/protocol"
	"github.com/pavelanni/coursework/internal/store"
)

const (
	minScore = 0
	maxScore = 100
)

type publishRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Deadline    string `json:"deadline"`
	CourseID    int64  `json:"courseId"`
	TeacherID   int64  `json:"teacherId"`
	TeacherName string `json:"teacherName"`
}

type publishResponse struct {
	Success  bool             `json:"success"`
	Message  string           `json:"message"`
	Homework model.Assignment `json:"homework"`
}

// handlePublish stores a new assignment. The teacher fields are taken from
// the request as given.
func (h *Handler) handlePublish(ctx context.Context, req *protocol.Request) protocol.Response {
	var in publishRequest
	if resp, ok := h.decode(ctx, req, &in); !ok {
		return resp
	}

	hw, err := h.store.PublishAssignment(model.Assignment{
		Title:       in.Title,
		Description: in.Description,
		Deadline:    in.Deadline,
		CourseID:    in.CourseID,
		TeacherID:   in.TeacherID,
		TeacherName: in.TeacherName,
	})
	if err != nil {
		h.log.Error("failed to publish assignment", "teacher", in.TeacherName, "title", in.Title, "error", err)
		return h.fail(ctx, 500, "HomeworkSaveFailed")
	}

	h.emit(ctx, events.AssignmentPublished, hw)
	return protocol.OK(publishResponse{
		Success:  true,
		Message:  h.msgs.T(ctx, "HomeworkPublished"),
		Homework: hw,
	})
}

type homeworksRequest struct {
	CourseID *int64 `json:"courseId"`
}

type homeworksResponse struct {
	Success   bool               `json:"success"`
	Homeworks []model.Assignment `json:"homeworks"`
}

func (h *Handler) handleHomeworks(ctx context.Context, req *protocol.Request) protocol.Response {
	var in homeworksRequest
	if resp, ok := h.decode(ctx, req, &in); !ok {
		return resp
	}
	courseID := model.AllCourses
	if in.CourseID != nil {
		courseID = *in.CourseID
	}
	return protocol.OK(homeworksResponse{
		Success:   true,
		Homeworks: h.store.ListAssignments(courseID),
	})
}

type submitRequest struct {
	HomeworkID  int64  `json:"homeworkId"`
	StudentID   int64  `json:"studentId"`
	StudentName string `json:"studentName"`
	Answer      string `json:"answer"`
}

func (h *Handler) handleSubmit(ctx context.Context, req *protocol.Request) protocol.Response {
	var in submitRequest
	if resp, ok := h.decode(ctx, req, &in); !ok {
		return resp
	}

	sub, err := h.store.SubmitAnswer(model.SubmissionInput{
		AssignmentID: in.HomeworkID,
		StudentID:    in.StudentID,
		StudentName:  in.StudentName,
		Answer:       in.Answer,
	})
	if errors.Is(err, store.ErrNotFound) {
		return h.fail(ctx, 404, "HomeworkNotFound")
	}
	if err != nil {
		h.log.Error("failed to save submission", "student", in.StudentName, "error", err)
		return h.fail(ctx, 500, "SubmissionSaveFailed")
	}

	h.emit(ctx, events.SubmissionSaved, map[string]any{
		"homeworkId": in.HomeworkID,
		"submission": sub,
	})
	return h.ok(ctx, "SubmissionSaved")
}

type gradeRequest struct {
	SubmissionID int64 `json:"submissionId"`
	Score        *int  `json:"score"`
	HomeworkID   int64 `json:"homeworkId"`
}

// handleGrade sets a submission's score. Without homeworkId the first
// assignment holding the submission id is updated.
func (h *Handler) handleGrade(ctx context.Context, req *protocol.Request) protocol.Response {
	var in gradeRequest
	if resp, ok := h.decode(ctx, req, &in); !ok {
		return resp
	}
	if in.Score == nil {
		return h.fail(ctx, 400, "InvalidFields")
	}
	score := *in.Score
	if h.config.ValidateScores && (score < minScore || score > maxScore) {
		return protocol.Error(400, h.msgs.Td(ctx, "InvalidScore", map[string]any{
			"Min": minScore,
			"Max": maxScore,
		}))
	}

	hwID, err := h.store.GradeSubmission(in.HomeworkID, in.SubmissionID, score)
	if errors.Is(err, store.ErrNotFound) {
		return h.fail(ctx, 404, "SubmissionNotFound")
	}
	if err != nil {
		h.log.Error("failed to save grade", "submission", in.SubmissionID, "error", err)
		return h.fail(ctx, 500, "GradeSaveFailed")
	}

	h.emit(ctx, events.SubmissionGraded, map[string]any{
		"homeworkId":   hwID,
		"submissionId": in.SubmissionID,
		"score":        score,
	})
	return h.ok(ctx, "GradeSaved")
}
