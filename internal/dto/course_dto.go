package dto

import (
	"time"

	"github.com/noah-isme/gema-assessment-api/internal/models"
)

// CourseCreateRequest describes the payload for registering a course.
type CourseCreateRequest struct {
	Code string `json:"code" validate:"required,min=2,max=64"`
	Name string `json:"name" validate:"required,min=2,max=255"`
}

// CourseResponse is the serialized representation of a course.
type CourseResponse struct {
	ID        uint      `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// NewCourseResponse converts a model into a DTO.
func NewCourseResponse(model models.Course) CourseResponse {
	return CourseResponse{
		ID:        model.ID,
		Code:      model.Code,
		Name:      model.Name,
		CreatedAt: model.CreatedAt,
	}
}

// NewCourseResponseSlice converts a slice of models into DTOs.
func NewCourseResponseSlice(courses []models.Course) []CourseResponse {
	responses := make([]CourseResponse, 0, len(courses))
	for _, course := range courses {
		responses = append(responses, NewCourseResponse(course))
	}
	return responses
}
