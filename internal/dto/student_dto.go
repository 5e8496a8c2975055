package dto

import "github.com/noah-isme/hostel-allocation-api/internal/models"

// StudentResponse is the public view of a student record.
type StudentResponse struct {
	ID            uint   `json:"id"`
	MatricNo      string `json:"matric_no"`
	FullName      string `json:"full_name"`
	Gender        string `json:"gender"`
	GenderDisplay string `json:"gender_display"`
	Level         string `json:"level"`
}

// NewStudentResponse converts a student model to DTO.
func NewStudentResponse(student models.Student) StudentResponse {
	return StudentResponse{
		ID:            student.ID,
		MatricNo:      student.MatricNo,
		FullName:      student.FullName,
		Gender:        string(student.Gender),
		GenderDisplay: student.Gender.Display(),
		Level:         student.Level,
	}
}

// StudentDashboardResponse shows a student's request and allocation state.
type StudentDashboardResponse struct {
	Student             StudentResponse        `json:"student"`
	CurrentRequest      *HostelRequestResponse `json:"current_request"`
	Allocation          *AllocationResponse    `json:"allocation"`
	UnreadNotifications int64                  `json:"unread_notifications"`
}
