package models

import "time"

// Gender is the binary gender class shared by students and hostels.
type Gender string

const (
	// GenderMale marks male students and male-only hostels.
	GenderMale Gender = "M"
	// GenderFemale marks female students and female-only hostels.
	GenderFemale Gender = "F"
)

// Display returns the human readable gender label.
func (g Gender) Display() string {
	switch g {
	case GenderMale:
		return "Male"
	case GenderFemale:
		return "Female"
	default:
		return string(g)
	}
}

// Academic levels a student can be registered at.
const (
	StudentLevel100 = "100"
	StudentLevel200 = "200"
	StudentLevel300 = "300"
	StudentLevel400 = "400"
)

// Student represents a registered student that can apply for hostel space.
type Student struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	MatricNo  string    `gorm:"size:20;uniqueIndex;not null" json:"matric_no"`
	FullName  string    `gorm:"size:255;not null" json:"full_name"`
	Gender    Gender    `gorm:"size:1;not null" json:"gender"`
	Level     string    `gorm:"size:3;not null" json:"level"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
