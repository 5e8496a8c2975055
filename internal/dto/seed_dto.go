package dto

// SeedRoom describes one room of a seeded floor.
type SeedRoom struct {
	RoomNumber string `json:"room_number" validate:"required,max=10"`
	Capacity   int    `json:"capacity" validate:"required,oneof=2 4 6"`
}

// SeedFloor describes one floor of a seeded hostel.
type SeedFloor struct {
	FloorType string     `json:"floor_type" validate:"required,oneof=GF FF SF"`
	Rooms     []SeedRoom `json:"rooms" validate:"dive"`
}

// SeedHostel describes a hostel layout to create or refresh.
type SeedHostel struct {
	Name        string      `json:"name" validate:"required,max=100"`
	Gender      string      `json:"gender" validate:"required,oneof=M F"`
	Description string      `json:"description" validate:"omitempty,max=2000"`
	Floors      []SeedFloor `json:"floors" validate:"dive"`
}

// SeedHostelsRequest is the payload of the hostel seeding endpoint.
type SeedHostelsRequest struct {
	Hostels []SeedHostel `json:"hostels" validate:"required,min=1,dive"`
}

// SeedStudent describes a student record to create or refresh.
type SeedStudent struct {
	MatricNo string `json:"matric_no" validate:"required,max=20"`
	FullName string `json:"full_name" validate:"required,max=255"`
	Gender   string `json:"gender" validate:"required,oneof=M F"`
	Level    string `json:"level" validate:"required,oneof=100 200 300 400"`
}

// SeedStudentsRequest is the payload of the student seeding endpoint.
type SeedStudentsRequest struct {
	Students []SeedStudent `json:"students" validate:"required,min=1,dive"`
}

// SeedResponse reports how many records a seed call touched.
type SeedResponse struct {
	Affected int64 `json:"affected"`
}
