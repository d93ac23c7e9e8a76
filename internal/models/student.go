package models

// Student is a directory record. Every student belongs to exactly one proctor via ProctorID.
type Student struct {
	USN        string `db:"usn" json:"usn"`
	Name       string `db:"name" json:"name"`
	Semester   int    `db:"sem" json:"sem"`
	Section    string `db:"section" json:"section"`
	Department string `db:"dept" json:"dept"`
	ProctorID  string `db:"p_id" json:"p_id"`
}

// Proctor is a directory record for the first rung of the escalation chain.
type Proctor struct {
	ID         string `db:"p_id" json:"p_id"`
	Name       string `db:"name" json:"name"`
	Department string `db:"dept" json:"dept"`
}

// ProctorSummary decorates a proctor with the number of assigned students.
type ProctorSummary struct {
	Proctor
	StudentCount int `json:"student_count"`
}

// StudentFilter narrows directory student listings.
type StudentFilter struct {
	Search     string
	Department string
	ProctorID  string
}

// ProctorFilter narrows directory proctor listings.
type ProctorFilter struct {
	Search     string
	Department string
}

// StudentRequest creates or replaces a student record.
type StudentRequest struct {
	USN        string `json:"usn" validate:"required,max=20"`
	Name       string `json:"name" validate:"required,max=120"`
	Semester   int    `json:"sem" validate:"required,min=1,max=8"`
	Section    string `json:"section" validate:"required,max=5"`
	Department string `json:"dept" validate:"required,max=60"`
	ProctorID  string `json:"p_id" validate:"required"`
}

// ProctorRequest creates or replaces a proctor record.
type ProctorRequest struct {
	ID         string `json:"p_id" validate:"required,max=20"`
	Name       string `json:"name" validate:"required,max=120"`
	Department string `json:"dept" validate:"required,max=60"`
}
