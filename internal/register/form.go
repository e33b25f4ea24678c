package register

import (
	"regexp"
	"strings"

	"progcal/internal/model"
)

// Field names one input of the registration form. Values match the JSON
// keys of the submitted payload.
type Field string

const (
	FieldParentName     Field = "parentName"
	FieldEmail          Field = "email"
	FieldStudentName    Field = "studentName"
	FieldGrade          Field = "grade"
	FieldSchoolDistrict Field = "schoolDistrict"
	FieldHowDidYouHear  Field = "howDidYouHear"
	FieldConsent        Field = "consent"
)

// textFields are the required free-text inputs in display order.
var textFields = []Field{
	FieldParentName,
	FieldEmail,
	FieldStudentName,
	FieldGrade,
	FieldSchoolDistrict,
	FieldHowDidYouHear,
}

// ParseField maps a JSON key onto a Field.
func ParseField(s string) (Field, bool) {
	f := Field(s)
	if f == FieldConsent {
		return f, true
	}
	for _, tf := range textFields {
		if tf == f {
			return f, true
		}
	}
	return "", false
}

// FormData is the mutable state of one open registration.
type FormData struct {
	ParentName     string `json:"parentName"`
	Email          string `json:"email"`
	StudentName    string `json:"studentName"`
	Grade          string `json:"grade"`
	SchoolDistrict string `json:"schoolDistrict"`
	HowDidYouHear  string `json:"howDidYouHear"`
	Consent        bool   `json:"consent"`
}

func (f *FormData) text(field Field) *string {
	switch field {
	case FieldParentName:
		return &f.ParentName
	case FieldEmail:
		return &f.Email
	case FieldStudentName:
		return &f.StudentName
	case FieldGrade:
		return &f.Grade
	case FieldSchoolDistrict:
		return &f.SchoolDistrict
	case FieldHowDidYouHear:
		return &f.HowDidYouHear
	}
	return nil
}

// FieldErrors maps each invalid field to a user-facing message.
type FieldErrors map[Field]string

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var requiredMessages = map[Field]string{
	FieldParentName:     "Parent name is required",
	FieldEmail:          "Email is required",
	FieldStudentName:    "Student name is required",
	FieldGrade:          "Grade is required",
	FieldSchoolDistrict: "School district is required",
	FieldHowDidYouHear:  "Please tell us how you heard about us",
}

// Validate applies the per-field rules. Consent is checked independently of
// the text fields. An empty result means the form may be submitted.
func Validate(f FormData) FieldErrors {
	errs := FieldErrors{}
	for _, field := range textFields {
		v := strings.TrimSpace(*f.text(field))
		if v == "" {
			errs[field] = requiredMessages[field]
			continue
		}
		if field == FieldEmail && !emailPattern.MatchString(v) {
			errs[field] = "Please enter a valid email address"
		}
	}
	if !f.Consent {
		errs[FieldConsent] = "Consent is required to register"
	}
	return errs
}

// Payload is the JSON body sent to the registration endpoint.
type Payload struct {
	ParentName     string `json:"parentName"`
	Email          string `json:"email"`
	StudentName    string `json:"studentName"`
	Grade          string `json:"grade"`
	SchoolDistrict string `json:"schoolDistrict"`
	HowDidYouHear  string `json:"howDidYouHear"`
	EventType      string `json:"eventType"`
	EventTitle     string `json:"eventTitle"`
	EventDate      string `json:"eventDate"`
	EventTime      string `json:"eventTime"`
	EventGrades    string `json:"eventGrades"`
	ProgramID      string `json:"programId"`
}

// BuildPayload combines trimmed form values with the selected occurrence.
func BuildPayload(f FormData, p model.Program, date string) Payload {
	return Payload{
		ParentName:     strings.TrimSpace(f.ParentName),
		Email:          strings.TrimSpace(f.Email),
		StudentName:    strings.TrimSpace(f.StudentName),
		Grade:          strings.TrimSpace(f.Grade),
		SchoolDistrict: strings.TrimSpace(f.SchoolDistrict),
		HowDidYouHear:  strings.TrimSpace(f.HowDidYouHear),
		EventType:      p.Type.EventType(),
		EventTitle:     p.Name,
		EventDate:      date,
		EventTime:      p.Time.Display(),
		EventGrades:    p.Grades,
		ProgramID:      p.ID,
	}
}
