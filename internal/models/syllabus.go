package models

// EventType classifies a syllabus entry.
type EventType string

const (
	EventClass       EventType = "class"
	EventAssignment  EventType = "assignment"
	EventExam        EventType = "exam"
	EventProject     EventType = "project"
	EventReading     EventType = "reading"
	EventOfficeHours EventType = "office_hours"
)

// Valid reports whether t is one of the known event types.
func (t EventType) Valid() bool {
	switch t {
	case EventClass, EventAssignment, EventExam, EventProject, EventReading, EventOfficeHours:
		return true
	}
	return false
}

// Label is the human readable name used in calendar descriptions.
func (t EventType) Label() string {
	switch t {
	case EventClass:
		return "Regular Class"
	case EventAssignment:
		return "Assignment"
	case EventExam:
		return "Exam"
	case EventProject:
		return "Project"
	case EventReading:
		return "Reading"
	case EventOfficeHours:
		return "Office Hours"
	}
	return string(t)
}

// Recurrence frequencies a syllabus event may repeat with.
const (
	FrequencyDaily    = "daily"
	FrequencyWeekly   = "weekly"
	FrequencyBiweekly = "biweekly"
)

// SyllabusEvent is one calendar-worthy entry extracted from a syllabus.
type SyllabusEvent struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Type        EventType `json:"type"`
	Date        string    `json:"date"`                // YYYY-MM-DD
	StartTime   string    `json:"startTime,omitempty"` // HH:MM
	EndTime     string    `json:"endTime,omitempty"`   // HH:MM
	Location    string    `json:"location,omitempty"`
	Description string    `json:"description,omitempty"`
	CourseName  string    `json:"courseName,omitempty"`

	IsRecurring          bool   `json:"isRecurring,omitempty"`
	RecurrenceFrequency  string `json:"recurrenceFrequency,omitempty"`
	RecurrenceEndDate    string `json:"recurrenceEndDate,omitempty"`    // YYYY-MM-DD
	RecurrenceDaysOfWeek string `json:"recurrenceDaysOfWeek,omitempty"` // "Monday, Wednesday" or "MWF"
}

// QuestionField tells which part of an extraction a clarification is about.
type QuestionField string

const (
	FieldCourseName QuestionField = "courseName"
	FieldDate       QuestionField = "date"
	FieldSection    QuestionField = "section"
	FieldOther      QuestionField = "other"
)

// ClarificationQuestion is asked once, after the first extraction pass.
type ClarificationQuestion struct {
	ID       string        `json:"id"`
	Question string        `json:"question"`
	Field    QuestionField `json:"field"`
	Context  string        `json:"context,omitempty"`
}

// Extraction is the outcome of one extraction pass.
type Extraction struct {
	Events    []SyllabusEvent         `json:"events"`
	Questions []ClarificationQuestion `json:"questions,omitempty"`
}

// NeedsClarification reports whether the user should answer questions before syncing.
func (e *Extraction) NeedsClarification() bool {
	return len(e.Questions) > 0
}
