package normalize

import (
	"bytes"
	"encoding/json"
	"errors"
	"sort"
	"strconv"
	"strings"

	"github.com/noah-isme/schoolsnap-attendance-api/internal/models"
)

// flexInt accepts 12, "12" and null.
type flexInt int64

func (f *flexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*f = 0
			return nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return err
		}
		*f = flexInt(n)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	v, err := n.Int64()
	if err != nil {
		fv, ferr := n.Float64()
		if ferr != nil {
			return err
		}
		v = int64(fv)
	}
	*f = flexInt(v)
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func firstNonZero(values ...flexInt) flexInt {
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}

type rawAttachment struct {
	FilePath string `json:"file_path"`
	URL      string `json:"url"`
}

type rawStudent struct {
	ID                 flexInt         `json:"id"`
	StudentID          flexInt         `json:"student_id"`
	AdmissionNumber    string          `json:"admission_number"`
	AdmissionNo        string          `json:"admission_no"`
	FullName           string          `json:"full_name"`
	StudentCallingName string          `json:"student_calling_name"`
	StudentName        string          `json:"student_name"`
	Name               string          `json:"name"`
	GradeLevelID       flexInt         `json:"grade_level_id"`
	GradeID            flexInt         `json:"grade_id"`
	GradeName          string          `json:"grade_name"`
	Grade              string          `json:"grade"`
	ClassName          string          `json:"class_name"`
	Class              string          `json:"class"`
	House              string          `json:"house"`
	HouseName          string          `json:"house_name"`
	ProfileImage       string          `json:"profile_image"`
	Attachments        []rawAttachment `json:"student_attachment_list"`
}

type rawStudentList struct {
	Students    []rawStudent `json:"students"`
	StudentList []rawStudent `json:"student_list"`
	TotalCount  *flexInt     `json:"total_count"`
	Total       *flexInt     `json:"total"`
	CurrentPage flexInt      `json:"current_page"`
	Page        flexInt      `json:"page"`
}

// ReshapeStudents maps the student list payload onto roster entries.
func ReshapeStudents(env Envelope, args Args) (models.StudentPage, error) {
	var raw rawStudentList
	if err := json.Unmarshal(env.Data, &raw); err != nil {
		var list []rawStudent
		if listErr := json.Unmarshal(env.Data, &list); listErr != nil {
			return models.StudentPage{}, err
		}
		raw.Students = list
	}

	source := raw.Students
	if len(source) == 0 {
		source = raw.StudentList
	}

	students := make([]models.RosterEntry, 0, len(source))
	for _, s := range source {
		id := firstNonZero(s.ID, s.StudentID)
		if id == 0 {
			continue
		}
		gradeID := int(firstNonZero(s.GradeLevelID, s.GradeID))
		students = append(students, models.RosterEntry{
			ID:               int64(id),
			AdmissionNumber:  firstNonEmpty(s.AdmissionNumber, s.AdmissionNo),
			DisplayName:      firstNonEmpty(s.StudentCallingName, s.FullName, s.StudentName, s.Name),
			GradeLevelID:     gradeID,
			GradeName:        firstNonEmpty(s.GradeName, s.Grade),
			ClassName:        firstNonEmpty(s.ClassName, s.Class),
			House:            firstNonEmpty(s.House, s.HouseName),
			PhotoURL:         photoURL(s, args.AssetBaseURL),
			AttendanceStatus: models.AttendanceStatusPresent,
		})
	}

	total := len(students)
	switch {
	case raw.TotalCount != nil:
		total = int(*raw.TotalCount)
	case raw.Total != nil:
		total = int(*raw.Total)
	}
	page := int(firstNonZero(raw.CurrentPage, raw.Page))
	if page == 0 {
		page = max(args.Page, 1)
	}

	return models.StudentPage{Students: students, TotalCount: total, CurrentPage: page, Returned: len(source)}, nil
}

func photoURL(s rawStudent, assetBase string) string {
	path := ""
	if len(s.Attachments) > 0 {
		path = firstNonEmpty(s.Attachments[0].URL, s.Attachments[0].FilePath)
	}
	if path == "" {
		path = strings.TrimSpace(s.ProfileImage)
	}
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") || assetBase == "" {
		return path
	}
	return strings.TrimRight(assetBase, "/") + "/" + strings.TrimLeft(path, "/")
}

type rawGradeCount struct {
	GradeLevelID   flexInt `json:"grade_level_id"`
	ID             flexInt `json:"id"`
	GradeLevelName string  `json:"grade_level_name"`
	GradeName      string  `json:"grade_name"`
	Name           string  `json:"name"`
	StudentCount   flexInt `json:"student_count"`
	Count          flexInt `json:"count"`
}

// ReshapeGrades derives the grade list from grade_level_student_count.
func ReshapeGrades(env Envelope, _ Args) ([]models.GradeLevel, error) {
	var raw struct {
		Counts []rawGradeCount `json:"grade_level_student_count"`
	}
	if err := json.Unmarshal(env.Data, &raw); err != nil {
		return nil, err
	}
	if raw.Counts == nil {
		return nil, errors.New("grade_level_student_count missing")
	}

	grades := make([]models.GradeLevel, 0, len(raw.Counts))
	for _, c := range raw.Counts {
		id := int(firstNonZero(c.GradeLevelID, c.ID))
		if id == 0 {
			continue
		}
		name := firstNonEmpty(c.GradeLevelName, c.GradeName, c.Name)
		if name == "" {
			name = models.GradeName(id)
		}
		grades = append(grades, models.GradeLevel{
			ID:           id,
			Name:         name,
			StudentCount: int(firstNonZero(c.StudentCount, c.Count)),
		})
	}
	sort.Slice(grades, func(i, j int) bool { return grades[i].ID < grades[j].ID })
	return grades, nil
}

type rawAttendance struct {
	ID           flexInt `json:"id"`
	Date         string  `json:"date"`
	StudentID    flexInt `json:"student_id"`
	StudentName  string  `json:"student_name"`
	FullName     string  `json:"full_name"`
	GradeLevelID flexInt `json:"grade_level_id"`
	Status       string  `json:"status"`
	Reason       string  `json:"reason"`
	Notes        string  `json:"notes"`
	InTime       string  `json:"in_time"`
	OutTime      string  `json:"out_time"`
}

// ReshapeAttendanceRecords maps the attendance list payload.
func ReshapeAttendanceRecords(env Envelope, args Args) (models.AttendanceRecordPage, error) {
	var raw struct {
		AttendanceList []rawAttendance `json:"attendance_list"`
		Attendance     []rawAttendance `json:"attendance"`
		TotalCount     *flexInt        `json:"total_count"`
		CurrentPage    flexInt         `json:"current_page"`
	}
	if err := json.Unmarshal(env.Data, &raw); err != nil {
		return models.AttendanceRecordPage{}, err
	}
	source := raw.AttendanceList
	if len(source) == 0 {
		source = raw.Attendance
	}

	records := make([]models.AttendanceRecord, 0, len(source))
	for _, r := range source {
		records = append(records, models.AttendanceRecord{
			ID:           int64(r.ID),
			Date:         r.Date,
			StudentID:    int64(r.StudentID),
			StudentName:  firstNonEmpty(r.StudentName, r.FullName),
			GradeLevelID: int(r.GradeLevelID),
			Status:       models.ParseAttendanceStatus(r.Status),
			Reason:       r.Reason,
			Notes:        r.Notes,
			InTime:       r.InTime,
			OutTime:      r.OutTime,
		})
	}
	total := len(records)
	if raw.TotalCount != nil {
		total = int(*raw.TotalCount)
	}
	page := int(raw.CurrentPage)
	if page == 0 {
		page = max(args.Page, 1)
	}
	return models.AttendanceRecordPage{Records: records, TotalCount: total, CurrentPage: page}, nil
}

type rawFeedback struct {
	ID           flexInt `json:"id"`
	StudentID    flexInt `json:"student_id"`
	StudentName  string  `json:"student_name"`
	EducatorID   flexInt `json:"educator_id"`
	EducatorName string  `json:"educator_name"`
	Category     string  `json:"category"`
	Comment      string  `json:"comment"`
	Feedback     string  `json:"feedback"`
	Rating       flexInt `json:"rating"`
	CreatedAt    string  `json:"created_at"`
}

// ReshapeFeedback maps the feedback list payload.
func ReshapeFeedback(env Envelope, args Args) (models.FeedbackPage, error) {
	var raw struct {
		FeedbackList []rawFeedback `json:"feedback_list"`
		Feedbacks    []rawFeedback `json:"feedbacks"`
		TotalCount   *flexInt      `json:"total_count"`
		CurrentPage  flexInt       `json:"current_page"`
	}
	if err := json.Unmarshal(env.Data, &raw); err != nil {
		return models.FeedbackPage{}, err
	}
	source := raw.FeedbackList
	if len(source) == 0 {
		source = raw.Feedbacks
	}
	items := make([]models.Feedback, 0, len(source))
	for _, f := range source {
		items = append(items, models.Feedback{
			ID:           int64(f.ID),
			StudentID:    int64(f.StudentID),
			StudentName:  f.StudentName,
			EducatorID:   int64(f.EducatorID),
			EducatorName: f.EducatorName,
			Category:     f.Category,
			Comment:      firstNonEmpty(f.Comment, f.Feedback),
			Rating:       int(f.Rating),
			CreatedAt:    f.CreatedAt,
		})
	}
	total := len(items)
	if raw.TotalCount != nil {
		total = int(*raw.TotalCount)
	}
	page := int(raw.CurrentPage)
	if page == 0 {
		page = max(args.Page, 1)
	}
	return models.FeedbackPage{Items: items, TotalCount: total, CurrentPage: page}, nil
}

// ReshapeAck accepts any successful mutation payload.
func ReshapeAck(env Envelope, _ Args) (models.MutationAck, error) {
	return models.MutationAck{Message: env.Message}, nil
}

// Transformers used by the backend client.
var (
	Students = Transformer[models.StudentPage]{
		Query:    "student_list",
		Reshape:  ReshapeStudents,
		Fallback: FallbackStudents,
	}
	Grades = Transformer[[]models.GradeLevel]{
		Query:    "grade_levels",
		Reshape:  ReshapeGrades,
		Fallback: FallbackGrades,
	}
	AttendanceRecords = Transformer[models.AttendanceRecordPage]{
		Query:    "attendance_list",
		Reshape:  ReshapeAttendanceRecords,
		Fallback: FallbackAttendanceRecords,
	}
	FeedbackList = Transformer[models.FeedbackPage]{
		Query:    "feedback_list",
		Reshape:  ReshapeFeedback,
		Fallback: FallbackFeedback,
	}
	AttendanceCreate = Transformer[models.MutationAck]{Query: "attendance_create", Reshape: ReshapeAck, DataOptional: true}
	FeedbackCreate   = Transformer[models.MutationAck]{Query: "feedback_create", Reshape: ReshapeAck, DataOptional: true}
)
