package normalize

import (
	"fmt"

	"github.com/noah-isme/schoolsnap-attendance-api/internal/models"
)

var fallbackHouses = []string{"Blue", "Green", "Red", "Yellow"}

// FallbackStudentCount is the number of placeholder students generated for a
// grade.
func FallbackStudentCount(gradeID int) int {
	if gradeID < 0 {
		gradeID = -gradeID
	}
	return 3 + gradeID%5
}

// FallbackGrades returns the fixed grade list with placeholder counts.
func FallbackGrades(Args) []models.GradeLevel {
	grades := models.GradeLevels()
	for i := range grades {
		grades[i].StudentCount = FallbackStudentCount(grades[i].ID)
	}
	return grades
}

// FallbackStudents generates the placeholder roster page for args.GradeID.
// Only page one carries students; later pages are empty.
func FallbackStudents(args Args) models.StudentPage {
	gradeIDs := []int{args.GradeID}
	if args.GradeID <= 0 {
		gradeIDs = gradeIDs[:0]
		for _, g := range models.GradeLevels() {
			gradeIDs = append(gradeIDs, g.ID)
		}
	}

	students := make([]models.RosterEntry, 0)
	for _, gradeID := range gradeIDs {
		students = append(students, fallbackStudentsForGrade(gradeID)...)
	}

	page := args.Page
	if page < 1 {
		page = 1
	}
	result := models.StudentPage{TotalCount: len(students), CurrentPage: page, Students: []models.RosterEntry{}}
	if page == 1 {
		result.Students = students
	}
	return result
}

func fallbackStudentsForGrade(gradeID int) []models.RosterEntry {
	count := FallbackStudentCount(gradeID)
	students := make([]models.RosterEntry, 0, count)
	for n := 1; n <= count; n++ {
		students = append(students, models.RosterEntry{
			ID:               int64(gradeID*1000 + n),
			AdmissionNumber:  fmt.Sprintf("FB-%02d-%02d", gradeID, n),
			DisplayName:      fmt.Sprintf("Student %d.%d", gradeID, n),
			GradeLevelID:     gradeID,
			GradeName:        models.GradeName(gradeID),
			ClassName:        fmt.Sprintf("%d%c", gradeID, 'A'+rune((n-1)%3)),
			House:            fallbackHouses[(n-1)%len(fallbackHouses)],
			AttendanceStatus: models.AttendanceStatusPresent,
		})
	}
	return students
}

// FallbackAttendanceRecords is an empty page: nothing is known to be stored.
func FallbackAttendanceRecords(args Args) models.AttendanceRecordPage {
	return models.AttendanceRecordPage{Records: []models.AttendanceRecord{}, CurrentPage: max(args.Page, 1)}
}

// FallbackFeedback is an empty feedback page.
func FallbackFeedback(args Args) models.FeedbackPage {
	return models.FeedbackPage{Items: []models.Feedback{}, CurrentPage: max(args.Page, 1)}
}
