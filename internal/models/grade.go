package models

import "fmt"

// GradeLevel is one selectable grade.
type GradeLevel struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	StudentCount int    `json:"student_count"`
}

const (
	minGradeLevelID = 1
	maxGradeLevelID = 13
)

// GradeLevels returns the fixed list of grades offered by the school.
func GradeLevels() []GradeLevel {
	grades := make([]GradeLevel, 0, maxGradeLevelID)
	for id := minGradeLevelID; id <= maxGradeLevelID; id++ {
		grades = append(grades, GradeLevel{ID: id, Name: GradeName(id)})
	}
	return grades
}

// IsKnownGrade reports whether id belongs to the enumerated grade list.
func IsKnownGrade(id int) bool {
	return id >= minGradeLevelID && id <= maxGradeLevelID
}

// GradeName renders the display name for a grade id.
func GradeName(id int) string {
	return fmt.Sprintf("Grade %d", id)
}
