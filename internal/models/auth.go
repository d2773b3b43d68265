package models

import "github.com/golang-jwt/jwt/v5"

// UserRole enumerates the product roles.
type UserRole string

const (
	RoleParent    UserRole = "parent"
	RoleEducator  UserRole = "educator"
	RolePrincipal UserRole = "principal"
	RoleAdmin     UserRole = "admin"
)

// JWTClaims is the payload of tokens issued by the SchoolSnap backend.
type JWTClaims struct {
	UserID            int64    `json:"user_id"`
	Role              UserRole `json:"role"`
	Email             string   `json:"email"`
	FullName          string   `json:"full_name"`
	SelectedStudentID int64    `json:"selected_student_id,omitempty"`
	jwt.RegisteredClaims
}

// Principal is the explicit application context handed to services: who is
// calling, with which role, and the token to forward to the backend.
type Principal struct {
	UserID            int64    `json:"user_id"`
	Role              UserRole `json:"role"`
	FullName          string   `json:"full_name,omitempty"`
	Token             string   `json:"-"`
	SelectedStudentID int64    `json:"selected_student_id,omitempty"`
}

// PrincipalFromClaims builds the application context for a verified token.
func PrincipalFromClaims(claims *JWTClaims, rawToken string) *Principal {
	if claims == nil {
		return nil
	}
	return &Principal{
		UserID:            claims.UserID,
		Role:              claims.Role,
		FullName:          claims.FullName,
		Token:             rawToken,
		SelectedStudentID: claims.SelectedStudentID,
	}
}

// WithSelectedStudent returns a copy pointing at another child, leaving the
// receiver untouched.
func (p Principal) WithSelectedStudent(studentID int64) Principal {
	p.SelectedStudentID = studentID
	return p
}
