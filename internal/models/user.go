package models

import (
	"time"

	"gorm.io/gorm"
)

// Role identifies what a user is allowed to do. Students enroll in
// courses, teachers own courses and receive bonuses, accountants create
// deposits and run bonus payouts.
type Role string

const (
	RoleStudent    Role = "student"
	RoleTeacher    Role = "teacher"
	RoleAccountant Role = "accountant"
	RoleAdmin      Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleAccountant, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	gorm.Model
	Email        string `gorm:"uniqueIndex;not null"`
	Password     string `gorm:"not null"`
	Name         string `gorm:"not null"`
	Role         Role   `gorm:"default:'student'"`
	BalanceID    *uint  `gorm:"unique;default:null"`
	Balance      *Balance
	Status       string `gorm:"default:'active'"`
	LastLoginAt  time.Time
	TokenVersion int `gorm:"default:1"`
}
