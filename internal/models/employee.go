package models

import (
	"time"
)

type EmployeeStatusKind string

const (
	EmployeeActive   EmployeeStatusKind = "Active"
	EmployeeInactive EmployeeStatusKind = "Inactive"
)

type Department string

const (
	DepartmentHairStyling Department = "Hair Styling"
	DepartmentNailCare    Department = "Nail Care"
	DepartmentSkinCare    Department = "Skin Care"
	DepartmentMassage     Department = "Massage"
	DepartmentReception   Department = "Reception"
	DepartmentManagement  Department = "Management"
)

type Employee struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Role       string             `json:"role"`
	Department Department         `json:"department"`
	Status     EmployeeStatusKind `json:"status"`
	CreatedAt  time.Time          `json:"createdAt"`
	UpdatedAt  time.Time          `json:"updatedAt"`
}
