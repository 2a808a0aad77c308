// Package identity holds the applicant identity record and the national-ID
// (CNIC) validation rules it must satisfy. The record is immutable once an
// application is submitted; validation therefore runs at intake, before any
// state transition.
package identity

import (
	"regexp"
	"strings"
	"time"

	dErrors "kycgate/pkg/domain-errors"
)

// Gender as declared by the applicant. The CNIC encodes gender in its check
// digit, so the declared value must agree with the number.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// Record is the applicant identity snapshot attached to a KYC application.
type Record struct {
	CNIC        string
	FullName    string
	FatherName  string
	DateOfBirth time.Time
	Gender      Gender
	PhoneNumber string
	Email       string
	Address     string
	City        string
	Province    string
	PostalCode  string
}

var (
	namePattern  = regexp.MustCompile(`^[a-zA-Z\s]+$`)
	phonePattern = regexp.MustCompile(`^(\+92|0)?3\d{9}$`)
)

// Normalize collapses whitespace in free-text fields and formats the CNIC.
func (r *Record) Normalize() {
	r.FullName = collapseSpaces(r.FullName)
	r.FatherName = collapseSpaces(r.FatherName)
	r.Address = collapseSpaces(r.Address)
	r.City = collapseSpaces(r.City)
	r.CNIC = FormatCNIC(r.CNIC)
}

// Validate enforces the intake invariants: well-formed fields, a CNIC whose
// checksum holds, an applicant between 18 and 100 years old at the given
// instant, and agreement between the CNIC's embedded birth date and gender
// digits and the declared values. Failures carry CodeValidation and are
// rejected before any application mutation.
func (r Record) Validate(now time.Time) error {
	if !cnicPattern.MatchString(r.CNIC) {
		return dErrors.New(dErrors.CodeValidation, "cnic must be in format 12345-1234567-1")
	}
	if !IsValidCNIC(r.CNIC) {
		return dErrors.New(dErrors.CodeValidation, "cnic checksum is invalid")
	}
	if len(r.FullName) < 2 || !namePattern.MatchString(r.FullName) {
		return dErrors.New(dErrors.CodeValidation, "full name must be at least 2 letters")
	}
	if len(r.FatherName) < 2 || !namePattern.MatchString(r.FatherName) {
		return dErrors.New(dErrors.CodeValidation, "father name must be at least 2 letters")
	}
	if r.DateOfBirth.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "date of birth is required")
	}
	// Bounds compare calendar dates, so a birthday falling on the cutoff day
	// itself is out of range on both ends.
	maxDOB := time.Date(now.Year()-18, now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	minDOB := time.Date(now.Year()-100, now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if !r.DateOfBirth.Before(maxDOB) {
		return dErrors.New(dErrors.CodeValidation, "applicant must be at least 18 years old")
	}
	if !r.DateOfBirth.After(minDOB) {
		return dErrors.New(dErrors.CodeValidation, "date of birth is more than 100 years in the past")
	}
	if r.Gender != GenderMale && r.Gender != GenderFemale {
		return dErrors.New(dErrors.CodeValidation, "gender must be male or female")
	}
	if r.PhoneNumber != "" && !phonePattern.MatchString(r.PhoneNumber) {
		return dErrors.New(dErrors.CodeValidation, "phone number is not a valid mobile number")
	}
	if !MatchesDateOfBirth(r.CNIC, r.DateOfBirth) {
		return dErrors.New(dErrors.CodeValidation, "date of birth does not match cnic")
	}
	if !MatchesGender(r.CNIC, r.Gender) {
		return dErrors.New(dErrors.CodeValidation, "gender does not match cnic")
	}
	return nil
}

// AgeAt returns the applicant's age in whole years at the given instant.
func (r Record) AgeAt(now time.Time) int {
	years := now.Year() - r.DateOfBirth.Year()
	anniversary := r.DateOfBirth.AddDate(years, 0, 0)
	if anniversary.After(now) {
		years--
	}
	return years
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
