package analysis

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/applytrack/applytrack/internal/domain"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// MinJobDescriptionLength is the minimum job description length in
// characters after trimming.
const MinJobDescriptionLength = 50

var validate = validator.New()

// Request asks for one CV analysis. CVText is optional; when empty the
// extracted text of CVFileID is loaded at run time.
type Request struct {
	OwnerID        uuid.UUID `json:"ownerId"          validate:"required"`
	CVFileID       uuid.UUID `json:"cvFileId"         validate:"required"`
	CVText         string    `json:"cvText,omitempty"`
	JobDescription string    `json:"jobDescription"   validate:"required,min=50"`
	JobURL         string    `json:"jobUrl,omitempty" validate:"omitempty,url"`
}

// FitRequest asks for the fit score of a CV against an application's job
// description.
type FitRequest struct {
	ApplicationID  uuid.UUID `json:"applicationId"  validate:"required"`
	OwnerID        uuid.UUID `json:"ownerId"        validate:"required"`
	CVFileID       uuid.UUID `json:"cvFileId"       validate:"required"`
	CVText         string    `json:"cvText,omitempty"`
	JobDescription string    `json:"jobDescription" validate:"required,min=50"`
}

// Normalize trims free-text fields.
func (r *Request) Normalize() {
	r.CVText = strings.TrimSpace(r.CVText)
	r.JobDescription = strings.TrimSpace(r.JobDescription)
	r.JobURL = strings.TrimSpace(r.JobURL)
}

// Validate normalizes r and checks it. The error is a *domain.ValidationError.
func (r *Request) Validate() error {
	r.Normalize()
	return validationError(validate.Struct(r))
}

// Normalize trims free-text fields.
func (r *FitRequest) Normalize() {
	r.CVText = strings.TrimSpace(r.CVText)
	r.JobDescription = strings.TrimSpace(r.JobDescription)
}

// Validate normalizes r and checks it. The error is a *domain.ValidationError.
func (r *FitRequest) Validate() error {
	r.Normalize()
	return validationError(validate.Struct(r))
}

// Hash is the fit-score cache key: hex sha256 of the application id and the
// trimmed job description.
func (r *FitRequest) Hash() string {
	sum := sha256.Sum256([]byte(r.ApplicationID.String() + "\n" + strings.TrimSpace(r.JobDescription)))
	return hex.EncodeToString(sum[:])
}

// validationError converts the first validator failure into a
// domain.ValidationError.
func validationError(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return domain.NewValidationError("", "invalid request", err)
	}

	fe := verrs[0]
	field := jsonName(fe.Field())
	switch fe.Tag() {
	case "required":
		return domain.NewValidationError(field, "is required", nil)
	case "min":
		return domain.NewValidationError(field,
			fmt.Sprintf("must be at least %s characters", fe.Param()), nil)
	case "url":
		return domain.NewValidationError(field, "must be a valid URL", nil)
	default:
		return domain.NewValidationError(field, fmt.Sprintf("failed %q check", fe.Tag()), nil)
	}
}

func jsonName(field string) string {
	switch field {
	case "CVFileID":
		return "cvFileId"
	case "OwnerID":
		return "ownerId"
	case "ApplicationID":
		return "applicationId"
	case "JobURL":
		return "jobUrl"
	case "CVText":
		return "cvText"
	case "":
		return ""
	}
	return strings.ToLower(field[:1]) + field[1:]
}
