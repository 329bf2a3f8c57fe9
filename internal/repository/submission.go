// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package repository

import (
	"context"
	"html"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/unicode/norm"

	"github.com/olegiv/sitecms/internal/model"
)

// MaxMessageLength is the longest accepted message, in characters.
const MaxMessageLength = 5000

// textSanitizer strips all markup from visitor-supplied text.
var textSanitizer = bluemonday.StrictPolicy()

// SanitizeText removes HTML from s and returns plain NFC-normalized text with
// surrounding whitespace trimmed. Output must be escaped when rendered.
func SanitizeText(s string) string {
	plain := html.UnescapeString(textSanitizer.Sanitize(s))
	return strings.TrimSpace(norm.NFC.String(plain))
}

// SubmissionInput is a contact or quote request as submitted by a visitor.
type SubmissionInput struct {
	Name           string
	Email          string
	Phone          string
	Company        string
	Service        string
	Message        string
	SubmissionType string
}

// SubmissionRepository manages contact and quote submissions.
type SubmissionRepository struct {
	*Repository
}

// NewSubmissionRepository creates a submission repository.
func NewSubmissionRepository(b Backend, logger *slog.Logger) *SubmissionRepository {
	return &SubmissionRepository{Repository: New(model.ContactSubmissions, b, logger)}
}

func validateSubmission(in *SubmissionInput) error {
	var errs []model.FieldError

	in.Name = SanitizeText(in.Name)
	in.Message = SanitizeText(in.Message)
	in.Phone = SanitizeText(in.Phone)
	in.Company = SanitizeText(in.Company)
	in.Service = SanitizeText(in.Service)

	if in.Name == "" {
		errs = append(errs, model.FieldError{Field: "name", Message: "is required"})
	}

	email, err := NormalizeEmail(in.Email)
	if err != nil {
		errs = append(errs, model.FieldError{Field: "email", Message: "is not a valid email address"})
	}
	in.Email = email

	switch {
	case in.Message == "":
		errs = append(errs, model.FieldError{Field: "message", Message: "is required"})
	case utf8.RuneCountInString(in.Message) > MaxMessageLength:
		errs = append(errs, model.FieldError{Field: "message", Message: "is too long"})
	}

	if in.SubmissionType == "" {
		in.SubmissionType = model.SubmissionTypeContact
	}
	if !model.IsValidSubmissionType(in.SubmissionType) {
		errs = append(errs, model.FieldError{Field: "submissionType", Message: "must be one of " + strings.Join(model.ValidSubmissionTypes(), ", ")})
	}

	return model.NewValidationErrors(errs)
}

// Submit validates and stores a new submission with status "new".
func (r *SubmissionRepository) Submit(ctx context.Context, in SubmissionInput) (*model.Entity, error) {
	if err := validateSubmission(&in); err != nil {
		return nil, err
	}

	fields := model.Fields{
		"name":           in.Name,
		"email":          in.Email,
		"message":        in.Message,
		"submissionType": in.SubmissionType,
		"status":         model.SubmissionStatusNew,
	}
	for name, v := range map[string]string{"phone": in.Phone, "company": in.Company, "service": in.Service} {
		if v != "" {
			fields[name] = v
		}
	}

	return r.Create(ctx, fields)
}

// UpdateStatus moves a submission to the given status.
func (r *SubmissionRepository) UpdateStatus(ctx context.Context, id, status string) (*model.Entity, error) {
	if !model.IsValidSubmissionStatus(status) {
		return nil, model.NewValidationError("status", "must be one of "+strings.Join(model.ValidSubmissionStatuses(), ", "))
	}
	return r.Update(ctx, id, model.Fields{"status": status})
}

// ListByStatus returns submissions with the given status, newest first.
func (r *SubmissionRepository) ListByStatus(ctx context.Context, status string) ([]model.Entity, error) {
	if !model.IsValidSubmissionStatus(status) {
		return nil, model.NewValidationError("status", "must be one of "+strings.Join(model.ValidSubmissionStatuses(), ", "))
	}
	return r.FindBy(ctx, model.Fields{"status": status}, "", false, 0)
}
