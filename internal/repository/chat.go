// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package repository

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/olegiv/sitecms/internal/model"
)

const attachmentUploadFailed = "upload failed"

// ChatInput is a chat message to be stored.
type ChatInput struct {
	SessionID   string
	Message     string
	SenderName  string
	SenderEmail string
	SenderType  string
	Status      string
	Attachments []model.Attachment
}

// ChatRepository manages chat widget messages.
type ChatRepository struct {
	*Repository
}

// NewChatRepository creates a chat repository.
func NewChatRepository(b Backend, logger *slog.Logger) *ChatRepository {
	return &ChatRepository{Repository: New(model.ChatMessages, b, logger)}
}

// Create stores a chat message. The session id is the caller's; it is never
// generated here.
func (r *ChatRepository) Create(ctx context.Context, in ChatInput) (*model.Entity, error) {
	var errs []model.FieldError

	in.SessionID = strings.TrimSpace(in.SessionID)
	if in.SessionID == "" {
		errs = append(errs, model.FieldError{Field: "sessionId", Message: "is required"})
	}

	in.Message = SanitizeText(in.Message)
	if utf8.RuneCountInString(in.Message) > MaxMessageLength {
		errs = append(errs, model.FieldError{Field: "message", Message: "is too long"})
	}
	if in.Message == "" && len(in.Attachments) == 0 {
		errs = append(errs, model.FieldError{Field: "message", Message: "is required"})
	}

	if in.SenderType == "" {
		in.SenderType = model.SenderTypeUser
	}
	if !model.IsValidSenderType(in.SenderType) {
		errs = append(errs, model.FieldError{Field: "senderType", Message: "must be user or bot"})
	}

	if in.Status == "" {
		in.Status = model.ChatStatusSent
	}
	if !model.IsValidChatStatus(in.Status) {
		errs = append(errs, model.FieldError{Field: "status", Message: "must be one of " + strings.Join(model.ValidChatStatuses(), ", ")})
	}

	if err := model.NewValidationErrors(errs); err != nil {
		return nil, err
	}

	attachments := make([]model.Attachment, 0, len(in.Attachments))
	for _, a := range in.Attachments {
		if a.Failed() && (a.Error == nil || *a.Error == "") {
			reason := attachmentUploadFailed
			a.Error = &reason
		}
		attachments = append(attachments, a)
	}

	fields := model.Fields{
		"sessionId":   in.SessionID,
		"message":     in.Message,
		"senderType":  in.SenderType,
		"status":      in.Status,
		"attachments": attachments,
	}
	if name := SanitizeText(in.SenderName); name != "" {
		fields["senderName"] = name
	}
	if email := strings.TrimSpace(in.SenderEmail); email != "" {
		email, err := NormalizeEmail(email)
		if err != nil {
			return nil, model.NewValidationError("senderEmail", "is not a valid email address")
		}
		fields["senderEmail"] = email
	}

	return r.Repository.Create(ctx, fields)
}

// ListBySession returns the messages of one session, oldest first.
func (r *ChatRepository) ListBySession(ctx context.Context, sessionID string) ([]model.Entity, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, model.NewValidationError("sessionId", "is required")
	}
	return r.FindBy(ctx, model.Fields{"sessionId": sessionID}, model.FieldCreatedAt, true, 0)
}

// UpdateStatus sets the delivery status of a message.
func (r *ChatRepository) UpdateStatus(ctx context.Context, id, status string) (*model.Entity, error) {
	if !model.IsValidChatStatus(status) {
		return nil, model.NewValidationError("status", "must be one of "+strings.Join(model.ValidChatStatuses(), ", "))
	}
	return r.Update(ctx, id, model.Fields{"status": status})
}
