// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "slices"

// Submission types
const (
	SubmissionTypeContact      = "contact"
	SubmissionTypeQuoteRequest = "quote_request"
)

// Submission statuses
const (
	SubmissionStatusNew      = "new"
	SubmissionStatusRead     = "read"
	SubmissionStatusReplied  = "replied"
	SubmissionStatusArchived = "archived"
)

// Chat sender types
const (
	SenderTypeUser = "user"
	SenderTypeBot  = "bot"
)

// Chat message statuses
const (
	ChatStatusSent      = "sent"
	ChatStatusDelivered = "delivered"
	ChatStatusRead      = "read"
	ChatStatusFailed    = "failed"
)

// ValidSubmissionTypes returns all valid submission types.
func ValidSubmissionTypes() []string {
	return []string{SubmissionTypeContact, SubmissionTypeQuoteRequest}
}

// ValidSubmissionStatuses returns all valid submission statuses.
func ValidSubmissionStatuses() []string {
	return []string{
		SubmissionStatusNew,
		SubmissionStatusRead,
		SubmissionStatusReplied,
		SubmissionStatusArchived,
	}
}

// ValidChatStatuses returns all valid chat message statuses.
func ValidChatStatuses() []string {
	return []string{ChatStatusSent, ChatStatusDelivered, ChatStatusRead, ChatStatusFailed}
}

// IsValidSubmissionType checks if a submission type is valid.
func IsValidSubmissionType(t string) bool {
	return slices.Contains(ValidSubmissionTypes(), t)
}

// IsValidSubmissionStatus checks if a submission status is valid.
func IsValidSubmissionStatus(s string) bool {
	return slices.Contains(ValidSubmissionStatuses(), s)
}

// IsValidSenderType checks if a chat sender type is valid.
func IsValidSenderType(t string) bool {
	return t == SenderTypeUser || t == SenderTypeBot
}

// IsValidChatStatus checks if a chat status is valid.
func IsValidChatStatus(s string) bool {
	return slices.Contains(ValidChatStatuses(), s)
}

// Attachment is a file attached to a chat message. A nil URL marks a failed
// upload; Error then carries the reason.
type Attachment struct {
	Name  string  `json:"name"`
	Size  int64   `json:"size"`
	Type  string  `json:"type"`
	URL   *string `json:"url"`
	Error *string `json:"error"`
}

// Failed reports whether the upload of the attachment failed.
func (a Attachment) Failed() bool {
	return a.URL == nil
}

// Section is one titled block of a project's body.
type Section struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}
