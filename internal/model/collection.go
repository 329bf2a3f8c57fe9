// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

// FieldKind describes how a field is stored and decoded.
type FieldKind int

// Field kinds
const (
	KindText FieldKind = iota
	KindBool
	KindInt
	KindTime
	KindList // structured field, stored as JSON text
)

// Field maps a canonical field name to its storage column.
type Field struct {
	Name   string
	Column string
	Kind   FieldKind
}

// Collection describes one logical entity collection. Name doubles as the
// storage table name.
type Collection struct {
	Name   string
	Fields []Field
}

// Field returns the field with the given canonical name.
func (c Collection) Field(name string) (Field, bool) {
	for _, f := range c.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// ByColumn returns the field stored under the given column.
func (c Collection) ByColumn(column string) (Field, bool) {
	for _, f := range c.Fields {
		if f.Column == column {
			return f, true
		}
	}
	return Field{}, false
}

// Columns returns every storage column of the collection, header included.
func (c Collection) Columns() []string {
	cols := make([]string, 0, len(c.Fields)+3)
	cols = append(cols, ColumnID, ColumnCreatedAt, ColumnUpdatedAt)
	for _, f := range c.Fields {
		cols = append(cols, f.Column)
	}
	return cols
}

// HasColumn reports whether column belongs to the collection.
func (c Collection) HasColumn(column string) bool {
	switch column {
	case ColumnID, ColumnCreatedAt, ColumnUpdatedAt:
		return true
	}
	_, ok := c.ByColumn(column)
	return ok
}

func text(name, column string) Field { return Field{Name: name, Column: column, Kind: KindText} }
func list(name, column string) Field { return Field{Name: name, Column: column, Kind: KindList} }

// Collection names
const (
	CollectionAdvisors           = "advisors"
	CollectionProjects           = "projects"
	CollectionTeamMembers        = "team_members"
	CollectionSolutions          = "solutions"
	CollectionNewsletters        = "newsletters"
	CollectionSuccessStories     = "success_stories"
	CollectionResources          = "resources"
	CollectionSubscribers        = "subscribers"
	CollectionContactSubmissions = "contact_submissions"
	CollectionChatMessages       = "chat_messages"
)

// Built-in collections.
var (
	Advisors = Collection{Name: CollectionAdvisors, Fields: []Field{
		text("name", "name"),
		text("title", "title"),
		text("description", "description"),
		text("imageUrl", "image_ref"),
		text("imagePosition", "position"),
		text("linkedinUrl", "linkedin_url"),
		{Name: "sortOrder", Column: "sort_order", Kind: KindInt},
	}}

	Projects = Collection{Name: CollectionProjects, Fields: []Field{
		text("title", "title"),
		text("summary", "summary"),
		text("category", "category"),
		text("imageUrl", "image_ref"),
		text("imagePosition", "position"),
		list("sections", "sections"),
	}}

	TeamMembers = Collection{Name: CollectionTeamMembers, Fields: []Field{
		text("name", "name"),
		text("role", "role"),
		text("bio", "bio"),
		text("imageUrl", "image_ref"),
		text("imagePosition", "position"),
		{Name: "sortOrder", Column: "sort_order", Kind: KindInt},
	}}

	Solutions = Collection{Name: CollectionSolutions, Fields: []Field{
		text("title", "title"),
		text("description", "description"),
		text("icon", "icon"),
		list("points", "points"),
	}}

	Newsletters = Collection{Name: CollectionNewsletters, Fields: []Field{
		text("title", "title"),
		text("summary", "summary"),
		text("content", "content"),
		text("imageUrl", "image_ref"),
		{Name: "published", Column: "published", Kind: KindBool},
		{Name: "publishedAt", Column: "published_at", Kind: KindTime},
	}}

	SuccessStories = Collection{Name: CollectionSuccessStories, Fields: []Field{
		text("title", "title"),
		text("client", "client"),
		text("industry", "industry"),
		text("challenge", "challenge"),
		text("solution", "solution"),
		list("results", "results"),
		text("imageUrl", "image_ref"),
	}}

	Resources = Collection{Name: CollectionResources, Fields: []Field{
		text("title", "title"),
		text("description", "description"),
		text("category", "category"),
		text("fileUrl", "file_url"),
		{Name: "downloadCount", Column: "download_count", Kind: KindInt},
	}}

	Subscribers = Collection{Name: CollectionSubscribers, Fields: []Field{
		text("email", "email"),
		text("name", "name"),
		{Name: "active", Column: "active", Kind: KindBool},
		{Name: "subscribedAt", Column: "subscribed_at", Kind: KindTime},
		{Name: "unsubscribedAt", Column: "unsubscribed_at", Kind: KindTime},
	}}

	ContactSubmissions = Collection{Name: CollectionContactSubmissions, Fields: []Field{
		text("name", "name"),
		text("email", "email"),
		text("phone", "phone"),
		text("company", "company"),
		text("service", "service"),
		text("message", "message"),
		text("submissionType", "submission_type"),
		text("status", "status"),
	}}

	ChatMessages = Collection{Name: CollectionChatMessages, Fields: []Field{
		text("message", "message"),
		text("senderName", "sender_name"),
		text("senderEmail", "sender_email"),
		text("senderType", "sender_type"),
		text("sessionId", "session_id"),
		text("status", "status"),
		list("attachments", "attachments"),
	}}
)

// Collections returns all built-in collections.
func Collections() []Collection {
	return []Collection{
		Advisors,
		Projects,
		TeamMembers,
		Solutions,
		Newsletters,
		SuccessStories,
		Resources,
		Subscribers,
		ContactSubmissions,
		ChatMessages,
	}
}

// CollectionByName looks up a built-in collection.
func CollectionByName(name string) (Collection, bool) {
	for _, c := range Collections() {
		if c.Name == name {
			return c, true
		}
	}
	return Collection{}, false
}
