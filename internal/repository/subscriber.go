// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/olegiv/sitecms/internal/model"
	"github.com/olegiv/sitecms/internal/schema"
)

// SubscribeOutcome tells the caller what a subscribe call did.
type SubscribeOutcome int

// Subscribe outcomes
const (
	Subscribed SubscribeOutcome = iota
	AlreadySubscribed
	Resubscribed
)

func (o SubscribeOutcome) String() string {
	switch o {
	case AlreadySubscribed:
		return "already_subscribed"
	case Resubscribed:
		return "resubscribed"
	default:
		return "subscribed"
	}
}

// SubscriberRepository manages newsletter subscriptions keyed by email.
type SubscriberRepository struct {
	*Repository
	now func() time.Time
}

// NewSubscriberRepository creates a subscriber repository.
func NewSubscriberRepository(b Backend, logger *slog.Logger) *SubscriberRepository {
	return &SubscriberRepository{Repository: New(model.Subscribers, b, logger), now: time.Now}
}

// NormalizeEmail trims the address and checks that it parses as a bare
// address. Case is preserved.
func NormalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", model.NewValidationError("email", "is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", model.NewValidationError("email", "is not a valid email address")
	}
	return email, nil
}

// GetByEmail returns the subscriber with the given email.
func (r *SubscriberRepository) GetByEmail(ctx context.Context, email string) (*model.Entity, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}

	items, err := r.FindBy(ctx, model.Fields{"email": email}, "", false, 1)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("subscriber %s: %w", email, model.ErrNotFound)
	}
	return &items[0], nil
}

// Subscribe activates the subscription for email, creating it when absent.
// Repeating the call is safe: there is always exactly one record per email.
// A concurrent first subscribe with the same email is reported as success.
func (r *SubscriberRepository) Subscribe(ctx context.Context, email, name string) (*model.Entity, SubscribeOutcome, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return nil, Subscribed, err
	}

	existing, err := r.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return r.reactivate(ctx, existing, name)
	case !errors.Is(err, model.ErrNotFound):
		return nil, Subscribed, err
	}

	fields := model.Fields{
		"email":          email,
		"active":         true,
		"subscribedAt":   r.now().UTC(),
		"unsubscribedAt": nil,
	}
	if name = strings.TrimSpace(name); name != "" {
		fields["name"] = name
	}

	row, inserted, err := r.backend.Upsert(ctx, r.coll.Name, "email", schema.ToExternal(r.coll, fields))
	if errors.Is(err, model.ErrConflict) {
		// Lost a race with another first-time subscribe; the record exists now.
		e, getErr := r.GetByEmail(ctx, email)
		if getErr != nil {
			return nil, Subscribed, getErr
		}
		return e, AlreadySubscribed, nil
	}
	if err != nil {
		return nil, Subscribed, fmt.Errorf("subscribe %s: %w", email, err)
	}

	e := schema.ToInternal(r.coll, row)
	if !inserted {
		return &e, AlreadySubscribed, nil
	}
	return &e, Subscribed, nil
}

func (r *SubscriberRepository) reactivate(ctx context.Context, existing *model.Entity, name string) (*model.Entity, SubscribeOutcome, error) {
	wasActive := existing.Fields.Bool("active")

	fields := model.Fields{
		"active":         true,
		"unsubscribedAt": nil,
	}
	if !wasActive {
		fields["subscribedAt"] = r.now().UTC()
	}
	if name = strings.TrimSpace(name); name != "" {
		fields["name"] = name
	}

	e, err := r.Update(ctx, existing.ID, fields)
	if err != nil {
		return nil, Subscribed, err
	}
	if wasActive {
		return e, AlreadySubscribed, nil
	}
	return e, Resubscribed, nil
}

// Unsubscribe deactivates the subscription and stamps unsubscribedAt.
func (r *SubscriberRepository) Unsubscribe(ctx context.Context, email string) (*model.Entity, error) {
	existing, err := r.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return r.Update(ctx, existing.ID, model.Fields{
		"active":         false,
		"unsubscribedAt": r.now().UTC(),
	})
}
