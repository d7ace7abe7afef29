// Package notify delivers outbound signals: the fire-and-forget
// "article published" announcement consumed by the social-distribution
// integration, and operator alerts for pipeline failures.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Announcement is the payload pushed to the social-distribution
// collaborator when an article goes live.
type Announcement struct {
	ArticleID   int64     `json:"article_id"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	Excerpt     string    `json:"excerpt"`
	Content     string    `json:"content"`
	ImageURL    string    `json:"image_url,omitempty"`
	Category    string    `json:"category"`
	PublishedAt time.Time `json:"published_at"`
	URL         string    `json:"url"`
	IsBreaking  bool      `json:"is_breaking"`
}

// Alert is an operator-facing failure notice.
type Alert struct {
	Title   string            `json:"title"`
	Body    string            `json:"body"`
	Fields  map[string]string `json:"fields,omitempty"`
	ItemURL string            `json:"item_url,omitempty"`
}

// Notifier delivers operator alerts to a specific destination.
type Notifier interface {
	Name() string
	Send(ctx context.Context, a *Alert) error
}

// Manager broadcasts operator alerts to all registered notifiers.
type Manager struct {
	notifiers []Notifier
}

// NewManager creates a new alert manager.
func NewManager(notifiers []Notifier) *Manager {
	return &Manager{notifiers: notifiers}
}

// HasNotifiers returns true if at least one notifier is configured.
func (m *Manager) HasNotifiers() bool {
	return len(m.notifiers) > 0
}

// Broadcast sends an alert to all registered notifiers.
func (m *Manager) Broadcast(ctx context.Context, a *Alert) error {
	var errs []error
	for _, notifier := range m.notifiers {
		if err := notifier.Send(ctx, a); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", notifier.Name(), err))
		}
	}
	return errors.Join(errs...)
}
