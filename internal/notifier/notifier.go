// Package notifier delivers rendered alerts to a guild's notification channel.
package notifier

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrDeliveryFailed wraps every failed delivery attempt
	ErrDeliveryFailed = errors.New("notification delivery failed")
	// ErrNoDestination is returned when a guild has no notification channel
	ErrNoDestination = fmt.Errorf("%w: no notification channel configured", ErrDeliveryFailed)
)

// Kind identifies the alert type for routing and metrics
type Kind string

const (
	KindMilestoneD7      Kind = "milestone_d7"
	KindMilestoneD1      Kind = "milestone_d1"
	KindMilestoneDelayed Kind = "milestone_delayed"
	KindIssueWarning     Kind = "issue_warning"
	KindIssueCritical    Kind = "issue_critical"
	KindWeeklyReport     Kind = "weekly_report"
)

// Field is one name/value row of a message
type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// Message is a rendered alert
type Message struct {
	Kind        Kind    `json:"kind"`
	Content     string  `json:"content,omitempty"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Fields      []Field `json:"fields,omitempty"`
	Color       int     `json:"color,omitempty"`
	// Mentions lists the user ids the message pings
	Mentions []string `json:"mentions,omitempty"`
	// Broadcast pings everyone currently online in the channel
	Broadcast bool `json:"broadcast,omitempty"`
}

// Notifier delivers a message to a channel
type Notifier interface {
	Deliver(ctx context.Context, channelID string, msg Message) error
}

// failed wraps err so that errors.Is(err, ErrDeliveryFailed) holds
func failed(err error) error {
	if err == nil || errors.Is(err, ErrDeliveryFailed) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
}
