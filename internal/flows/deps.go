package flows

import (
	"context"
	"time"
)

// AccountRecord is the flow-local view of a stored account.
type AccountRecord struct {
	ID         string
	Identifier string
	Name       string
	SecretHash string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// AuditFunc emits one audit event. metadata is only called when auditing is on.
type AuditFunc func(ctx context.Context, event string, success bool, accountID, identifier string, err error, metadata func() map[string]string)

// WarnFunc reports a non-fatal backend failure.
type WarnFunc func(ctx context.Context, msg string, err error)

func noAudit(context.Context, string, bool, string, string, error, func() map[string]string) {}

func noWarn(context.Context, string, error) {}

func noMetric(int) {}
