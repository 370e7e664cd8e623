// Package capability defines the permission-check and audit-record
// interfaces the service layer calls before and after mutating
// operations. Supplemented from original_source/ (lib/audit/src/
// svc_trait.rs, lib/authz/src/dummy.rs): the Rust source models both as
// thin traits with a no-op/always-allow implementation wired by
// default, since policy enforcement itself is out of scope (see
// SPEC_FULL.md Non-goals — "authorization/audit policy"). The typed
// interface stays in scope; the policy engine does not.
package capability

import "context"

// Subject identifies who is performing an operation (an operator user
// id, or the system itself for job-driven mutations).
type Subject struct {
	UserID string // empty means system-initiated
}

// IsSystem reports whether this subject represents a job/system actor
// rather than an operator.
func (s Subject) IsSystem() bool { return s.UserID == "" }

// Object names the entity kind and id an operation acts on, for audit
// trail and permission checks.
type Object struct {
	Kind string
	ID   string
}

// Action is the operation being attempted, e.g. "approve", "disburse".
type Action string

// PermissionChecker authorizes an operation before it runs. The no-op
// implementation in noop.go always allows.
type PermissionChecker interface {
	CheckPermission(ctx context.Context, subject Subject, action Action, object Object) error
}

// AuditRecorder records that an operation happened, after it succeeds.
// The no-op implementation in noop.go discards.
type AuditRecorder interface {
	RecordAudit(ctx context.Context, subject Subject, action Action, object Object, outcome string) error
}
