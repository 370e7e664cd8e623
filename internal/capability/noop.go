package capability

import "context"

// NoopPermissionChecker always allows, matching the Rust
// lib/authz/src/dummy.rs default wiring until a real policy engine is
// configured.
type NoopPermissionChecker struct{}

func (NoopPermissionChecker) CheckPermission(ctx context.Context, subject Subject, action Action, object Object) error {
	return nil
}

// NoopAuditRecorder discards every record, matching
// lib/audit/src/svc_trait.rs's dummy implementation.
type NoopAuditRecorder struct{}

func (NoopAuditRecorder) RecordAudit(ctx context.Context, subject Subject, action Action, object Object, outcome string) error {
	return nil
}

var (
	_ PermissionChecker = NoopPermissionChecker{}
	_ AuditRecorder     = NoopAuditRecorder{}
)
