package services

import (
	"context"
	"time"

	"github.com/tanakasan3/lana-bank-sub001/internal/capability"
	"github.com/tanakasan3/lana-bank-sub001/internal/ledger"
	"github.com/tanakasan3/lana-bank-sub001/internal/money"
	"github.com/tanakasan3/lana-bank-sub001/internal/outbox"
	"github.com/tanakasan3/lana-bank-sub001/internal/platform/mlog"
)

// Transactor opens a single unit of work spanning an aggregate's
// event-stream append, its ledger posting, and its outbox publish, so
// all three commit atomically. Implemented by
// internal/adapters/postgres.Transactor over a *pgxpool.Pool.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context, op ledger.UnitOfWork) error) error
}

// ObligationIndex answers "which obligations does this facility still
// owe" without replaying every obligation stream in the system — backed
// by a denormalized projection table rebuilt from the outbox, per
// spec.md §4.9. The allocation algorithm (spec.md §4.6) is the one piece
// of services that needs a cross-aggregate query rather than a single
// aggregate load.
type ObligationIndex interface {
	// OpenObligationIDs returns the ids of every non-terminal obligation
	// owned by facilityID.
	OpenObligationIDs(ctx context.Context, facilityID string) ([]string, error)
}

// Service wires every domain repository, the ledger adapter, and the
// outbox writer into the use-case operations spec.md §2 names. One
// instance is constructed in internal/bootstrap and shared across the
// HTTP surface, job handlers, and the rabbitmq consumer.
type Service struct {
	logger mlog.Logger
	tx     Transactor
	ledger ledger.Adapter
	outbox outbox.Writer

	proposals    *ProposalRepo
	pendings     *PendingRepo
	facilities   *FacilityRepo
	obligations  *ObligationRepo
	payments     *PaymentRepo
	collaterals  *CollateralRepo
	liquidations *LiquidationRepo

	obligationIndex ObligationIndex

	permissions capability.PermissionChecker
	audit       capability.AuditRecorder

	omnibus       ledger.Omnibus
	upgradeBuffer money.CVLPct
	clock         func() time.Time
}

// Deps bundles Service's constructor arguments.
type Deps struct {
	Logger          mlog.Logger
	Tx              Transactor
	Ledger          ledger.Adapter
	Outbox          outbox.Writer
	Proposals       *ProposalRepo
	Pendings        *PendingRepo
	Facilities      *FacilityRepo
	Obligations     *ObligationRepo
	Payments        *PaymentRepo
	Collaterals     *CollateralRepo
	Liquidations    *LiquidationRepo
	ObligationIndex ObligationIndex
	Permissions     capability.PermissionChecker
	Audit           capability.AuditRecorder
	Omnibus         ledger.Omnibus
	UpgradeBuffer   money.CVLPct
	Clock           func() time.Time
}

// New builds a Service from Deps, defaulting Clock to time.Now and the
// permission/audit capabilities to their no-op implementations if unset
// (spec.md Non-goals: the policy engine is out of scope, but the typed
// interface is always wired).
func New(d Deps) *Service {
	if d.Clock == nil {
		d.Clock = time.Now
	}

	if d.Permissions == nil {
		d.Permissions = capability.NoopPermissionChecker{}
	}

	if d.Audit == nil {
		d.Audit = capability.NoopAuditRecorder{}
	}

	return &Service{
		logger: d.Logger, tx: d.Tx, ledger: d.Ledger, outbox: d.Outbox,
		proposals: d.Proposals, pendings: d.Pendings, facilities: d.Facilities,
		obligations: d.Obligations, payments: d.Payments, collaterals: d.Collaterals,
		liquidations: d.Liquidations, obligationIndex: d.ObligationIndex,
		permissions:  d.Permissions, audit: d.Audit,
		omnibus: d.Omnibus, upgradeBuffer: d.UpgradeBuffer, clock: d.Clock,
	}
}

// now returns the service's current time, overridable in tests.
func (s *Service) now() time.Time { return s.clock() }
