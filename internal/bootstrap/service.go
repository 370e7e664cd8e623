package bootstrap

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tanakasan3/lana-bank-sub001/internal/adapters/postgres"
	"github.com/tanakasan3/lana-bank-sub001/internal/adapters/postgres/dated"
	eventlogpg "github.com/tanakasan3/lana-bank-sub001/internal/adapters/postgres/eventlog"
	"github.com/tanakasan3/lana-bank-sub001/internal/adapters/postgres/facilityindex"
	ledgerpg "github.com/tanakasan3/lana-bank-sub001/internal/adapters/postgres/ledger"
	"github.com/tanakasan3/lana-bank-sub001/internal/adapters/postgres/obligationindex"
	outboxpg "github.com/tanakasan3/lana-bank-sub001/internal/adapters/postgres/outbox"
	"github.com/tanakasan3/lana-bank-sub001/internal/adapters/postgres/pendingindex"
	"github.com/tanakasan3/lana-bank-sub001/internal/adapters/postgres/walletindex"
	"github.com/tanakasan3/lana-bank-sub001/internal/adapters/rabbitmq"
	"github.com/tanakasan3/lana-bank-sub001/internal/adapters/redis"
	"github.com/tanakasan3/lana-bank-sub001/internal/ids"
	"github.com/tanakasan3/lana-bank-sub001/internal/jobhandlers"
	"github.com/tanakasan3/lana-bank-sub001/internal/jobs"
	"github.com/tanakasan3/lana-bank-sub001/internal/ledger"
	"github.com/tanakasan3/lana-bank-sub001/internal/money"
	"github.com/tanakasan3/lana-bank-sub001/internal/outbox"
	"github.com/tanakasan3/lana-bank-sub001/internal/platform/mlog"
	"github.com/tanakasan3/lana-bank-sub001/internal/services"
)

// aggregateKinds name the entity_events.kind partition each event-sourced
// repository is stored under, one postgres/eventlog.Store per kind.
const (
	kindProposal    = "credit_facility_proposal"
	kindPending     = "pending_credit_facility"
	kindFacility    = "credit_facility"
	kindObligation  = "obligation"
	kindPayment     = "payment"
	kindCollateral  = "collateral"
	kindLiquidation = "liquidation"
)

// Service bundles every long-running component InitService wires: the
// use-case layer, the job runtime driving it, and the external-system
// adapters feeding it, mirroring the teacher's
// components/consumer/internal/bootstrap.ConsumerService shape.
type Service struct {
	cfg    Config
	logger mlog.Logger

	pool *pgxpool.Pool

	App *services.Service

	runtime  *jobs.Runtime
	rabbitmq *rabbitmq.Consumer

	httpAddr string
}

// InitService builds the full dependency graph: one eventlog.Store per
// aggregate kind, the ledger/outbox/transactor postgres adapters, the
// four index projections, the dated-job store, the price ticker and
// rabbitmq consumer, and every background job the runtime will drive.
func InitService(ctx context.Context, cfg Config, pool *pgxpool.Pool, logger mlog.Logger) (*Service, error) {
	tx := postgres.NewTransactor(pool)
	ledgerAdapter := ledgerpg.New(pool, logger)
	outboxStore := outboxpg.New(pool, logger, 500*time.Millisecond)
	consumerState := outboxpg.NewConsumerStateStore(pool)

	proposals := services.NewProposalRepo(eventlogpg.New(pool, kindProposal))
	pendings := services.NewPendingRepo(eventlogpg.New(pool, kindPending))
	facilities := services.NewFacilityRepo(eventlogpg.New(pool, kindFacility))
	obligations := services.NewObligationRepo(eventlogpg.New(pool, kindObligation))
	payments := services.NewPaymentRepo(eventlogpg.New(pool, kindPayment))
	collaterals := services.NewCollateralRepo(eventlogpg.New(pool, kindCollateral))
	liquidations := services.NewLiquidationRepo(eventlogpg.New(pool, kindLiquidation))

	obligationIdx := obligationindex.New(pool)
	walletIdx := walletindex.New(pool)
	facilityIdx := facilityindex.New(pool)
	pendingIdx := pendingindex.New(pool)
	datedStore := dated.New(pool)

	upgradeBuffer := money.NewCVLPct(cfg.UpgradeBufferWhole, cfg.UpgradeBufferHundredths)

	app := services.New(services.Deps{
		Logger:          logger,
		Tx:              tx,
		Ledger:          ledgerAdapter,
		Outbox:          outboxStore,
		Proposals:       proposals,
		Pendings:        pendings,
		Facilities:      facilities,
		Obligations:     obligations,
		Payments:        payments,
		Collaterals:     collaterals,
		Liquidations:    liquidations,
		ObligationIndex: obligationIdx,
		Omnibus:         ledgerOmnibus(),
		UpgradeBuffer:   upgradeBuffer,
	})

	redisConn := &redis.Connection{ConnectionString: cfg.RedisURL, Logger: logger}
	priceTicker := redis.NewPriceTicker(redisConn)

	rabbitConn := &rabbitmq.Connection{ConnectionStringSource: cfg.RabbitMQURI, Logger: logger}
	consumer := &rabbitmq.Consumer{
		Conn:    rabbitConn,
		Queue:   cfg.RabbitMQQueue,
		Wallets: walletIdx,
		Cmds:    app,
		Prices:  priceTicker,
		Logger:  logger,
	}

	runtime := jobs.NewRuntime(logger, nil)

	svc := &Service{
		cfg: cfg, logger: logger, pool: pool,
		App: app, runtime: runtime, rabbitmq: consumer,
		httpAddr: ":" + cfg.HTTPPort,
	}

	svc.spawnJobs(outboxStore, consumerState, obligationIdx, walletIdx, facilityIdx, pendingIdx, datedStore, priceTicker, obligations)

	return svc, nil
}

// ledgerOmnibus derives the system-wide omnibus account ids the ledger
// templates post against, per internal/ledger.Omnibus. These are fixed
// well-known accounts, not per-facility, so they're literal constants
// rather than environment configuration.
func ledgerOmnibus() ledger.Omnibus {
	return ledger.Omnibus{
		CollateralOmnibus:          "omnibus:collateral",
		LiquidationProceedsOmnibus: "omnibus:liquidation-proceeds",
		PaymentsMadeOmnibus:        "omnibus:payments-made",
	}
}

// spawnJobs registers every background job the credit core runs
// continuously: the four index projections, the obligation scheduler
// and its three dated pollers, the collateralization engine (merging the
// durable outbox with the ephemeral price ticker), and the payment
// allocator.
func (s *Service) spawnJobs(
	outboxStore *outboxpg.Store,
	consumerState *outboxpg.ConsumerStateStore,
	obligationIdx *obligationindex.Store,
	walletIdx *walletindex.Store,
	facilityIdx *facilityindex.Store,
	pendingIdx *pendingindex.Store,
	datedStore *dated.Store,
	priceTicker *redis.PriceTicker,
	obligations *services.ObligationRepo,
) {
	ctx := context.Background()

	spawnConsumer := func(jobType string, dispatch outbox.Dispatch, ephemeral func(ctx context.Context) (<-chan outbox.Sequenced, error)) {
		runner := postgres.NewOutboxConsumerRunner(jobType, outboxStore, ephemeral, consumerState, s.pool, dispatch, s.logger)
		s.runtime.Spawn(ctx, jobs.Spec{JobType: jobType, Uniqueness: jobs.Unique, Runner: runner})
	}

	spawnConsumer(obligationindexJobType, obligationIdx.Dispatch, nil)
	spawnConsumer(walletindexJobType, walletIdx.Dispatch, nil)
	spawnConsumer(facilityindexJobType, facilityIdx.Dispatch, nil)
	spawnConsumer(pendingindexJobType, pendingIdx.Dispatch, nil)

	scheduler := &jobhandlers.ObligationScheduler{Obligations: obligations, Dated: datedStore}
	spawnConsumer(jobhandlers.JobTypeObligationScheduling, scheduler.Dispatch, nil)

	allocator := &jobhandlers.PaymentAllocator{Allocate: s.App.AllocatePayment}
	spawnConsumer(jobhandlers.JobTypePaymentAllocation, allocator.Dispatch, nil)

	engine := &jobhandlers.CollateralizationEngine{
		Obligations:       obligations,
		PendingMembership: pendingIdx,
		FacilityIndex:     facilityIdx,
		Facilities:        facilityIdx,
		Pendings:          pendingIdx,
		ReevaluateFacility: func(ctx context.Context, facilityID ids.CreditFacilityID, price money.PriceOfOneBTC) error {
			_, err := s.App.ReevaluateFacilityCollateralization(ctx, facilityID, price)
			return err
		},
		ReevaluatePending: func(ctx context.Context, id ids.PendingCreditFacilityID, price money.PriceOfOneBTC) error {
			_, err := s.App.ReevaluatePendingCollateralization(ctx, id, price)
			return err
		},
	}
	spawnConsumer(jobhandlers.JobTypeCollateralizationEngine, engine.Dispatch, priceTicker.Subscribe)

	recordDue := func(ctx context.Context, id string) error {
		obligationID, err := ids.ParseObligationID(id)
		if err != nil {
			return err
		}

		_, err = s.App.RecordObligationDue(ctx, obligationID)

		return err
	}
	recordOverdue := func(ctx context.Context, id string) error {
		obligationID, err := ids.ParseObligationID(id)
		if err != nil {
			return err
		}

		_, err = s.App.RecordObligationOverdue(ctx, obligationID)

		return err
	}
	recordDefaulted := func(ctx context.Context, id string) error {
		obligationID, err := ids.ParseObligationID(id)
		if err != nil {
			return err
		}

		_, err = s.App.RecordObligationDefaulted(ctx, obligationID)

		return err
	}

	now := func() time.Time { return time.Now() }

	s.runtime.Spawn(ctx, jobs.Spec{
		JobType: jobhandlers.JobTypeObligationDue, Uniqueness: jobs.Unique,
		Runner: jobhandlers.NewObligationDuePoller(datedStore, now, recordDue),
	})
	s.runtime.Spawn(ctx, jobs.Spec{
		JobType: jobhandlers.JobTypeObligationOverdue, Uniqueness: jobs.Unique,
		Runner: jobhandlers.NewObligationOverduePoller(datedStore, now, recordOverdue),
	})
	s.runtime.Spawn(ctx, jobs.Spec{
		JobType: jobhandlers.JobTypeObligationDefaulted, Uniqueness: jobs.Unique,
		Runner: jobhandlers.NewObligationDefaultedPoller(datedStore, now, recordDefaulted),
	})
}

const (
	obligationindexJobType = "obligation-index"
	walletindexJobType     = "wallet-index"
	facilityindexJobType   = "facility-index"
	pendingindexJobType    = "pending-index"
)

// Run starts the job runtime, the rabbitmq consumer, and the HTTP
// liveness server, blocking until ctx is canceled, then shuts each down
// in turn, mirroring the teacher's ConsumerService.Run() signal-handling
// shape.
func (s *Service) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		if err := s.rabbitmq.Run(ctx); err != nil && ctx.Err() == nil {
			errCh <- err
		}
	}()

	srv := newHTTPServer(s.App, s.httpAddr)

	go func() {
		if err := srv.Listen(s.httpAddr); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		s.logger.Errorf("bootstrap: component failed: %v", err)
	}

	s.runtime.Shutdown()

	return srv.ShutdownWithTimeout(5 * time.Second)
}
