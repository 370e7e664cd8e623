package services

import (
	"context"
	"errors"

	"github.com/tanakasan3/lana-bank-sub001/internal/domain/proposal"
	"github.com/tanakasan3/lana-bank-sub001/internal/domain/terms"
	"github.com/tanakasan3/lana-bank-sub001/internal/eventlog"
	"github.com/tanakasan3/lana-bank-sub001/internal/events"
	"github.com/tanakasan3/lana-bank-sub001/internal/ids"
	"github.com/tanakasan3/lana-bank-sub001/internal/ledger"
	"github.com/tanakasan3/lana-bank-sub001/internal/money"
	"github.com/tanakasan3/lana-bank-sub001/internal/platform/motel"
)

// CreateProposal opens a new CreditFacilityProposal. A proposal owns no
// ledger accounts (spec.md §3 Ownership), so this only persists events
// and publishes FacilityProposalCreated.
func (s *Service) CreateProposal(ctx context.Context, customerID ids.CustomerID, amount money.UsdCents, t terms.Terms) (*proposal.Proposal, error) {
	ctx, span := motel.Start(ctx, "services.CreateProposal")
	defer span.End()

	id := ids.NewCreditFacilityProposalID()

	p, err := proposal.Create(id, customerID, amount, t, s.now())
	if err != nil {
		return nil, motel.HandleSpanError(span, "create proposal", err)
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context, op ledger.UnitOfWork) error {
		if err := s.proposals.Save(ctx, id.String(), p, 1); err != nil {
			return err
		}

		return s.outbox.PublishAllPersisted(ctx, op, []events.Event{
			events.New(events.TypeFacilityProposalCreated, s.now(), events.FacilityProposalCreated{
				ProposalID: id.String(), CustomerID: customerID.String(), AmountUSD: amount,
			}),
		})
	})
	if err != nil {
		return nil, motel.HandleSpanError(span, "persist proposal", NewError(CodeTransientInfra, id.String(), err))
	}

	return p, nil
}

// ConcludeProposal approves, denies, or expires a proposal, publishing
// the corresponding FacilityProposalConcluded event. Idempotent per
// proposal.Proposal's own idempotency guard.
func (s *Service) ConcludeProposal(ctx context.Context, id ids.CreditFacilityProposalID, conclusion proposal.Conclusion) (eventlog.Outcome[proposal.Conclusion], error) {
	ctx, span := motel.Start(ctx, "services.ConcludeProposal")
	defer span.End()

	var outcome eventlog.Outcome[proposal.Conclusion]

	err := eventlog.RetryOnConflict(ctx, func(ctx context.Context) error {
		p, err := s.proposals.Load(ctx, id.String())
		if err != nil {
			return err
		}

		expectedSeq := p.NextSequence()

		var concludeErr error

		switch conclusion {
		case proposal.Approved:
			outcome, concludeErr = p.Approve(s.now())
		case proposal.Denied:
			outcome, concludeErr = p.Deny(s.now())
		case proposal.Expired:
			outcome, concludeErr = p.Expire(s.now())
		default:
			concludeErr = errors.New("services: unknown proposal conclusion")
		}

		if concludeErr != nil {
			return concludeErr
		}

		if !outcome.WasExecuted() {
			return nil
		}

		return s.tx.WithinTransaction(ctx, func(ctx context.Context, op ledger.UnitOfWork) error {
			if err := s.proposals.Save(ctx, id.String(), p, expectedSeq); err != nil {
				return err
			}

			return s.outbox.PublishAllPersisted(ctx, op, []events.Event{
				events.New(events.TypeFacilityProposalConcluded, s.now(), events.FacilityProposalConcluded{
					ProposalID: id.String(), Outcome: toConclusionOutcome(conclusion),
				}),
			})
		})
	})
	if err != nil {
		return eventlog.Outcome[proposal.Conclusion]{}, motel.HandleSpanError(span, "conclude proposal", NewError(CodeConcurrentModification, id.String(), err))
	}

	return outcome, nil
}

func toConclusionOutcome(c proposal.Conclusion) events.ConclusionOutcome {
	switch c {
	case proposal.Approved:
		return events.ConclusionApproved
	case proposal.Denied:
		return events.ConclusionDenied
	default:
		return events.ConclusionExpired
	}
}
