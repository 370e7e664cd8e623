package services

import "github.com/tanakasan3/lana-bank-sub001/internal/ids"

// parse* helpers convert the string entity id eventlog.Stream keys
// every event under back into a typed id for Hydrate. The underlying
// string is always one this service minted via ids.New*ID().String(),
// so a parse failure here indicates corrupted storage rather than bad
// input; the zero value is returned and replay will simply fail its own
// invariant checks downstream.

func parseProposalID(s string) ids.CreditFacilityProposalID {
	id, _ := ids.ParseCreditFacilityProposalID(s)
	return id
}

func parsePendingID(s string) ids.PendingCreditFacilityID {
	id, _ := ids.ParsePendingCreditFacilityID(s)
	return id
}

func parseFacilityID(s string) ids.CreditFacilityID {
	id, _ := ids.ParseCreditFacilityID(s)
	return id
}

func parseObligationID(s string) ids.ObligationID {
	id, _ := ids.ParseObligationID(s)
	return id
}

func parsePaymentID(s string) ids.PaymentID {
	id, _ := ids.ParsePaymentID(s)
	return id
}

func parseCollateralID(s string) ids.CollateralID {
	id, _ := ids.ParseCollateralID(s)
	return id
}

func parseLiquidationID(s string) ids.LiquidationID {
	id, _ := ids.ParseLiquidationID(s)
	return id
}
