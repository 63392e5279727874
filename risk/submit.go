package risk

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/quantrio/traderd/broker"
)

// Submitter forwards order intents to the venue. Every intent is checked
// against the limits before the first attempt; a rejected intent never
// reaches the venue at all.
type Submitter struct {
	limits Limits
	venue  broker.Broker
	log    zerolog.Logger
}

func NewSubmitter(limits Limits, venue broker.Broker, log zerolog.Logger) *Submitter {
	return &Submitter{
		limits: limits,
		venue:  venue,
		log:    log.With().Str("component", "submitter").Logger(),
	}
}

// Submit validates and places one order with bounded retry on transient
// venue failures. The returned error is a *broker.RejectedError for risk
// or venue rejections, or a terminal failure once retries are exhausted.
func (s *Submitter) Submit(ctx context.Context, intent broker.OrderIntent) (broker.OrderResult, error) {
	d := Evaluate(s.limits, intent)
	if !d.Allowed {
		s.log.Warn().
			Str("account", intent.AccountID).
			Str("asset", intent.AssetID).
			Str("reason", d.Reason()).
			Msg("intent rejected by risk limits")
		return broker.OrderResult{}, broker.Rejected(d.Reason())
	}

	var res broker.OrderResult
	err := Retry(ctx, s.limits.MaxRetry, func(ctx context.Context) error {
		r, err := s.venue.PlaceOrder(ctx, intent)
		if err != nil {
			return err
		}
		res = r
		return nil
	})
	if err != nil {
		return broker.OrderResult{}, err
	}

	s.log.Info().
		Str("account", intent.AccountID).
		Str("asset", intent.AssetID).
		Str("side", intent.Side.String()).
		Str("quantity", intent.Quantity.String()).
		Str("price", res.Price.String()).
		Str("order_id", res.OrderID).
		Msg("order placed")
	return res, nil
}
