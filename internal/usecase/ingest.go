package usecase

import (
	"context"
	"fmt"

	"tradingcore/internal/domain/models"
	drepo "tradingcore/internal/domain/repository"
	"tradingcore/internal/market"
	"tradingcore/pkg/logger"
)

// Ingestor applies feed events to the market state and runs the candle
// reconstructor over the trade path. Reconnects are handled here; the
// decision loop keeps running on last known state meanwhile.
type Ingestor struct {
	stream  drepo.MarketStream
	state   *market.MarketState
	recon   *market.CandleReconstructor
	metrics drepo.Metrics
	log     *logger.Logger
}

func NewIngestor(
	stream drepo.MarketStream,
	state *market.MarketState,
	recon *market.CandleReconstructor,
	metrics drepo.Metrics,
	log *logger.Logger,
) *Ingestor {
	return &Ingestor{
		stream:  stream,
		state:   state,
		recon:   recon,
		metrics: metrics,
		log:     log,
	}
}

// Start connects, subscribes and consumes events until the context is
// cancelled. Read errors trigger a reconnect.
func (i *Ingestor) Start(ctx context.Context) error {
	if err := i.stream.Connect(ctx); err != nil {
		return fmt.Errorf("ingestor connect: %w", err)
	}
	if err := i.stream.Subscribe(ctx); err != nil {
		return fmt.Errorf("ingestor subscribe: %w", err)
	}

	for {
		events, errs := i.stream.Read(ctx)
	consume:
		for {
			select {
			case <-ctx.Done():
				return i.stream.Close()
			case ev, ok := <-events:
				if !ok {
					break consume
				}
				i.Apply(ev)
			case err, ok := <-errs:
				if !ok {
					break consume
				}
				if err != nil {
					i.log.Warn("feed error, reconnecting", logger.Error(err))
					i.metrics.RecordError("feed")
				}
				break consume
			}
		}

		select {
		case <-ctx.Done():
			return i.stream.Close()
		default:
		}
		if err := i.stream.Reconnect(ctx); err != nil {
			i.log.Error("feed reconnect failed", logger.Error(err))
			i.metrics.RecordError("feed_reconnect")
		}
	}
}

// Apply routes one event into the market state.
func (i *Ingestor) Apply(ev *models.FeedEvent) {
	if ev == nil {
		return
	}
	switch ev.Type {
	case models.EventTrade:
		i.state.UpdateTrade(*ev.Trade)
		if finalized := i.recon.Apply(*ev.Trade); finalized != nil {
			i.state.UpdateCandle(*finalized)
		}
		if live := i.recon.Live(); live != nil {
			i.state.UpdateLiveCandle(*live)
		}
	case models.EventDepth:
		i.state.UpdateDepth(*ev.Depth)
	case models.EventMarkPrice:
		i.state.UpdateMarkPrice(ev.MarkPrice)
		i.metrics.RecordMarkPrice(i.state.Symbol(), ev.MarkPrice)
	case models.EventCandle:
		if ev.Candle.Confirmed {
			i.state.UpdateCandle(*ev.Candle)
		} else {
			i.state.UpdateLiveCandle(*ev.Candle)
		}
	}
}
