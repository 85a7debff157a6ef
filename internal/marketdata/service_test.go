package marketdata_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/bitsecure/platform/internal/marketdata"
)

func seedPairs() []marketdata.Pair {
	return []marketdata.Pair{
		{Pair: "BTC/USDT", Change: 2.61, Direction: "LONG", Leverage: "20x", Value: 25766.2},
		{Pair: "ETH/USDT", Change: -1.51, Direction: "SHORT", Leverage: "10x", Value: 32751.53},
	}
}

func TestTradingDataFluctuates(t *testing.T) {
	svc := marketdata.NewService(zap.NewNop(), seedPairs())

	data := svc.TradingData()
	assert.Len(t, data.Pairs, 2)
	assert.False(t, data.LastUpdated.IsZero())

	for _, p := range data.Pairs {
		assert.GreaterOrEqual(t, p.Value, float64(1000))
		assert.Contains(t, []string{"LONG", "SHORT"}, p.Direction)
		assert.Contains(t, []string{"5x", "10x", "20x", "50x"}, p.Leverage)
		assert.GreaterOrEqual(t, p.Change, -5.0)
		assert.LessOrEqual(t, p.Change, 5.0)
	}

	// Successive calls walk from the previous value, not the seed.
	first := data.Pairs[0].Value
	second := svc.TradingData().Pairs[0].Value
	assert.InDelta(t, first, second, 50.01)
}

func TestNewServiceCopiesSeed(t *testing.T) {
	seed := seedPairs()
	svc := marketdata.NewService(zap.NewNop(), seed)
	svc.TradingData()
	// The caller's slice is not mutated by the walk.
	assert.Equal(t, 25766.2, seed[0].Value)
}

func TestStaticTables(t *testing.T) {
	svc := marketdata.NewService(zap.NewNop(), nil)

	prices := svc.Prices()
	assert.Contains(t, prices, "BTC")
	assert.Contains(t, prices, "ADA")
	assert.Equal(t, "₿", prices["BTC"].Symbol)

	news := svc.News()
	assert.Len(t, news, 3)
	for _, item := range news {
		assert.NotEmpty(t, item.Title)
		assert.NotEmpty(t, item.Source)
	}
}
