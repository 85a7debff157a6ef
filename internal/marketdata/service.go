package marketdata

import (
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Pair is one simulated trading pair. Values fluctuate per request; nothing
// here is backed by a real feed.
type Pair struct {
	Pair      string  `json:"pair"`
	Change    float64 `json:"change"`
	Direction string  `json:"direction"`
	Leverage  string  `json:"leverage"`
	Value     float64 `json:"value"`
}

// TradingData is the response of GET /api/trading/data.
type TradingData struct {
	Pairs       []Pair    `json:"pairs"`
	LastUpdated time.Time `json:"last_updated"`
}

// Price is one simulated spot price.
type Price struct {
	Price     float64 `json:"price"`
	Change24h float64 `json:"change_24h"`
	Symbol    string  `json:"symbol"`
}

// NewsItem is one simulated headline.
type NewsItem struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Summary string `json:"summary"`
	Date    string `json:"date"`
	Source  string `json:"source"`
}

var directions = []string{"LONG", "SHORT"}
var leverages = []string{"5x", "10x", "20x", "50x"}

// Service serves the simulated market endpoints. The pair list is injected at
// startup; the per-request random walk is the only mutable state and is owned
// by the service, not a package global.
type Service struct {
	logger *zap.Logger
	mu     sync.Mutex
	pairs  []Pair
}

// NewService creates a market data service seeded with the configured pairs.
func NewService(logger *zap.Logger, pairs []Pair) *Service {
	seeded := make([]Pair, len(pairs))
	copy(seeded, pairs)
	return &Service{logger: logger, pairs: seeded}
}

// TradingData applies one random fluctuation step and returns the pairs.
func (s *Service) TradingData() *TradingData {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.pairs {
		fluctuation := (rand.Float64() - 0.5) * 100
		value := s.pairs[i].Value + fluctuation
		if value < 1000 {
			value = 1000
		}
		s.pairs[i].Value = round2(value)
		s.pairs[i].Change = round2((rand.Float64() - 0.5) * 10)
		s.pairs[i].Direction = directions[rand.Intn(len(directions))]
		s.pairs[i].Leverage = leverages[rand.Intn(len(leverages))]
	}

	out := make([]Pair, len(s.pairs))
	copy(out, s.pairs)
	return &TradingData{Pairs: out, LastUpdated: time.Now().UTC()}
}

// Prices returns the simulated spot-price table.
func (s *Service) Prices() map[string]Price {
	return map[string]Price{
		"BTC":  {Price: 43250.67, Change24h: 2.34, Symbol: "₿"},
		"ETH":  {Price: 2658.91, Change24h: -1.23, Symbol: "Ξ"},
		"USDT": {Price: 1.00, Change24h: 0.01, Symbol: "₮"},
		"BNB":  {Price: 312.45, Change24h: 4.56, Symbol: "BNB"},
		"ADA":  {Price: 0.48, Change24h: -2.1, Symbol: "₳"},
	}
}

// News returns the simulated headline list.
func (s *Service) News() []NewsItem {
	return []NewsItem{
		{
			ID:      "1",
			Title:   "Bitcoin hits a new monthly high",
			Summary: "Bitcoin climbs past $43,000 on growing institutional adoption",
			Date:    "2024-01-15T10:30:00Z",
			Source:  "CryptoNews",
		},
		{
			ID:      "2",
			Title:   "Ethereum prepares its next upgrade",
			Summary: "The Ethereum network plans scalability improvements to cut fees",
			Date:    "2024-01-14T15:45:00Z",
			Source:  "ETH Today",
		},
		{
			ID:      "3",
			Title:   "Crypto regulation in Europe",
			Summary: "The EU finalizes the MiCA regulatory framework for crypto assets",
			Date:    "2024-01-13T09:15:00Z",
			Source:  "Regulatory Watch",
		},
	}
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
