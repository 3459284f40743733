package pricefeed

import (
	"context"
	"fmt"
	"math/big"
	"sync"
)

// Mock constants used when deploying to a development chain.
const (
	MockDecimals      = 8
	MockInitialAnswer = 200_000_000_000

	mockVersion     = 0
	mockDescription = "v0.6/tests/MockV3Aggregator.sol"
)

// round holds the recorded values for a single round.
type round struct {
	answer    *big.Int
	updatedAt uint64
	startedAt uint64
}

// Mock is an aggregator whose answer is set by an operator. It behaves like
// the MockV3Aggregator contract used on development chains.
type Mock struct {
	mu          sync.RWMutex
	decimals    uint8
	latestRound uint64
	rounds      map[uint64]round
}

// NewMock constructs a mock aggregator with the specified precision and
// records the initial answer as round 1.
func NewMock(decimals uint8, initialAnswer *big.Int, timestamp uint64) *Mock {
	m := Mock{
		decimals: decimals,
		rounds:   make(map[uint64]round),
	}

	m.UpdateAnswer(initialAnswer, timestamp)

	return &m
}

// UpdateAnswer records a new answer as the next round.
func (m *Mock) UpdateAnswer(answer *big.Int, timestamp uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.latestRound++
	m.rounds[m.latestRound] = round{
		answer:    copyInt(answer),
		updatedAt: timestamp,
		startedAt: timestamp,
	}
}

// UpdateRoundData replaces the data for the specified round and makes it
// the latest round.
func (m *Mock) UpdateRoundData(roundID uint64, answer *big.Int, timestamp uint64, startedAt uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.latestRound = roundID
	m.rounds[roundID] = round{
		answer:    copyInt(answer),
		updatedAt: timestamp,
		startedAt: startedAt,
	}
}

// Decimals implements the Provider interface.
func (m *Mock) Decimals(ctx context.Context) (uint8, error) {
	return m.decimals, nil
}

// LatestRoundData implements the Provider interface.
func (m *Mock) LatestRoundData(ctx context.Context) (RoundData, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.roundData(m.latestRound)
}

// GetRoundData returns the data recorded for the specified round.
func (m *Mock) GetRoundData(ctx context.Context, roundID uint64) (RoundData, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.roundData(roundID)
}

// LatestAnswer returns the answer of the latest round.
func (m *Mock) LatestAnswer() *big.Int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return copyInt(m.rounds[m.latestRound].answer)
}

// LatestRound returns the id of the latest round.
func (m *Mock) LatestRound() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.latestRound
}

// Version returns the aggregator version.
func (m *Mock) Version() uint64 {
	return mockVersion
}

// Description returns the aggregator description.
func (m *Mock) Description() string {
	return mockDescription
}

// =============================================================================

func (m *Mock) roundData(roundID uint64) (RoundData, error) {
	r, exists := m.rounds[roundID]
	if !exists {
		return RoundData{}, fmt.Errorf("round %d: %w", roundID, ErrRoundNotFound)
	}

	rd := RoundData{
		RoundID:         roundID,
		Answer:          copyInt(r.answer),
		StartedAt:       r.startedAt,
		UpdatedAt:       r.updatedAt,
		AnsweredInRound: roundID,
	}

	return rd, nil
}

func copyInt(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}
