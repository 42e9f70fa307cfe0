package simulator

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/OlaWak/heartpi/internal/models"
)

// Source yields uniformly distributed values in [0, 1).
type Source interface {
	Float64() float64
}

// Range is a closed interval a reading is drawn from.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

func (r Range) Contains(v float64) bool { return v >= r.Min && v <= r.Max }

// Profile holds the per-field ranges of one risk tier.
type Profile struct {
	HeartRate   Range `json:"heart_rate"`
	SystolicBP  Range `json:"systolic_bp"`
	DiastolicBP Range `json:"diastolic_bp"`
	Cholesterol Range `json:"cholesterol"`
	ECG         Range `json:"ecg"`
}

var profiles = map[models.RiskTier]Profile{
	models.TierLow: {
		HeartRate:   Range{60, 80},
		SystolicBP:  Range{110, 120},
		DiastolicBP: Range{70, 80},
		Cholesterol: Range{150, 200},
		ECG:         Range{0.05, 0.15},
	},
	models.TierModerate: {
		HeartRate:   Range{80, 95},
		SystolicBP:  Range{120, 135},
		DiastolicBP: Range{80, 90},
		Cholesterol: Range{200, 240},
		ECG:         Range{0.02, 0.18},
	},
	models.TierHigh: {
		HeartRate:   Range{95, 120},
		SystolicBP:  Range{135, 160},
		DiastolicBP: Range{90, 110},
		Cholesterol: Range{240, 300},
		ECG:         Range{-0.1, 0.3},
	},
}

// ProfileFor returns the reading ranges of a tier.
func ProfileFor(tier models.RiskTier) (Profile, error) {
	p, ok := profiles[tier]
	if !ok {
		return Profile{}, fmt.Errorf("no reading profile for tier %v", tier)
	}
	return p, nil
}

// Simulator draws tier-consistent readings. Safe for concurrent use.
type Simulator struct {
	mu  sync.Mutex
	src Source
}

// New wraps src. A nil src falls back to NewEntropySource().
func New(src Source) *Simulator {
	if src == nil {
		src = NewEntropySource()
	}
	return &Simulator{src: src}
}

// NewEntropySource returns a PCG generator seeded from crypto/rand.
func NewEntropySource() *rand.Rand {
	var seed [16]byte
	if _, err := crand.Read(seed[:]); err != nil {
		// crypto/rand does not fail on supported platforms
		panic(fmt.Sprintf("simulator: read entropy: %v", err))
	}
	return rand.New(rand.NewPCG(
		binary.LittleEndian.Uint64(seed[:8]),
		binary.LittleEndian.Uint64(seed[8:]),
	))
}

// NewSeededSource returns a reproducible generator for tests and replays.
func NewSeededSource(seed1, seed2 uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed1, seed2))
}

// Simulate samples each field independently from the tier's ranges.
// Unknown tiers are simulated as High.
func (s *Simulator) Simulate(tier models.RiskTier) models.Readings {
	p, ok := profiles[tier]
	if !ok {
		p = profiles[models.TierHigh]
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return models.Readings{
		HeartRate:   s.uniform(p.HeartRate),
		SystolicBP:  s.uniform(p.SystolicBP),
		DiastolicBP: s.uniform(p.DiastolicBP),
		Cholesterol: s.uniform(p.Cholesterol),
		ECG:         s.uniform(p.ECG),
	}
}

// Around draws uniformly from [center-spread, center+spread].
func (s *Simulator) Around(center, spread float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uniform(Range{center - spread, center + spread})
}

func (s *Simulator) uniform(r Range) float64 {
	return r.Min + (r.Max-r.Min)*s.src.Float64()
}
