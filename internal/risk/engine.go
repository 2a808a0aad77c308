// Package risk turns an application's verification and screening outcomes
// into a numeric risk score and category. The engine is pure: same input,
// same assessment, no I/O.
package risk

// Category buckets a score for the approval decision.
type Category string

const (
	CategoryLow    Category = "low"
	CategoryMedium Category = "medium"
	CategoryHigh   Category = "high"
)

// Input is the factor snapshot an assessment runs over.
type Input struct {
	IdentityVerified  bool
	BiometricVerified bool
	SanctionsCleared  bool
	PEPCleared        bool
	// Age in whole years at assessment time.
	Age int
	// AvgDocumentConfidence is the mean OCR confidence over the uploaded
	// documents; zero when none were processed.
	AvgDocumentConfidence float64
}

// Assessment is the scored outcome.
type Assessment struct {
	Score    int
	Category Category
}

// Config carries the penalty weights and category boundaries.
type Config struct {
	IdentityPenalty  int
	BiometricPenalty int
	SanctionsPenalty int
	PEPPenalty       int

	MinorAge      int
	MinorPenalty  int
	SeniorAge     int
	SeniorPenalty int

	WeakDocumentConfidence     float64
	WeakDocumentPenalty        int
	CriticalDocumentConfidence float64
	CriticalDocumentPenalty    int

	LowMax    int
	MediumMax int
}

func DefaultConfig() Config {
	return Config{
		IdentityPenalty:  25,
		BiometricPenalty: 20,
		SanctionsPenalty: 30,
		PEPPenalty:       25,

		MinorAge:      18,
		MinorPenalty:  50,
		SeniorAge:     65,
		SeniorPenalty: 10,

		WeakDocumentConfidence:     70,
		WeakDocumentPenalty:        15,
		CriticalDocumentConfidence: 50,
		CriticalDocumentPenalty:    25,

		LowMax:    30,
		MediumMax: 70,
	}
}

// Engine scores applications.
type Engine struct {
	cfg Config
}

func NewEngine() *Engine {
	return &Engine{cfg: DefaultConfig()}
}

func NewEngineWithConfig(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Assess accumulates penalties for each unresolved factor and clamps the
// total to [0, 100]. The critical document penalty stacks on top of the
// weak one, so unprocessed documents (confidence zero) cost both.
func (e *Engine) Assess(in Input) Assessment {
	score := 0
	if !in.IdentityVerified {
		score += e.cfg.IdentityPenalty
	}
	if !in.BiometricVerified {
		score += e.cfg.BiometricPenalty
	}
	if !in.SanctionsCleared {
		score += e.cfg.SanctionsPenalty
	}
	if !in.PEPCleared {
		score += e.cfg.PEPPenalty
	}
	if in.Age < e.cfg.MinorAge {
		score += e.cfg.MinorPenalty
	} else if in.Age > e.cfg.SeniorAge {
		score += e.cfg.SeniorPenalty
	}
	if in.AvgDocumentConfidence < e.cfg.WeakDocumentConfidence {
		score += e.cfg.WeakDocumentPenalty
		if in.AvgDocumentConfidence < e.cfg.CriticalDocumentConfidence {
			score += e.cfg.CriticalDocumentPenalty
		}
	}

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return Assessment{Score: score, Category: e.categorize(score)}
}

func (e *Engine) categorize(score int) Category {
	switch {
	case score <= e.cfg.LowMax:
		return CategoryLow
	case score <= e.cfg.MediumMax:
		return CategoryMedium
	default:
		return CategoryHigh
	}
}
