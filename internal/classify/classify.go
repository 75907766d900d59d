// Package classify isolates butterfly image classification behind a
// capability interface so a real model can be substituted without
// touching calling code. The bundled implementation simulates inference.
package classify

import "math/rand"

// Analysis selects which models to run.
type Analysis string

const (
	AnalysisComplete  Analysis = "complete"
	AnalysisSpecies   Analysis = "species"
	AnalysisLifecycle Analysis = "lifecycle"
	AnalysisDisease   Analysis = "disease"
	AnalysisDefect    Analysis = "defect"
)

// Prediction is one model's labeled result with confidence in [0,1].
type Prediction struct {
	Class      string  `json:"predicted_class"`
	Confidence float64 `json:"confidence"`
}

// Outcome holds the predictions for whichever analyses ran.
type Outcome struct {
	Species   *Prediction `json:"species,omitempty"`
	Lifecycle *Prediction `json:"lifecycle,omitempty"`
	Disease   *Prediction `json:"disease,omitempty"`
	Defect    *Prediction `json:"defect,omitempty"`
}

// Classifier predicts labels for a butterfly image.
type Classifier interface {
	Predict(image []byte, analysis Analysis) (*Outcome, error)
}

// Label sets the simulated models pick from.
var (
	SpeciesLabels = []string{
		"Butterfly-Clippers", "Butterfly-Common Jay", "Butterfly-Common Lime",
		"Butterfly-Common Mime", "Butterfly-Common Mormon", "Butterfly-Emerald Swallowtail",
		"Butterfly-Gray Glassy Tiger", "Butterfly-Great Eggfly", "Butterfly-Great Yellow Mormon",
		"Butterfly-Golden Birdwing", "Butterfly-Paper Kite", "Butterfly-Pink Rose",
		"Butterfly-Plain Tiger", "Butterfly-Red Lacewing", "Butterfly-Scarlet Mormon",
		"Butterfly-Tailed Jay", "Moth-Atlas", "Moth-Giant Silk",
	}
	LifecycleLabels = []string{"Egg", "Larva", "Pupa", "Adult"}
	DiseaseLabels   = []string{"Healthy", "NPV Infection", "Bacterial Infection", "Fungal Infection", "Parasitized"}
	DefectLabels    = []string{"No Defect", "Deformed Wings", "Discoloration", "Stunted Growth", "Shell Damage"}
)

// Simulated returns random labels within the confidence bands the real
// models report. Not a model; the substitution point for one.
type Simulated struct {
	rng *rand.Rand
}

// NewSimulated builds a simulated classifier from a random seed.
func NewSimulated(seed int64) *Simulated {
	return &Simulated{rng: rand.New(rand.NewSource(seed))}
}

func (s *Simulated) pick(labels []string, lo, hi float64) *Prediction {
	return &Prediction{
		Class:      labels[s.rng.Intn(len(labels))],
		Confidence: lo + s.rng.Float64()*(hi-lo),
	}
}

// Predict runs whichever simulated models the analysis selects.
func (s *Simulated) Predict(_ []byte, analysis Analysis) (*Outcome, error) {
	out := &Outcome{}
	if analysis == AnalysisComplete || analysis == AnalysisSpecies {
		out.Species = s.pick(SpeciesLabels, 0.75, 0.98)
	}
	if analysis == AnalysisComplete || analysis == AnalysisLifecycle {
		out.Lifecycle = s.pick(LifecycleLabels, 0.80, 0.95)
	}
	if analysis == AnalysisComplete || analysis == AnalysisDisease {
		out.Disease = s.pick(DiseaseLabels, 0.70, 0.92)
	}
	if analysis == AnalysisComplete || analysis == AnalysisDefect {
		out.Defect = s.pick(DefectLabels, 0.75, 0.90)
	}
	return out, nil
}
