package specialist

import (
	contractx "github.com/saborai/saborai/agent/contract"
	promptx "github.com/saborai/saborai/agent/prompt"
)

// Variant temperatures follow the original tuning: nutrition answers must be
// deterministic, quality scoring nearly so, recommendations a little looser.
const (
	nutritionTemperature      float32 = 0
	recommendationTemperature float32 = 0.2
	qualityTemperature        float32 = 0.1
)

type registryImpl struct {
	byTag map[contractx.AgentType]contractx.Specialist
	order []contractx.AgentType
}

var _ contractx.Registry = (*registryImpl)(nil)

func (r *registryImpl) Get(tag contractx.AgentType) (contractx.Specialist, bool) {
	s, ok := r.byTag[tag]
	return s, ok
}

func (r *registryImpl) Tags() []contractx.AgentType {
	out := make([]contractx.AgentType, len(r.order))
	copy(out, r.order)
	return out
}

// NewRegistry builds the three specialist variants over one shared reasoner.
func NewRegistry(reasoner contractx.Reasoner) (contractx.Registry, error) {
	prompts := promptx.LoadSet()

	nutrition, err := newSpecialist(contractx.AgentTypeNutrition, reasoner, prompts.Nutrition, nutritionTemperature, nil)
	if err != nil {
		return nil, err
	}
	recommendation, err := newSpecialist(contractx.AgentTypeRecommendation, reasoner, prompts.Recommendation, recommendationTemperature, budgetGuard)
	if err != nil {
		return nil, err
	}
	quality, err := newSpecialist(contractx.AgentTypeQuality, reasoner, prompts.Quality, qualityTemperature, nil)
	if err != nil {
		return nil, err
	}

	order := contractx.KnownAgentTypes()
	return &registryImpl{
		byTag: map[contractx.AgentType]contractx.Specialist{
			contractx.AgentTypeNutrition:      nutrition,
			contractx.AgentTypeRecommendation: recommendation,
			contractx.AgentTypeQuality:        quality,
		},
		order: order,
	}, nil
}
