package risk

import (
	"github.com/OlaWak/heartpi/internal/models"
)

// Score bounds reachable by in-domain answers.
const (
	MinScore = 6
	MaxScore = 25
)

// Evaluation is the outcome of scoring one survey.
type Evaluation struct {
	Score int             `json:"score"`
	Tier  models.RiskTier `json:"tier"`
}

// Evaluate validates the answers, then scores and tiers them.
func Evaluate(a models.SurveyAnswers) (Evaluation, error) {
	if err := a.Validate(); err != nil {
		return Evaluation{}, err
	}
	score := Score(a)
	return Evaluation{Score: score, Tier: TierFor(score)}, nil
}

// Score sums the seven independent weight contributions.
// Callers must validate the answers first; an unknown diet contributes 0.
func Score(a models.SurveyAnswers) int {
	return ageWeight(a.AgeGroup) +
		genderWeight(a.Gender, a.AgeGroup) +
		sleepWeight(a.SleepHours) +
		exerciseWeight(a.ExerciseFrequency) +
		familyWeight(a.FamilyHistory) +
		dietWeight(a.DietType) +
		smokingWeight(a.Smoker)
}

// TierFor maps a score onto Low (<10), Moderate (<18) or High.
func TierFor(score int) models.RiskTier {
	switch {
	case score >= models.HighThreshold:
		return models.TierHigh
	case score >= models.ModerateThreshold:
		return models.TierModerate
	default:
		return models.TierLow
	}
}

func ageWeight(age int) int {
	switch age {
	case 1, 2:
		return 1
	case 3, 4:
		return 2
	default:
		return 3
	}
}

func genderWeight(g models.Gender, age int) int {
	if age > 3 {
		return 3
	}
	if g == models.GenderMale {
		return 2
	}
	return 1
}

// sleep: <4h and >8h are both penalised
func sleepWeight(bucket int) int {
	switch bucket {
	case 1, 5:
		return 3
	case 2:
		return 2
	default:
		return 1
	}
}

func exerciseWeight(bucket int) int {
	switch bucket {
	case 1:
		return 3
	case 2:
		return 2
	default:
		return 1
	}
}

func familyWeight(h models.FamilyHistory) int {
	w := 0
	if h.HeartDisease {
		w += 2
	}
	if h.Diabetes {
		w += 1
	}
	if h.HighCholesterol {
		w += 2
	}
	if h.HighBloodPressure {
		w += 2
	}
	return w
}

func dietWeight(d models.DietType) int {
	switch d {
	case models.DietWestern:
		return 3
	case models.DietVegan:
		return 2
	case models.DietHighProtein, models.DietLowCarb, models.DietVegetarian, models.DietBalanced:
		return 1
	default:
		return 0
	}
}

func smokingWeight(smoker bool) int {
	if smoker {
		return 3
	}
	return 1
}
