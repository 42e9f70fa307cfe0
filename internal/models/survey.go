package models

import "fmt"

// Gender is the gender at birth reported in the survey.
type Gender string

const (
	GenderFemale Gender = "female"
	GenderMale   Gender = "male"
)

// DietType follows the order of the survey drop-down, starting at 1.
type DietType int

const (
	DietHighProtein DietType = 1
	DietLowCarb     DietType = 2
	DietVegetarian  DietType = 3
	DietWestern     DietType = 4
	DietVegan       DietType = 5
	DietBalanced    DietType = 6
)

var dietLabels = map[DietType]string{
	DietHighProtein: "High Protein",
	DietLowCarb:     "Low Carb",
	DietVegetarian:  "Vegetarian",
	DietWestern:     "Western Diet",
	DietVegan:       "Vegan",
	DietBalanced:    "Balanced Diet",
}

func (d DietType) String() string {
	if l, ok := dietLabels[d]; ok {
		return l
	}
	return fmt.Sprintf("DietType(%d)", int(d))
}

// Bucket labels shown by the survey form, index = bucket - 1.
var (
	AgeGroupLabels          = []string{"18 - 24", "25 - 34", "35 - 44", "45 - 54", "55 - 64", "65+"}
	SleepHoursLabels        = []string{"Less than 4", "4 - 5", "6 - 7", "7 - 8", "More than 8"}
	ExerciseFrequencyLabels = []string{"Never", "1 - 2 times a week", "3 - 5 times a week", "6 - 7 times a week"}
)

// FamilyHistory flags add to the score independently.
type FamilyHistory struct {
	HeartDisease      bool `json:"heart_disease"`
	Diabetes          bool `json:"diabetes"`
	HighCholesterol   bool `json:"high_cholesterol"`
	HighBloodPressure bool `json:"high_blood_pressure"`
}

// SurveyAnswers is one completed lifestyle survey. Bucketed fields are 1-based.
type SurveyAnswers struct {
	AgeGroup          int           `json:"age_group"`          // 1..6
	Gender            Gender        `json:"gender"`             // female | male
	SleepHours        int           `json:"sleep_hours"`        // 1..5
	ExerciseFrequency int           `json:"exercise_frequency"` // 1..4
	DietType          DietType      `json:"diet_type"`          // 1..6
	Smoker            bool          `json:"smoker"`
	FamilyHistory     FamilyHistory `json:"family_history"`
}

// Validate rejects any bucket outside its enumerated domain.
func (a SurveyAnswers) Validate() error {
	if err := checkBucket("age_group", a.AgeGroup, len(AgeGroupLabels)); err != nil {
		return err
	}
	if a.Gender != GenderFemale && a.Gender != GenderMale {
		return NewValidationError("gender", fmt.Sprintf("must be %q or %q, got %q", GenderFemale, GenderMale, a.Gender))
	}
	if err := checkBucket("sleep_hours", a.SleepHours, len(SleepHoursLabels)); err != nil {
		return err
	}
	if err := checkBucket("exercise_frequency", a.ExerciseFrequency, len(ExerciseFrequencyLabels)); err != nil {
		return err
	}
	if _, ok := dietLabels[a.DietType]; !ok {
		return NewValidationError("diet_type", fmt.Sprintf("must be between 1 and %d, got %d", len(dietLabels), int(a.DietType)))
	}
	return nil
}

func checkBucket(field string, v, max int) error {
	if v < 1 || v > max {
		return NewValidationError(field, fmt.Sprintf("must be between 1 and %d, got %d", max, v))
	}
	return nil
}
