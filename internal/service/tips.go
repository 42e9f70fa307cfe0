package service

import "github.com/OlaWak/heartpi/internal/models"

// Tip is one piece of advice shown after an assessment.
type Tip struct {
	Category    string `json:"category,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Urgent      bool   `json:"urgent,omitempty"`
}

var tipsByTier = map[models.RiskTier][]Tip{
	models.TierHigh: {
		{Title: "High Risk Detected: Please consult your doctor immediately.", Description: "Your heart may be under strain. Seeking medical advice is a crucial step.", Urgent: true},
		{Category: "Activity", Title: "Engage in at least 30 minutes of physical activity daily.", Description: "This boosts circulation and strengthens your heart muscle."},
		{Category: "Nutrition", Title: "Eat more vegetables, lean meats, and low-sodium meals.", Description: "A nutrient-rich diet helps reduce cholesterol and blood pressure."},
		{Category: "Nutrition", Title: "Avoid tobacco and smoking completely.", Description: "Smoking drastically increases the risk of heart attacks and strokes."},
		{Category: "Monitoring", Title: "Track blood pressure, weight, and cholesterol regularly.", Description: "Monitoring helps catch issues early and stay on top of your health."},
		{Category: "Sleep & Stress", Title: "Get at least 7 hours of quality sleep.", Description: "Sleep helps your body recover and maintain healthy heart rhythms."},
		{Category: "Sleep & Stress", Title: "Manage stress through deep breathing, prayer, or journaling.", Description: "Stress increases heart rate and blood pressure, so managing it is key."},
	},
	models.TierModerate: {
		{Category: "Activity", Title: "150 mins/week of moderate activity or walking.", Description: "Keeping your body moving prevents many heart-related conditions."},
		{Category: "Nutrition", Title: "Cut back on sugar, salt, and saturated fats.", Description: "Small reductions in salt or fat can lower blood pressure significantly."},
		{Category: "Sleep & Stress", Title: "Stick to a regular sleep schedule.", Description: "Consistency in sleep promotes heart recovery and reduces stress."},
		{Category: "Sleep & Stress", Title: "Incorporate light mindfulness and relaxation into your day.", Description: "Simple habits like breathing or meditation can reduce your risk."},
		{Category: "Monitoring", Title: "Go for routine checkups on blood pressure and cholesterol.", Description: "You can't manage what you don't measure. Stay informed!"},
	},
	models.TierLow: {
		{Category: "Nutrition", Title: "You're doing well! Keep eating balanced meals daily.", Description: "A variety of whole foods keeps your heart nourished and happy."},
		{Category: "Nutrition", Title: "Stick to fruits, vegetables, and whole grains.", Description: "These foods are high in fiber and keep your arteries clean."},
		{Category: "Activity", Title: "Stay active 30+ mins daily with light to moderate workouts.", Description: "Regular movement helps reduce the risk of future complications."},
		{Category: "Sleep & Stress", Title: "Keep your sleep consistent and drink enough water.", Description: "Hydration and sleep support overall wellness and mental clarity."},
		{Category: "Monitoring", Title: "Get occasional health screenings even if you feel well.", Description: "Preventive care helps catch issues before they become serious."},
	},
}

// TipsFor returns a copy of the advice list for tier; unknown tiers get the Low list.
func TipsFor(tier models.RiskTier) []Tip {
	tips, ok := tipsByTier[tier]
	if !ok {
		tips = tipsByTier[models.TierLow]
	}
	return append([]Tip(nil), tips...)
}
