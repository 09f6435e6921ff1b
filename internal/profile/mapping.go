// Package profile stores investor onboarding answers and derives the
// numeric planning inputs (income, savings, risk appetite, horizon) from
// the free-form answer text.
package profile

import "strings"

// Profile is one user's onboarding answers plus the derived plan inputs.
type Profile struct {
	UserID string `json:"user_id"`

	IncomeAnswer   string `json:"income_answer"`
	SavingAnswer   string `json:"saving_answer"`
	RiskAnswer     string `json:"risk_answer"`
	DurationAnswer string `json:"duration_answer"`

	Income        float64 `json:"income"`
	Saving        float64 `json:"saving"`
	RiskAppetite  string  `json:"risk_appetite"`
	DurationYears int     `json:"duration_years"`
}

// Derive fills the numeric fields from the answer text. Answers are
// bracket strings chosen from the onboarding questionnaire; matching is by
// substring so minor wording drift keeps working. An empty answer falls to
// the questionnaire default.
func (p *Profile) Derive() {
	p.Income = incomeMidpoint(p.IncomeAnswer)
	p.Saving = savingMidpoint(p.SavingAnswer)
	p.RiskAppetite = riskLevel(p.RiskAnswer)
	p.DurationYears = durationYears(p.DurationAnswer)
}

// incomeMidpoint maps a monthly income bracket to its midpoint in rupees.
// The widest bracket must be matched before the bare "₹1,00,000" it
// contains.
func incomeMidpoint(answer string) float64 {
	switch {
	case strings.Contains(answer, "₹10,000 - ₹25,000"):
		return 20000
	case strings.Contains(answer, "₹25,000 - ₹50,000"):
		return 37500
	case strings.Contains(answer, "₹50,000 - ₹1,00,000"):
		return 75000
	case strings.Contains(answer, "₹1,00,000"):
		return 150000
	default:
		return 50000
	}
}

func savingMidpoint(answer string) float64 {
	if answer == "" {
		return 10000
	}
	switch {
	case strings.Contains(answer, "₹5,000 - ₹15,000"):
		return 10000
	case strings.Contains(answer, "₹15,000 - ₹50,000"):
		return 32500
	case strings.Contains(answer, "₹50,000+"):
		return 60000
	default:
		return 5000
	}
}

func riskLevel(answer string) string {
	switch {
	case strings.Contains(answer, "avoid risk"):
		return "Low"
	case strings.Contains(answer, "little risk"):
		return "Moderately Low"
	case strings.Contains(answer, "moderate risk"):
		return "Moderate"
	case strings.Contains(answer, "high risks"):
		return "High"
	default:
		return "Moderate"
	}
}

func durationYears(answer string) int {
	if answer == "" {
		return 10
	}
	switch {
	case strings.Contains(answer, "1-3"):
		return 2
	case strings.Contains(answer, "3-7"):
		return 5
	case strings.Contains(answer, "7+"):
		return 10
	default:
		return 1
	}
}
