// Package recommend turns a maturity and health-risk rating into advice.
package recommend

// Maturity ratings returned by the scoring API.
const (
	Mature       = "Mature"
	Developing   = "Developing"
	Experimental = "Experimental"
	Stale        = "Stale"
	Legacy       = "Legacy"
	Placeholder  = "Placeholder"
)

// Health-risk ratings returned by the scoring API.
const (
	Healthy       = "Healthy"
	CautionNeeded = "Caution Needed"
	ModerateRisk  = "Moderate Risk"
	HighRisk      = "High Risk"
)

// Unknown is used for a rating the API did not return.
const Unknown = "Unknown"

// Rule pairs a predicate with the recommendation it produces.
type Rule struct {
	Name  string
	Match func(maturity, health string) bool
	Text  string
}

// Rules is evaluated in order and the first match wins. The exact
// maturity/health pairs come before the broad risk rules, so Mature+High Risk
// stops at "mature-high-risk" while Developing+High Risk reaches "significant-risk".
var Rules = []Rule{
	{
		Name:  "mature-healthy",
		Match: pair(Mature, Healthy),
		Text:  "This package is mature and likely to enhance stability with minimal risks.",
	},
	{
		Name:  "mature-moderate-risk",
		Match: pair(Mature, ModerateRisk),
		Text:  "This package is stable but may introduce some moderate risks.",
	},
	{
		Name:  "mature-high-risk",
		Match: pair(Mature, HighRisk),
		Text:  "This package is stable but introduces high risks.",
	},
	{
		Name:  "developing-healthy",
		Match: pair(Developing, Healthy),
		Text:  "This package is in development but poses low risks.",
	},
	{
		Name: "significant-risk",
		Match: func(maturity, health string) bool {
			return maturity == Experimental || health == HighRisk
		},
		Text: "This package may pose significant risks. Proceed with caution.",
	},
	{
		Name: "legacy",
		Match: func(maturity, _ string) bool {
			return maturity == Legacy
		},
		Text: "This package is legacy. Consider alternatives.",
	},
	Fallback,
}

// Fallback matches anything and always closes the table.
var Fallback = Rule{
	Name:  "insufficient-data",
	Match: func(string, string) bool { return true },
	Text:  "Insufficient data to make an informed recommendation.",
}

func pair(maturity, health string) func(string, string) bool {
	return func(m, h string) bool {
		return m == maturity && h == health
	}
}

// Match returns the first rule that applies. It never fails: the table ends
// with Fallback.
func Match(maturity, health string) Rule {
	for _, rule := range Rules {
		if rule.Match(maturity, health) {
			return rule
		}
	}
	return Fallback
}

// For returns the recommendation text for a rating pair.
func For(maturity, health string) string {
	return Match(maturity, health).Text
}
