package trustscore

// Question is a single questionnaire item. Likert items are answered on a
// 1–5 agreement scale; the self-rating item on a 1–4 scale. Reverse items
// are flipped before scoring so that higher always means more creditworthy.
type Question struct {
	Text       string
	Reverse    bool
	SelfRating bool
}

// Section groups questions under a named theme with a weight in the
// composite score. Weights sum to 1.0.
type Section struct {
	Name      string
	Weight    float64
	Questions []int
}

// Questionnaire holds the full item bank. The first VisibleCount questions
// are presented to the user; the remainder are hidden validity items used
// for consistency checking.
const VisibleCount = 23

// selfRatingIndex is the one question answered on the 1–4 rating scale.
const selfRatingIndex = 20

var questions = []Question{
	// Financial Behavior
	{Text: "I consistently pay my bills and debts on time."},
	{Text: "I regularly save money for unexpected expenses."},
	{Text: "I keep a detailed record of my financial transactions."},
	{Text: "When facing financial difficulties, I actively seek solutions rather than avoid the problem."},

	// Risk Tolerance
	{Text: "I am comfortable taking calculated risks when it comes to managing my finances."},
	{Text: "Before making a major financial decision, I carefully weigh the pros and cons."},
	{Text: "I prefer to avoid financial situations where outcomes are uncertain.", Reverse: true},
	{Text: "I often take advantage of financial opportunities, even if they involve some risk."},

	// Responsibility & Integrity
	{Text: "I always tell the truth, even when it might be inconvenient for me."},
	{Text: "Honesty is one of the most important traits a person can have."},
	{Text: "I have a strong history of managing my money responsibly."},
	{Text: "I always consider how my financial decisions might affect others around me."},

	// Social Trust
	{Text: "I actively participate in community or social groups."},
	{Text: "I trust that people in my community will act in honest and reliable ways."},
	{Text: "I often recommend people based on their trustworthiness."},
	{Text: "I rely on my social network for advice during financial challenges."},

	// Stress Management
	{Text: "I remain calm and composed when facing financial stress."},
	{Text: "I recover quickly from financial setbacks."},
	{Text: "I have effective strategies in place to manage unexpected financial challenges."},
	{Text: "I feel confident in managing my financial responsibilities under pressure."},

	// Self-Assessment
	{Text: "I would rate my ability to manage credit as:", SelfRating: true},
	{Text: "I actively track and review my credit transactions."},
	{Text: "I understand the long-term consequences of failing to meet my financial obligations."},

	// Hidden validity items
	{Text: "I believe that lying is never acceptable, even if it might benefit me."},
	{Text: "I sometimes exaggerate my positive qualities to impress others.", Reverse: true},
	{Text: "I am willing to say things that might not be entirely true if it makes me seem more trustworthy.", Reverse: true},
	{Text: "I often consider how my actions impact those around me."},
	{Text: "I am comfortable taking calculated risks in financial matters."},
	{Text: "I believe that I am a perfect person who never makes mistakes.", Reverse: true},
	{Text: "I always perform at my best in every situation, no matter what.", Reverse: true},
}

var sections = []Section{
	{Name: "Financial Behavior", Weight: 0.20, Questions: []int{0, 1, 2, 3}},
	{Name: "Risk Tolerance", Weight: 0.20, Questions: []int{4, 5, 6, 7}},
	{Name: "Responsibility & Integrity", Weight: 0.20, Questions: []int{8, 9, 10, 11}},
	{Name: "Social Trust", Weight: 0.15, Questions: []int{12, 13, 14, 15}},
	{Name: "Stress Management", Weight: 0.15, Questions: []int{16, 17, 18, 19}},
	{Name: "Self-Assessment", Weight: 0.10, Questions: []int{20, 21, 22}},
}

// consistencyPairs map a visible item to the hidden validity item asking
// essentially the same thing. Large disagreement within a pair raises the
// inconsistency index.
var consistencyPairs = [][2]int{
	{8, 23},  // telling the truth vs lying never acceptable
	{11, 26}, // financial decisions affect others vs actions impact others
	{4, 27},  // calculated risks vs calculated financial risks
}

// SelfRatingValue maps the self-rating answer labels to their 1–4 scores.
// Unknown labels map to 0 (unanswered).
func SelfRatingValue(label string) int {
	switch label {
	case "Poor":
		return 1
	case "Average":
		return 2
	case "Good":
		return 3
	case "Excellent":
		return 4
	default:
		return 0
	}
}

// VisibleQuestions returns the questions presented to the user, in order.
func VisibleQuestions() []Question {
	out := make([]Question, VisibleCount)
	copy(out, questions[:VisibleCount])
	return out
}

// Sections returns the questionnaire sections with their weights.
func Sections() []Section {
	out := make([]Section, len(sections))
	copy(out, sections)
	return out
}
