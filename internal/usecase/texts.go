package usecase

import (
	"fmt"
	"strings"

	"scholarship-agent/internal/domain"
)

type texts struct {
	welcome       string
	askCourse     string
	askNeed       string
	unavailable   string
	apology       string
	localIntro    string
	localNoMatch  string
	listingHeader string
}

var catalogTexts = map[string]texts{
	"en": {
		welcome:       "Namaste! I'm SamartAI. Tell me your category, course and family income and I'll find scholarships you can apply for.",
		askCourse:     "Which course are you studying or planning to join? For example BTech, Degree, MBBS or Intermediate.",
		askNeed:       "I couldn't find a scheme for that yet. Are you looking for help with fees, hostel, or study abroad?",
		unavailable:   "AI is temporarily unavailable, so here are matching schemes from our catalog.",
		apology:       "Sorry, I couldn't answer that right now. Please try again in a moment.",
		localIntro:    "Here are schemes from our catalog that match what you told me.",
		localNoMatch:  "I couldn't find a matching scheme in our catalog. Tell me your category, course and family income and I'll look again.",
		listingHeader: "Schemes:",
	},
	"te": {
		welcome:       "నమస్తే! నేను SamartAI. మీ కేటగిరీ, కోర్సు, కుటుంబ ఆదాయం చెప్పండి. మీకు సరిపోయే స్కాలర్‌షిప్‌లు వెతుకుతాను.",
		askCourse:     "మీరు ఏ కోర్సు చదువుతున్నారు? ఉదాహరణకు BTech, Degree, MBBS లేదా Intermediate.",
		askNeed:       "దీనికి సరిపోయే పథకం దొరకలేదు. మీకు ఫీజు, హాస్టల్ లేదా విదేశీ చదువు కోసం సహాయం కావాలా?",
		unavailable:   "AI తాత్కాలికంగా అందుబాటులో లేదు. మా జాబితాలోని సరిపోయే పథకాలు ఇవి.",
		apology:       "క్షమించండి, ఇప్పుడు సమాధానం ఇవ్వలేకపోయాను. కొద్దిసేపటి తర్వాత మళ్ళీ ప్రయత్నించండి.",
		localIntro:    "మీరు చెప్పిన వివరాలకు సరిపోయే పథకాలు ఇవి.",
		localNoMatch:  "మా జాబితాలో సరిపోయే పథకం దొరకలేదు. మీ కేటగిరీ, కోర్సు, కుటుంబ ఆదాయం చెప్పండి.",
		listingHeader: "పథకాలు:",
	},
	"hi": {
		welcome:       "नमस्ते! मैं SamartAI हूँ। अपनी श्रेणी, कोर्स और पारिवारिक आय बताइए, मैं आपके लिए छात्रवृत्तियाँ खोजूँगा।",
		askCourse:     "आप कौन सा कोर्स पढ़ रहे हैं? जैसे BTech, Degree, MBBS या Intermediate.",
		askNeed:       "इसके लिए कोई योजना नहीं मिली। क्या आपको फीस, हॉस्टल या विदेश में पढ़ाई के लिए मदद चाहिए?",
		unavailable:   "AI अस्थायी रूप से उपलब्ध नहीं है, इसलिए हमारी सूची से मिलती योजनाएँ ये हैं।",
		apology:       "माफ़ कीजिए, अभी जवाब नहीं दे पाया। कृपया थोड़ी देर बाद फिर कोशिश करें।",
		localIntro:    "आपकी जानकारी से मिलती योजनाएँ ये हैं।",
		localNoMatch:  "हमारी सूची में कोई मिलती योजना नहीं मिली। अपनी श्रेणी, कोर्स और पारिवारिक आय बताइए।",
		listingHeader: "योजनाएँ:",
	},
}

func textsFor(language string) texts {
	if t, ok := catalogTexts[language]; ok {
		return t
	}
	return catalogTexts["en"]
}

// listRecords renders up to limit records as a numbered list of name and
// application link.
func listRecords(header string, records []domain.ScholarshipRecord, limit int) string {
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	var b strings.Builder
	b.WriteString(header)
	for i, r := range records {
		b.WriteString(fmt.Sprintf("\n%d. %s", i+1, r.Name))
		if r.ApplicationLink != "" {
			b.WriteString(": " + r.ApplicationLink)
		}
	}
	return b.String()
}

func groundingSources(records []domain.ScholarshipRecord, limit int) []domain.GroundingSource {
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	out := make([]domain.GroundingSource, 0, len(records))
	for _, r := range records {
		if r.ApplicationLink == "" {
			continue
		}
		out = append(out, domain.GroundingSource{Type: "web", URI: r.ApplicationLink, Title: r.Name})
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
