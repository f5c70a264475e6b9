package ai

import (
	"fmt"
	"strings"

	"github.com/shiva/tripplanner/internal/model"
)

// locale bundles the translated fragments used to build a prompt.
type locale struct {
	styles       map[model.TravelStyle]string
	interests    map[string]string
	anyInterest  string
	join         func(items []string) string
	intro        string // destination, start, end, days, budget, currency, travelers, style, interests
	visaNote     string
	languageNote string
}

var locales = map[string]locale{
	"en": {
		styles: map[model.TravelStyle]string{
			model.StyleBudget:   "budget",
			model.StyleMidRange: "mid-range",
			model.StyleLuxury:   "luxury",
		},
		interests:   nil,
		anyInterest: "general sightseeing",
		join:        joinEnglish,
		intro: "Plan a trip to %s from %s to %s (%d days) with a total budget of %.2f %s " +
			"for %d traveler(s). Travel style: %s. Interests: %s.",
		visaNote:     "Travelers will need a visa for %s; mention visa lead time in localTips.",
		languageNote: "Write every human-readable string in English.",
	},
	"ko": {
		styles: map[model.TravelStyle]string{
			model.StyleBudget:   "저예산",
			model.StyleMidRange: "중간 수준",
			model.StyleLuxury:   "럭셔리",
		},
		interests: map[string]string{
			"culture": "문화", "food": "음식", "nature": "자연", "adventure": "모험",
			"shopping": "쇼핑", "nightlife": "나이트라이프", "history": "역사", "art": "예술",
			"beach": "해변", "relaxation": "휴식",
		},
		anyInterest: "일반 관광",
		join:        joinKorean,
		intro: "%s 여행을 %s부터 %s까지 (%d일) 계획해 주세요. 총 예산은 %.2f %s이며 " +
			"여행자는 %d명입니다. 여행 스타일: %s. 관심사: %s.",
		visaNote:     "%s 방문에는 비자가 필요합니다. localTips에 비자 준비 기간을 포함해 주세요.",
		languageNote: "사람이 읽는 모든 문자열은 한국어로 작성해 주세요.",
	},
	"ja": {
		styles: map[model.TravelStyle]string{
			model.StyleBudget:   "節約",
			model.StyleMidRange: "スタンダード",
			model.StyleLuxury:   "ラグジュアリー",
		},
		interests: map[string]string{
			"culture": "文化", "food": "グルメ", "nature": "自然", "adventure": "アドベンチャー",
			"shopping": "ショッピング", "nightlife": "ナイトライフ", "history": "歴史", "art": "アート",
			"beach": "ビーチ", "relaxation": "リラクゼーション",
		},
		anyInterest: "一般観光",
		join:        joinJapanese,
		intro: "%sへの旅行を%sから%sまで（%d日間）計画してください。総予算は%.2f %s、" +
			"旅行者は%d名です。旅行スタイル：%s。興味：%s。",
		visaNote:     "%sへの渡航にはビザが必要です。localTipsにビザ取得期間を含めてください。",
		languageNote: "人が読むすべての文字列を日本語で書いてください。",
	},
}

// joinEnglish joins with an Oxford comma: "A", "A and B", "A, B, and C".
func joinEnglish(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	default:
		return strings.Join(items[:len(items)-1], ", ") + ", and " + items[len(items)-1]
	}
}

// joinKorean: "A", "A 및 B", "A, B 및 C".
func joinKorean(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	default:
		return strings.Join(items[:len(items)-1], ", ") + " 및 " + items[len(items)-1]
	}
}

// joinJapanese: "A", "AとB", "A、B、C".
func joinJapanese(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + "と" + items[1]
	default:
		return strings.Join(items, "、")
	}
}

func localeFor(lang string) locale {
	if l, ok := locales[lang]; ok {
		return l
	}
	return locales[model.DefaultLanguage]
}

// JoinInterests renders the request's interests as a localized list.
func JoinInterests(lang string, interests []string) string {
	l := localeFor(lang)
	if len(interests) == 0 {
		return l.anyInterest
	}
	labels := make([]string, 0, len(interests))
	for _, in := range interests {
		if label, ok := l.interests[in]; ok {
			labels = append(labels, label)
		} else {
			labels = append(labels, in)
		}
	}
	return l.join(labels)
}

// StyleLabel returns the localized travel-style label.
func StyleLabel(lang string, style model.TravelStyle) string {
	if label, ok := localeFor(lang).styles[style]; ok {
		return label
	}
	return string(style)
}

// BuildPrompt renders the localized generation prompt.
func BuildPrompt(req model.PlanRequest, verdict model.DestinationVerdict, duration int, referenceCurrency string) string {
	l := localeFor(req.Language)

	var b strings.Builder
	fmt.Fprintf(&b, l.intro,
		req.Destination, req.StartDate, req.EndDate, duration,
		req.Budget, req.Currency, req.TravelerCount,
		StyleLabel(req.Language, req.TravelStyle),
		JoinInterests(req.Language, req.Interests),
	)
	b.WriteString("\n")
	if verdict.VisaRequired && verdict.Country != "" && verdict.Country != "Unknown" {
		fmt.Fprintf(&b, l.visaNote, verdict.Country)
		b.WriteString("\n")
	}
	b.WriteString(l.languageNote)
	b.WriteString("\n\n")

	fmt.Fprintf(&b, `Search the web for current flight, hotel and activity prices before answering.
Give 2 or 3 route options with different trade-offs. All costs must be totals for
the whole group, expressed in %[1]s, with totalCost equal to the sum of the breakdown.
Number dailyPlan days from 1 to %[2]d.

Respond with a single JSON object inside a `+"```json"+` fenced block using exactly this shape:
{
  "routes": [{
    "id": 1,
    "name": "string",
    "totalCost": 0,
    "breakdown": {"flightCost": 0, "hotelCost": 0, "activityCost": 0},
    "dailyPlan": [{"day": 1, "location": "string", "activities": ["string"], "accommodation": "string", "estimatedCost": 0}],
    "bookingReferences": {"flightSearchUrl": "string", "hotelSearchUrl": "string"}
  }],
  "alternativeSuggestions": [{"destination": "string", "reason": "string", "estimatedCost": 0, "highlights": ["string"]}],
  "localTips": ["string"],
  "timingAdvice": {"bestSeason": "string", "weatherNote": "string", "seasonalTips": ["string"]}
}
`, referenceCurrency, duration)

	return b.String()
}
