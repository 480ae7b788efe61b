package utils

// Minimal server-side i18n for fixed keys.
// UI strings live in the frontend; the server only localizes health output
// and the fallback analysis text.

var translations = map[string]map[string]string{
	"en": {
		"health.ok":                          "ok",
		"analysis.fallback.summary":          "%d responses collected with an average gap of %.2f points between today and the desired state.",
		"analysis.fallback.theme.gap":        "current vs. desired state",
		"analysis.fallback.insight.empty":    "No responses have been submitted yet.",
		"analysis.fallback.insight.wide":     "The team sees a wide gap between where it is and where it wants to be.",
		"analysis.fallback.insight.negative": "Some participants rate the desired state below today; those answers deserve a follow-up conversation.",
		"analysis.fallback.insight.aligned":  "The team broadly agrees on the direction and the gap is moderate.",
		"analysis.fallback.rec.prioritise":   "Pick the two actions with the largest gaps and agree on them as a team.",
		"analysis.fallback.rec.owner":        "Assign an owner and a check-in date to every agreed action.",
	},
	"zh": {
		"health.ok":                          "好的",
		"analysis.fallback.summary":          "共收集 %d 条回答，现状与理想状态之间的平均差距为 %.2f 分。",
		"analysis.fallback.theme.gap":        "现状与理想状态",
		"analysis.fallback.insight.empty":    "尚未收到任何回答。",
		"analysis.fallback.insight.wide":     "团队认为现状与理想状态之间差距较大。",
		"analysis.fallback.insight.negative": "部分参与者认为理想状态低于现状，值得进一步沟通。",
		"analysis.fallback.insight.aligned":  "团队对方向基本一致，差距适中。",
		"analysis.fallback.rec.prioritise":   "选出差距最大的两项行动，并在团队内达成共识。",
		"analysis.fallback.rec.owner":        "为每项行动指定负责人和跟进日期。",
	},
}

// T returns the translated string for key in locale; falls back to English.
func T(locale, key string) string {
	if m, ok := translations[locale]; ok {
		if v, ok := m[key]; ok {
			return v
		}
	}
	if m, ok := translations["en"]; ok {
		if v, ok := m[key]; ok {
			return v
		}
	}
	return key
}
