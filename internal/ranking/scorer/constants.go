package scorer

import "time"

const (
	// CoarseListSize is M: how many coarse survivors go on to fine scoring.
	CoarseListSize = 10
	// TopKSize is K: how many fine-scored candidates are returned.
	TopKSize = 5
	// SubjectRowCap bounds the catalog-wide scan when a persona/script request
	// carries no subject filters at all.
	SubjectRowCap = 100

	PoolCacheTTL = 5 * time.Minute

	// freshnessHalfLife controls the age decay applied during coarse scoring.
	freshnessHalfLife = 30 * 24 * time.Hour
)

// Coarse-score weight contributions shared across scorers.
const (
	weightBase        = 0.30
	weightExactMatch  = 0.25
	weightNameMatch   = 0.15
	weightCategory    = 0.12
	weightSubcategory = 0.08
	weightRegion      = 0.08
	weightChannel     = 0.10
	weightDefault     = 0.10
	weightFreshness   = 0.10
	weightPrice       = 0.15
	weightOutcome     = 0.20
)

// GenericRendererPrefix marks templates that bypass category filtering
// entirely: they are universally applicable renderers.
const GenericRendererPrefix = "Renderer"

// categoryPrefixes maps a task category to the naming-convention prefix prompt
// templates must carry. Categories outside this table impose no prefix filter.
var categoryPrefixes = map[string]string{
	"美妆": "Beauty",
	"3C": "3C",
	"服饰": "Fashion",
	"食品": "Food",
	"家居": "Home",
	"母婴": "Baby",
}

// moduleAliases maps legacy business-module names onto their canonical keys.
var moduleAliases = map[string]string{
	"persona-generation": "persona.generate",
	"script-generation":  "script.generate",
	"style-selection":    "style.select",
	"element-extraction": "element.extract",
	"content-generation": "content.generate",
}

var supportedModules = map[string]bool{
	"persona.generate": true,
	"script.generate":  true,
	"style.select":     true,
	"element.extract":  true,
	"content.generate": true,
}

// providerKeys maps external provider display names (as they appear in the
// verification artifact) to internal provider keys.
var providerKeys = map[string]string{
	"DeepSeek":  "deepseek",
	"OpenAI":    "openai",
	"Anthropic": "anthropic",
	"Gemini":    "gemini",
	"Qwen":      "qwen",
	"Moonshot":  "moonshot",
	"Zhipu":     "zhipu",
}
