package scorer

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/rankpilot/rankd/internal/core/domain"
)

// ElementsScorer scores caller-supplied content-element strings with text
// heuristics; it is the only scorer with no backing store.
type ElementsScorer struct{}

func NewElementsScorer() *ElementsScorer { return &ElementsScorer{} }

const (
	lengthSweetSpotMin = 8
	lengthSweetSpotMax = 40
)

var positiveWords = []string{"great", "best", "love", "amazing", "easy", "fast", "free", "new", "保湿", "好用", "超值"}
var negativeWords = []string{"tired", "hard", "problem", "pain", "worry", "slow", "expensive", "烦恼", "困扰"}
var visualWords = []string{"show", "see", "watch", "look", "demo", "before", "after", "展示", "效果"}

var regionKeywords = map[string][]string{
	"US": {"free shipping", "deal", "sale"},
	"UK": {"free delivery", "offer"},
	"CN": {"包邮", "折扣", "限时"},
	"SEA": {"promo", "voucher"},
}

func (s *ElementsScorer) Rank(_ context.Context, req domain.RecommendRankRequest) (*domain.ScoreResult, error) {
	if req.Task.Elements == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "elements rank", fmt.Errorf("missing elements task block"))
	}

	goal := req.Task.Elements.Goal
	full := make([]domain.CandidateItem, 0, len(req.Task.Elements.Texts))
	for _, raw := range req.Task.Elements.Texts {
		text := strings.TrimSpace(raw)
		if text == "" {
			continue
		}
		full = append(full, scoreElement(text, goal, req.Context.Region))
	}

	return assemble(full, func(item domain.CandidateItem) float64 {
		return item.Coarse()
	}), nil
}

func scoreElement(text, goal, region string) domain.CandidateItem {
	lower := strings.ToLower(text)
	coarse := weightBase
	reason := map[string]any{}

	runes := len([]rune(text))
	if runes >= lengthSweetSpotMin && runes <= lengthSweetSpotMax {
		coarse += weightNameMatch
		reason["lengthSweetSpot"] = true
	}

	for _, kw := range regionKeywords[region] {
		if strings.Contains(lower, strings.ToLower(kw)) {
			coarse += weightRegion
			reason["regionKeyword"] = kw
			break
		}
	}

	// Positive wording favors selling points, negative wording pain points.
	if goal != "pain_point" && containsAny(lower, positiveWords) {
		coarse += weightCategory
		reason["sentiment"] = "positive"
	}
	if goal == "pain_point" && containsAny(lower, negativeWords) {
		coarse += weightExactMatch
		reason["sentiment"] = "negative"
	}

	if containsAny(lower, visualWords) {
		coarse += weightSubcategory
		reason["visual"] = true
	}

	if containsDigit(text) {
		coarse += weightDefault
		reason["hasDigits"] = true
	}

	return domain.CandidateItem{
		ID:          elementID(text),
		Type:        domain.TargetElement,
		Title:       text,
		Name:        text,
		CoarseScore: floatPtr(coarse),
		Reason:      reason,
	}
}

// elementID derives a stable id from the text so repeated requests map the
// same string to the same candidate id (bandit feedback depends on that).
func elementID(text string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(text)).String()
}

func containsAny(lower string, words []string) bool {
	for _, w := range words {
		if strings.Contains(lower, strings.ToLower(w)) {
			return true
		}
	}
	return false
}

func containsDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
