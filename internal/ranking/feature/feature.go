// Package feature flattens a (request, candidate) pair into the numeric
// vector consumed by the LTR model. The offline trainer uses this same
// function; any change here breaks offline/online parity.
package feature

import "github.com/rankpilot/rankd/internal/core/domain"

// Build is pure and deterministic: structurally identical inputs always yield
// identical maps.
func Build(req domain.RecommendRankRequest, c domain.CandidateItem) map[string]float64 {
	f := map[string]float64{
		"coarse": c.Coarse(),
		"fine":   c.Fine(),
	}

	f["langMatch"] = reasonFloat(c.Reason, "langMatch", langMatchDefault(req))
	f["jsonSupport"] = reasonFloat(c.Reason, "jsonSupport", jsonSupportDefault(req))
	f["price"] = reasonFloat(c.Reason, "price", 0.5)

	f["ch_tiktok"] = oneHot(req.Context.Channel == "tiktok")
	f["ch_facebook"] = oneHot(req.Context.Channel == "facebook")
	f["ch_web"] = oneHot(req.Context.Channel == "web")

	vision := req.Task.ContentType == "vision" || req.Task.ContentType == "image" ||
		(req.Task.Model != nil && req.Task.Model.Vision)
	f["ct_text"] = oneHot(!vision)
	f["ct_vision"] = oneHot(vision)

	tier := req.Task.BudgetTier
	if tier == "" {
		tier = req.Context.BudgetTier
	}
	f["budget_low"] = oneHot(tier == "low")
	f["budget_high"] = oneHot(tier == "high")

	return f
}

func langMatchDefault(req domain.RecommendRankRequest) float64 {
	if req.Task.Language == "" {
		return 1
	}
	return 0.5
}

func jsonSupportDefault(req domain.RecommendRankRequest) float64 {
	if req.Task.RequireJSON || req.Constraints.RequireJSONMode {
		return 0.5
	}
	return 1
}

func oneHot(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// reasonFloat reads a numeric or boolean signal out of the free-form reason
// map, falling back to a heuristic default.
func reasonFloat(reason map[string]any, key string, fallback float64) float64 {
	if reason == nil {
		return fallback
	}
	switch v := reason[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case bool:
		return oneHot(v)
	default:
		return fallback
	}
}
