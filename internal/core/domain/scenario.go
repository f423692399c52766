package domain

// Scenario names a ranking use-case with its own candidate domain and scorer.
type Scenario string

const (
	ScenarioTaskModel       Scenario = "task_model"
	ScenarioTaskPrompt      Scenario = "task_prompt"
	ScenarioProductPersona  Scenario = "product_persona"
	ScenarioProductScript   Scenario = "product_script"
	ScenarioProductStyle    Scenario = "product_style"
	ScenarioProductElements Scenario = "product_elements"
)

func (s Scenario) Valid() bool {
	switch s {
	case ScenarioTaskModel, ScenarioTaskPrompt, ScenarioProductPersona,
		ScenarioProductScript, ScenarioProductStyle, ScenarioProductElements:
		return true
	}
	return false
}

// TargetType is the kind of entity a ranking call selects.
type TargetType string

const (
	TargetModel   TargetType = "model"
	TargetPrompt  TargetType = "prompt"
	TargetPersona TargetType = "persona"
	TargetScript  TargetType = "script"
	TargetStyle   TargetType = "style"
	TargetElement TargetType = "element"
)

// TargetFor maps a scenario to the target type its scorer selects.
func TargetFor(s Scenario) TargetType {
	switch s {
	case ScenarioTaskModel:
		return TargetModel
	case ScenarioTaskPrompt:
		return TargetPrompt
	case ScenarioProductPersona:
		return TargetPersona
	case ScenarioProductScript:
		return TargetScript
	case ScenarioProductStyle:
		return TargetStyle
	case ScenarioProductElements:
		return TargetElement
	}
	return ""
}
