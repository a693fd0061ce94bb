package generator

// Brief is the context handed to the oracle on every attempt. The planning
// stages that produce ScenePlan live outside this module.
type Brief struct {
	Topic string
	// ScenePlan is an optional JSON scene description from the planning stage.
	ScenePlan   string
	Constraints []string
}

// Exchange is one earlier attempt: what the model replied and the feedback
// that reply earned.
type Exchange struct {
	Reply    string
	Feedback string
}
