package models

// State is carried between the retrieve and generate stages.
// Pointer fields distinguish "not set yet" from zero values.
type State struct {
	Query      string
	Contexts   []string
	Scores     []float64
	Answer     *string
	Confidence *float64
}

// Response flattens a completed state.
func (s State) Response() *PromptResponse {
	resp := &PromptResponse{
		Query:    s.Query,
		Contexts: s.Contexts,
	}
	if s.Answer != nil {
		resp.Answer = *s.Answer
	}
	if s.Confidence != nil {
		resp.Confidence = *s.Confidence
	}
	return resp
}
