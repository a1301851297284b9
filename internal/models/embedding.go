package models

// Chunk represents one indexed span of the document
type Chunk struct {
	ID      string `json:"id"`
	Content string `json:"content"`
	Index   int    `json:"index"`
}

// Record is what gets written to the vector index
type Record struct {
	ID        string
	Content   string
	Embedding []float32
}

// Match is a single similarity hit returned by the vector index
type Match struct {
	ID      string
	Content string
	Score   float64
}

// RetrievedContext holds the chunks that passed the score threshold.
// Contexts and Scores always have the same length.
type RetrievedContext struct {
	Contexts []string
	Scores   []float64
}

type PromptResponse struct {
	Query      string   `json:"query"`
	Answer     string   `json:"answer"`
	Contexts   []string `json:"contexts"`
	Confidence float64  `json:"confidence"`
}
