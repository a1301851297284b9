package models

const (
	NotFoundAnswer     = "Answer not found in the provided document."
	ParagraphSeparator = "\n\n"
	ChunkIDPrefix      = "chunk-"
	MetadataTextKey    = "text"

	RoleUser      = "user"
	RoleAssistant = "assistant"
)

var (
	GroundedSystemPrompt = "You are a document-grounded question answering assistant.\n" +
		"Answer the question using ONLY the provided context.\n" +
		"You may summarize or paraphrase the context if the meaning is clearly present.\n" +
		"DO NOT use any external knowledge.\n" +
		"If the answer truly cannot be derived from the context, reply exactly with:\n" +
		"'" + NotFoundAnswer + "'"

	GroundedUserPromptTemplate = `Context:
%s

Question:
%s

Answer:
`
)
