package knowledge

// Document is a unit of knowledge held in the vector index.
type Document struct {
	ID      string
	Title   string
	Content string

	Metadata Metadata
}

// Metadata carries the structured attributes stored alongside a
// document. FAQ-sourced documents fill the question/answer fields;
// uploaded files fill filename and content type.
type Metadata struct {
	Category    string   `json:"category,omitempty"`
	Question    string   `json:"question,omitempty"`
	Answer      string   `json:"answer,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
	FAQType     string   `json:"faq_type,omitempty"`
	Source      string   `json:"source,omitempty"`
	Filename    string   `json:"filename,omitempty"`
	ContentType string   `json:"content_type,omitempty"`
}

// Match is a search hit. Score is cosine similarity, higher is closer.
type Match struct {
	ID      string  `json:"id"`
	Score   float64 `json:"score"`
	Title   string  `json:"title"`
	Content string  `json:"content"`

	Metadata Metadata `json:"metadata"`
}
