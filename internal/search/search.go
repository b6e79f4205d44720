package search

// ResultType identifies the kind of entity in a search result.
type ResultType string

const (
	ResultCase    ResultType = "case"
	ResultDispute ResultType = "dispute"
)

// Result is a single search hit returned to the caller.
type Result struct {
	Type    ResultType `json:"type"`
	ID      string     `json:"id"`
	Title   string     `json:"title"`
	Snippet string     `json:"snippet"`
	Status  string     `json:"status,omitempty"`
}

// Query describes a search request.
type Query struct {
	Text         string
	FilterType   ResultType // empty = all types
	FilterStatus string
	Limit        int
	Offset       int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// CaseRecord is the data we index for a litigation case.
type CaseRecord struct {
	ID         string `json:"id"`
	Parties    string `json:"parties"`
	Forum      string `json:"forum"`
	Particular string `json:"particular"`
	Remarks    string `json:"remarks"`
	Status     string `json:"status"`
}

// DisputeRecord is the data we index for a pre-litigation dispute.
type DisputeRecord struct {
	ID          string `json:"id"`
	Company     string `json:"company"`
	DisputeType string `json:"disputeType"`
	NoticeFrom  string `json:"noticeFrom"`
	Status      string `json:"status"`
}
