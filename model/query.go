package model

// QueryRequest is the body of POST /query
type QueryRequest struct {
	Query any `json:"query"`
}

// QueryResponse carries the generated answer, or the "no information" notice on a 404
type QueryResponse struct {
	Response string `json:"response"`
}

// ErrorResponse is returned for every failed request
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// SourcesResponse lists the document titles available in the lore collection
type SourcesResponse struct {
	Sources []string `json:"sources"`
}
