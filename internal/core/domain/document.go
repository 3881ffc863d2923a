package domain

// DocumentChunk is one excerpt returned by the document search service,
// ranked by relevance. RelevanceScore is clamped to [0,1] by the use case.
type DocumentChunk struct {
	DocumentID     string                 `json:"document_id"`
	ChunkID        string                 `json:"chunk_id"`
	Content        string                 `json:"content"`
	RelevanceScore float64                `json:"relevance_score"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// AuthTokens is the credential set returned by a successful login.
type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int32  `json:"expires_in"`
}
