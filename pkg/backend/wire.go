package backend

// MusicRequest is the body of POST /generate-music.
type MusicRequest struct {
	Lyrics   string `json:"lyrics"`
	Genre    string `json:"genre"`
	Duration int    `json:"duration"`
}

// MusicResponse is the body of a successful POST /generate-music.
type MusicResponse struct {
	ID       string  `json:"id"`
	URL      string  `json:"url"`
	Status   string  `json:"status"`
	Duration float64 `json:"duration"`
}

// VocalResponse is the body of a successful POST /convert-vocals.
type VocalResponse struct {
	ID           string `json:"id"`
	OriginalURL  string `json:"original_url"`
	ConvertedURL string `json:"converted_url,omitempty"`
	TargetVoice  string `json:"target_voice"`
	Status       string `json:"status"`
}

// StatusResponse is the body of GET /.
type StatusResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// ErrorResponse is the body of a failed request. Detail is either a string
// or a list of ErrorItem.
type ErrorResponse struct {
	Detail any `json:"detail"`
}

// ErrorItem is a validation error. Loc mixes field names and list indexes.
type ErrorItem struct {
	Loc  []any  `json:"loc,omitempty"`
	Msg  string `json:"msg"`
	Type string `json:"type,omitempty"`
}

const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)
