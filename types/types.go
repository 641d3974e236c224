package types

// Photo is a single search result
type Photo struct {
	ID             string    `json:"id"`
	Description    string    `json:"description,omitempty"`
	AltDescription string    `json:"alt_description,omitempty"`
	URLs           PhotoURLs `json:"urls"`
	CreatedAt      string    `json:"created_at"`
}

// PhotoURLs holds the links to the available renditions of a photo
type PhotoURLs struct {
	Raw     string `json:"raw"`
	Full    string `json:"full"`
	Regular string `json:"regular"`
	Small   string `json:"small"`
	Thumb   string `json:"thumb"`
}

// PhotoResponse is one page of search results
type PhotoResponse struct {
	Total      int     `json:"total"`
	TotalPages int     `json:"total_pages"`
	Results    []Photo `json:"results"`
}

// ProcessRecord holds the outcome of processing one image
type ProcessRecord struct {
	ID        int64  `json:"id"`
	Source    string `json:"source"`
	Output    string `json:"output,omitempty"`
	Routine   string `json:"routine"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Hash      string `json:"hash,omitempty"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	CreatedAt string `json:"created_at"`
}
