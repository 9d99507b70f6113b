package models

// IngestResponse is returned by both send-replay5 variants.
// GameID is null for skipped reports.
type IngestResponse struct {
	OK      bool   `json:"ok"`
	GameID  *int64 `json:"gameId"`
	Skipped string `json:"skipped,omitempty"`
}

type ReplayUploadResponse struct {
	OK   bool   `json:"ok"`
	Key  string `json:"key"`
	Link string `json:"link"`
}

type ReplayURLResponse struct {
	OK        bool   `json:"ok"`
	URL       string `json:"url"`
	ExpiresIn int    `json:"expiresIn"`
}

type ReplayDeleteResponse struct {
	OK  bool   `json:"ok"`
	Key string `json:"key"`
}

// InstallResponse reports the schema install result per database
type InstallResponse struct {
	Status  string            `json:"status"`
	Results map[string]string `json:"results"`
	Error   bool              `json:"error"`
}
