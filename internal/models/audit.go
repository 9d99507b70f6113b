package models

import "time"

// IngestAudit is one row of the ingest_reports audit table.
// Every decoded report produces one, skipped reports included.
type IngestAudit struct {
	RequestID  string
	ReceivedAt time.Time
	Endpoint   string
	SenderSID  string
	Map        string
	Type       int
	Mod        string
	GameTime   int
	WinBy      string
	Outcome    string
	GameID     int64
	Degraded   []string
}

// NewIngestAudit fills the report columns of an audit row.
func NewIngestAudit(endpoint string, r *Report, receivedAt time.Time) *IngestAudit {
	return &IngestAudit{
		RequestID:  r.RequestID,
		ReceivedAt: receivedAt,
		Endpoint:   endpoint,
		SenderSID:  r.SenderSID,
		Map:        r.Map,
		Type:       r.Type,
		Mod:        r.Mod,
		GameTime:   r.GameTime,
		WinBy:      r.WinBy,
	}
}
