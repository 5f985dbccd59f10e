package handler

import (
	"time"

	"provenant/internal/scanlog/device"
	"provenant/internal/scanlog/models"
)

type ScanResponse struct {
	ID            string    `json:"id"`
	CertificateID *string   `json:"certificate_id"`
	ProductID     *string   `json:"product_id,omitempty"`
	Identifier    string    `json:"identifier"`
	Outcome       string    `json:"outcome"`
	IsValid       bool      `json:"is_valid"`
	ScannedAt     time.Time `json:"scanned_at"`
	IPAddress     string    `json:"ip_address,omitempty"`
	UserAgent     string    `json:"user_agent,omitempty"`
	Device        string    `json:"device"`
	Mobile        bool      `json:"mobile"`
	Location      string    `json:"location,omitempty"`
}

type ScanListResponse struct {
	Scans  []ScanResponse `json:"scans"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

type SummaryResponse struct {
	Total     int64            `json:"total"`
	Valid     int64            `json:"valid"`
	Invalid   int64            `json:"invalid"`
	ByOutcome map[string]int64 `json:"by_outcome"`
	Since     *time.Time       `json:"since,omitempty"`
}

func FromScan(s *models.ScanLog) ScanResponse {
	resp := ScanResponse{
		ID:         s.ID.String(),
		Identifier: s.Identifier,
		Outcome:    string(s.Outcome),
		IsValid:    s.IsValid,
		ScannedAt:  s.ScannedAt,
		IPAddress:  s.IPAddress,
		UserAgent:  s.UserAgent,
		Device:     device.DisplayName(s.Device),
		Mobile:     s.Device.Mobile,
		Location:   s.Location,
	}
	if s.CertificateID != nil {
		cid := s.CertificateID.String()
		resp.CertificateID = &cid
	}
	if s.ProductID != nil {
		pid := s.ProductID.String()
		resp.ProductID = &pid
	}
	return resp
}

func FromScans(scans []*models.ScanLog, filter models.Filter) ScanListResponse {
	out := ScanListResponse{Scans: make([]ScanResponse, 0, len(scans)), Limit: filter.Limit, Offset: filter.Offset}
	for _, s := range scans {
		out.Scans = append(out.Scans, FromScan(s))
	}
	return out
}

func FromSummary(s *models.Summary, since *time.Time) SummaryResponse {
	byOutcome := make(map[string]int64, len(s.ByOutcome))
	for o, n := range s.ByOutcome {
		byOutcome[string(o)] = n
	}
	return SummaryResponse{Total: s.Total, Valid: s.Valid, Invalid: s.Invalid, ByOutcome: byOutcome, Since: since}
}
