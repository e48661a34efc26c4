package server

import (
	"dealroom/internal/domain"
	"dealroom/internal/engine"
	"dealroom/internal/games"
	"dealroom/internal/terms"
	"dealroom/internal/valuation"
)

// Request payloads

type CreateSessionRequest struct {
	ID       string `json:"id,omitempty"`
	GameType string `json:"game_type" enum:"valuation,trading"`
}

type SetTermValueRequest struct {
	Team  int    `json:"team" enum:"1,2"`
	Value string `json:"value"`
	// Force accepts a value despite warning findings. Error findings always
	// reject.
	Force bool `json:"force,omitempty"`
}

type ValidateTermRequest struct {
	Value string `json:"value"`
}

type TokenRequest struct {
	Subject string `json:"subject"`
	Team    int    `json:"team,omitempty" enum:"0,1,2"`
}

// Response payloads

type TokenResponse struct {
	Token string `json:"token"`
}

type SessionResponse struct {
	ID          string  `json:"id"`
	GameType    string  `json:"game_type" enum:"valuation,trading"`
	Status      string  `json:"status" enum:"active,completed,cancelled"`
	CreatedAt   string  `json:"created_at" format:"date-time"`
	CompletedAt *string `json:"completed_at,omitempty" format:"date-time"`
}

type FindingResponse struct {
	Field    string `json:"field"`
	Message  string `json:"message"`
	Value    string `json:"value"`
	Code     string `json:"code"`
	Severity string `json:"severity" enum:"error,warning,info"`
}

type SetTermValueResponse struct {
	Accepted bool              `json:"accepted"`
	Findings []FindingResponse `json:"findings"`
}

type ValidateTermResponse struct {
	Valid    bool              `json:"valid"`
	Findings []FindingResponse `json:"findings"`
}

type ApprovalResponse struct {
	TermKey string `json:"term_key"`
	Status  string `json:"status" enum:"tbd,ok"`
}

type ProgressResponse struct {
	Total    int `json:"total"`
	Approved int `json:"approved"`
	Pending  int `json:"pending"`
}

type SnapshotResponse struct {
	Session           SessionResponse              `json:"session"`
	TeamValues        map[string]map[string]string `json:"team_values"`
	Approvals         map[string]string            `json:"approvals"`
	Valuation         *string                      `json:"valuation,omitempty"`
	IsComplete        bool                         `json:"is_complete"`
	Progress          ProgressResponse             `json:"progress"`
	CompletionMessage string                       `json:"completion_message,omitempty"`
}

type CapitalRaisedResponse struct {
	NeedsAllocation bool    `json:"needs_allocation"`
	Amount          *string `json:"amount,omitempty"`
	Display         string  `json:"display"`
}

type CompanyResultResponse struct {
	Company         int                   `json:"company"`
	Price           string                `json:"price"`
	AvailableShares string                `json:"available_shares"`
	SharesBidFor    string                `json:"shares_bid_for"`
	CapitalRaised   CapitalRaisedResponse `json:"capital_raised"`
	Subscription    string                `json:"subscription" enum:"Filled,Under,Over"`
}

type SummaryResponse struct {
	Companies []CompanyResultResponse `json:"companies"`
	MostBids  int                     `json:"most_bids"`
	Label     string                  `json:"most_bids_label"`
}

type TermResponse struct {
	Key         string `json:"key"`
	DisplayName string `json:"display_name"`
	Unit        string `json:"unit,omitempty"`
	Type        string `json:"type" enum:"currency,percentage,integer,decimal,text"`
	Min         string `json:"min"`
	Max         string `json:"max"`
	Precision   int32  `json:"precision"`
	Description string `json:"description,omitempty"`
}

type GameResponse struct {
	Type        string         `json:"type" enum:"valuation,trading"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Team1Role   string         `json:"team1_role"`
	Team2Role   string         `json:"team2_role"`
	Terms       []TermResponse `json:"terms"`
}

type EventResponse struct {
	ID      int64  `json:"id"`
	TS      string `json:"ts" format:"date-time"`
	Type    string `json:"type"`
	TermKey string `json:"term_key,omitempty"`
	Payload string `json:"payload,omitempty"`
}

// Mapping helpers

func sessionResponse(s domain.GameSession) SessionResponse {
	return SessionResponse{
		ID:          s.ID,
		GameType:    string(s.GameType),
		Status:      string(s.Status),
		CreatedAt:   s.CreatedAt,
		CompletedAt: s.CompletedAt,
	}
}

func findingResponses(findings []domain.Finding) []FindingResponse {
	out := make([]FindingResponse, 0, len(findings))
	for _, f := range findings {
		out = append(out, FindingResponse{
			Field:    string(f.Field),
			Message:  f.Message,
			Value:    f.Value.String(),
			Code:     f.Code,
			Severity: string(f.Severity),
		})
	}
	return out
}

func snapshotResponse(snap engine.Snapshot) SnapshotResponse {
	teamValues := make(map[string]map[string]string, len(snap.TeamValues))
	for team, values := range snap.TeamValues {
		m := make(map[string]string, len(values))
		for key, v := range values {
			m[string(key)] = v.String()
		}
		switch team {
		case domain.TeamOne:
			teamValues["1"] = m
		case domain.TeamTwo:
			teamValues["2"] = m
		}
	}
	approvals := make(map[string]string, len(snap.Approvals))
	for key, status := range snap.Approvals {
		approvals[string(key)] = string(status)
	}
	resp := SnapshotResponse{
		Session:    sessionResponse(snap.Session),
		TeamValues: teamValues,
		Approvals:  approvals,
		IsComplete: snap.IsComplete,
		Progress: ProgressResponse{
			Total:    snap.Progress.Total,
			Approved: snap.Progress.Approved,
			Pending:  snap.Progress.Pending,
		},
		CompletionMessage: snap.CompletionMessage,
	}
	if snap.Valuation != nil {
		v := snap.Valuation.String()
		resp.Valuation = &v
	}
	return resp
}

func capitalRaisedResponse(c domain.CapitalRaised) CapitalRaisedResponse {
	resp := CapitalRaisedResponse{
		NeedsAllocation: c.NeedsAllocation(),
		Display:         c.String(),
	}
	if amount, ok := c.Amount(); ok {
		s := amount.String()
		resp.Amount = &s
	}
	return resp
}

func summaryResponse(s valuation.Summary) SummaryResponse {
	resp := SummaryResponse{
		Companies: make([]CompanyResultResponse, 0, len(s.Companies)),
		MostBids:  s.MostBids,
		Label:     s.MostBidsLabel(),
	}
	for _, c := range s.Companies {
		resp.Companies = append(resp.Companies, CompanyResultResponse{
			Company:         c.Company,
			Price:           c.Price.String(),
			AvailableShares: c.AvailableShares.String(),
			SharesBidFor:    c.SharesBidFor.String(),
			CapitalRaised:   capitalRaisedResponse(c.CapitalRaised),
			Subscription:    string(c.Subscription),
		})
	}
	return resp
}

func termResponse(m terms.Metadata) TermResponse {
	return TermResponse{
		Key:         string(m.Key),
		DisplayName: m.DisplayName,
		Unit:        m.Unit,
		Type:        string(m.Type),
		Min:         m.Min.String(),
		Max:         m.Max.String(),
		Precision:   m.Precision,
		Description: m.Description,
	}
}

func gameResponse(def games.Definition) GameResponse {
	resp := GameResponse{
		Type:        string(def.Type),
		Name:        def.Metadata.Name,
		Description: def.Metadata.Description,
		Team1Role:   def.Metadata.Roles[domain.TeamOne].Name,
		Team2Role:   def.Metadata.Roles[domain.TeamTwo].Name,
		Terms:       make([]TermResponse, 0, len(def.Terms)),
	}
	for _, key := range def.Terms {
		meta, err := terms.Get(key)
		if err != nil {
			continue
		}
		resp.Terms = append(resp.Terms, termResponse(meta))
	}
	return resp
}

func eventResponse(e domain.Event) EventResponse {
	return EventResponse{
		ID:      e.ID,
		TS:      e.TS,
		Type:    e.Type,
		TermKey: e.TermKey,
		Payload: e.Payload,
	}
}

func mapSessions(items []domain.GameSession) []SessionResponse {
	res := make([]SessionResponse, 0, len(items))
	for _, s := range items {
		res = append(res, sessionResponse(s))
	}
	return res
}
