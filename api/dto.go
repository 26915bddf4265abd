package api

import (
	"time"

	"concorda/agreement"
	"concorda/dashboard"
	"concorda/profile"
	"concorda/tip"
)

type participantResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

type agreementResponse struct {
	ID               string                    `json:"id"`
	Title            string                    `json:"title"`
	Description      string                    `json:"description"`
	Category         agreement.Category        `json:"category"`
	Tone             agreement.Tone            `json:"tone"`
	Validity         string                    `json:"validity"`
	Penalty          *string                   `json:"penalty"`
	Status           agreement.Status          `json:"status"`
	NegotiationCount int                       `json:"negotiation_count"`
	Participants     []participantResponse     `json:"participants"`
	Rules            []string                  `json:"rules"`
	CreatorSignature *agreement.SignatureImage `json:"signature_creator,omitempty"`
	PartnerSignature *agreement.SignatureImage `json:"signature_partner,omitempty"`
	Ratification     agreement.SignatureMap    `json:"initial_signatures,omitempty"`
	Closure          agreement.SignatureMap    `json:"signatures,omitempty"`
	CreatedAt        time.Time                 `json:"created_at"`
	UpdatedAt        time.Time                 `json:"updated_at"`
	SignedAt         *time.Time                `json:"signed_at"`
	CompletedAt      *time.Time                `json:"completed_at"`
}

func toAgreement(a agreement.Agreement) agreementResponse {
	participants := make([]participantResponse, 0, len(a.Participants))
	for _, p := range a.Participants {
		participants = append(participants, participantResponse{ID: p.ID, Name: p.Name, Color: p.Color})
	}
	return agreementResponse{
		ID:               a.ID,
		Title:            a.Title,
		Description:      a.Description,
		Category:         a.Category,
		Tone:             a.Tone,
		Validity:         a.Validity,
		Penalty:          a.Penalty,
		Status:           a.Status,
		NegotiationCount: a.NegotiationCount,
		Participants:     participants,
		Rules:            a.RuleTexts(),
		CreatorSignature: a.CreatorSignature,
		PartnerSignature: a.PartnerSignature,
		Ratification:     a.Ratification,
		Closure:          a.Closure,
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
		SignedAt:         a.SignedAt,
		CompletedAt:      a.CompletedAt,
	}
}

func toAgreements(items []agreement.Agreement) []agreementResponse {
	out := make([]agreementResponse, 0, len(items))
	for _, a := range items {
		out = append(out, toAgreement(a))
	}
	return out
}

type profileResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	FirstName string    `json:"first_name"`
	AvatarURL *string   `json:"avatar_url"`
	Phone     *string   `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toProfile(p profile.Profile) profileResponse {
	return profileResponse{
		ID:        p.ID,
		Email:     p.Email,
		FullName:  p.FullName,
		FirstName: p.FirstName(),
		AvatarURL: p.AvatarURL,
		Phone:     p.Phone,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

type dashboardResponse struct {
	Recent    []agreementResponse `json:"recent"`
	Active    int                 `json:"active"`
	Completed int                 `json:"completed"`
	Tip       *tip.Tip            `json:"tip"`
}

func toDashboard(s dashboard.Summary) dashboardResponse {
	return dashboardResponse{
		Recent:    toAgreements(s.Recent),
		Active:    s.Active,
		Completed: s.Completed,
		Tip:       s.Tip,
	}
}
