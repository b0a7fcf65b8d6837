package model

import (
	"bytes"
	"encoding/json"

	"github.com/rotisserie/eris"
)

// WebhookPayload is the typed intermediate produced from an inbound callback
// body. Ad platforms disagree on field names, so decoding coalesces the known
// aliases into one shape before any normalization runs.
type WebhookPayload struct {
	EventID     string `json:"event_id"`
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	Origin      string `json:"origin"`
	SubOrigin   string `json:"sub_origin"`
	Campaign    string `json:"campaign"`
	Ad          string `json:"ad"`
	Location    string `json:"location"`
	CreatedTime string `json:"created_time"`

	// Raw is the original body, retained verbatim for the audit trail.
	Raw []byte `json:"-"`
}

// payloadAliases mirrors the alternate key spellings seen across ad platforms.
type payloadAliases struct {
	LeadgenID   string `json:"leadgen_id"`
	FullName    string `json:"full_name"`
	PhoneNumber string `json:"phone_number"`
	EmailAddr   string `json:"email_address"`
	Source      string `json:"source"`
	CampaignID  string `json:"campaign_name"`
	AdName      string `json:"ad_name"`
	CreatedAt   string `json:"created_at"`
}

// ParsePayload decodes a webhook body into a WebhookPayload. It only fails on
// malformed JSON; missing fields are left empty and validated by the caller.
func ParsePayload(body []byte) (*WebhookPayload, error) {
	p := &WebhookPayload{Raw: body}

	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(p); err != nil {
		return nil, eris.Wrap(err, "model: decode payload")
	}

	var alias payloadAliases
	if err := json.Unmarshal(body, &alias); err == nil {
		if p.EventID == "" {
			p.EventID = alias.LeadgenID
		}
		if p.Name == "" {
			p.Name = alias.FullName
		}
		if p.Phone == "" {
			p.Phone = alias.PhoneNumber
		}
		if p.Email == "" {
			p.Email = alias.EmailAddr
		}
		if p.Origin == "" {
			p.Origin = alias.Source
		}
		if p.Campaign == "" {
			p.Campaign = alias.CampaignID
		}
		if p.Ad == "" {
			p.Ad = alias.AdName
		}
		if p.CreatedTime == "" {
			p.CreatedTime = alias.CreatedAt
		}
	}

	return p, nil
}

// Identifiable reports whether the payload carries enough data to stage a
// lead: at least a name or a phone number.
func (p *WebhookPayload) Identifiable() bool {
	return p.Name != "" || p.Phone != ""
}
