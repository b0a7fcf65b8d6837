package canonical

import (
	"time"

	"github.com/sells-group/leadflow/internal/model"
)

// Attribution is the set of campaign fields a staged lead can contribute to a
// canonical record.
type Attribution struct {
	Origin     string
	SubOrigin  string
	Campaign   string
	Ad         string
	Location   string
	ReceivedAt time.Time
}

// StagedAttribution extracts the attribution fields carried by a staged lead,
// reading the campaign details from the retained original payload.
func StagedAttribution(staged *model.StagedLead) Attribution {
	att := Attribution{
		Origin:     staged.Origin,
		ReceivedAt: staged.ReceivedAt,
	}
	if p, err := model.ParsePayload(staged.Payload); err == nil {
		att.SubOrigin = p.SubOrigin
		att.Campaign = p.Campaign
		att.Ad = p.Ad
		att.Location = p.Location
		if att.Origin == "" {
			att.Origin = p.Origin
		}
	}
	return att
}

// ApplyAttribution merges attribution data onto a canonical lead. A field is
// written when the canonical side is empty, or when the staged data is newer
// than the lead's last attribution touch. Status and name are never written
// here. Returns whether anything changed.
func ApplyAttribution(lead *model.CanonicalLead, att Attribution) bool {
	newer := lead.AttributionAt == nil || att.ReceivedAt.After(*lead.AttributionAt)

	changed := false
	apply := func(dst *string, v string) {
		if v == "" || *dst == v {
			return
		}
		if *dst == "" || newer {
			*dst = v
			changed = true
		}
	}

	apply(&lead.Origin, att.Origin)
	apply(&lead.SubOrigin, att.SubOrigin)
	apply(&lead.Campaign, att.Campaign)
	apply(&lead.Ad, att.Ad)
	apply(&lead.Location, att.Location)

	if changed {
		t := att.ReceivedAt
		lead.AttributionAt = &t
	}
	return changed
}

// FillContact copies staged contact fields onto a canonical lead only where
// the canonical side is empty. Existing authoritative data always wins.
func FillContact(lead *model.CanonicalLead, staged *model.StagedLead) bool {
	changed := false
	if lead.Name == "" && staged.Name != "" {
		lead.Name = staged.Name
		changed = true
	}
	if lead.Email == "" && staged.Email != "" {
		lead.Email = staged.Email
		changed = true
	}
	return changed
}
