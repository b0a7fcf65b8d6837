package canonical

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadflow/internal/model"
)

func TestStagedAttribution(t *testing.T) {
	received := time.Date(2025, 8, 18, 8, 0, 15, 0, time.UTC)

	staged := &model.StagedLead{
		Origin:     "Facebook",
		ReceivedAt: received,
		Payload:    []byte(`{"sub_origin":"Instagram","campaign_name":"Winter Promo","ad_name":"Carousel A","location":"Sao Paulo"}`),
	}

	att := StagedAttribution(staged)
	assert.Equal(t, "Facebook", att.Origin)
	assert.Equal(t, "Instagram", att.SubOrigin)
	assert.Equal(t, "Winter Promo", att.Campaign)
	assert.Equal(t, "Carousel A", att.Ad)
	assert.Equal(t, "Sao Paulo", att.Location)
	assert.Equal(t, received, att.ReceivedAt)
}

func TestStagedAttributionFallsBackToPayloadOrigin(t *testing.T) {
	staged := &model.StagedLead{
		Payload: []byte(`{"source":"Google"}`),
	}
	assert.Equal(t, "Google", StagedAttribution(staged).Origin)
}

func TestStagedAttributionBadPayload(t *testing.T) {
	staged := &model.StagedLead{
		Origin:  "Facebook",
		Payload: []byte(`not json`),
	}
	att := StagedAttribution(staged)
	assert.Equal(t, "Facebook", att.Origin)
	assert.Empty(t, att.Campaign)
}

func TestApplyAttributionFillsEmptyFields(t *testing.T) {
	received := time.Date(2025, 8, 18, 8, 0, 0, 0, time.UTC)
	lead := &model.CanonicalLead{
		Name:   "Maria Silva",
		Status: "customer",
		Origin: "Facebook",
	}

	changed := ApplyAttribution(lead, Attribution{
		Origin:     "Google",
		Campaign:   "Winter Promo",
		Ad:         "Carousel A",
		ReceivedAt: received,
	})

	assert.True(t, changed)
	assert.Equal(t, "Winter Promo", lead.Campaign)
	assert.Equal(t, "Carousel A", lead.Ad)
	require.NotNil(t, lead.AttributionAt)
	assert.Equal(t, received, *lead.AttributionAt)

	// Status and name are never touched by attribution merges.
	assert.Equal(t, "customer", lead.Status)
	assert.Equal(t, "Maria Silva", lead.Name)
}

func TestApplyAttributionOverwritesWhenNewer(t *testing.T) {
	older := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	lead := &model.CanonicalLead{
		Origin:        "Facebook",
		Campaign:      "Old Campaign",
		AttributionAt: &older,
	}

	changed := ApplyAttribution(lead, Attribution{
		Origin:     "Google",
		Campaign:   "New Campaign",
		ReceivedAt: newer,
	})

	assert.True(t, changed)
	assert.Equal(t, "Google", lead.Origin)
	assert.Equal(t, "New Campaign", lead.Campaign)
	assert.Equal(t, newer, *lead.AttributionAt)
}

func TestApplyAttributionKeepsExistingWhenStale(t *testing.T) {
	newer := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	older := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	lead := &model.CanonicalLead{
		Campaign:      "Current",
		AttributionAt: &newer,
	}

	changed := ApplyAttribution(lead, Attribution{
		Campaign:   "Stale",
		ReceivedAt: older,
	})

	assert.False(t, changed)
	assert.Equal(t, "Current", lead.Campaign)
	assert.Equal(t, newer, *lead.AttributionAt)
}

func TestApplyAttributionNoOpOnEqualValues(t *testing.T) {
	lead := &model.CanonicalLead{Origin: "Facebook"}

	changed := ApplyAttribution(lead, Attribution{
		Origin:     "Facebook",
		ReceivedAt: time.Now().UTC(),
	})

	assert.False(t, changed)
	assert.Nil(t, lead.AttributionAt)
}

func TestFillContact(t *testing.T) {
	lead := &model.CanonicalLead{Name: "Maria Silva"}
	staged := &model.StagedLead{Name: "Maria S", Email: "maria@example.com"}

	changed := FillContact(lead, staged)

	assert.True(t, changed)
	assert.Equal(t, "Maria Silva", lead.Name, "existing name wins")
	assert.Equal(t, "maria@example.com", lead.Email)

	assert.False(t, FillContact(lead, staged), "second pass is a no-op")
}
