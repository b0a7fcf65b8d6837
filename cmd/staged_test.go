package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/leadflow/internal/model"
)

func TestFormatStagedList(t *testing.T) {
	leads := []model.StagedLead{
		{
			ID:         "7b3c1d2e",
			Name:       "Maria Silva",
			Phone:      "5511999990000",
			Origin:     "Facebook",
			State:      model.StagedNew,
			ReceivedAt: time.Date(2025, 8, 18, 8, 0, 15, 0, time.UTC),
		},
		{
			ID:         "9a1f0c4b",
			Name:       "Joao Santos",
			Phone:      "5511888880000",
			Origin:     "Google",
			State:      model.StagedUpdated,
			ReceivedAt: time.Date(2025, 8, 19, 9, 30, 0, 0, time.UTC),
		},
	}

	var buf bytes.Buffer
	formatStagedList(&buf, leads)
	out := buf.String()

	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "Maria Silva")
	assert.Contains(t, out, "5511999990000")
	assert.Contains(t, out, "new")
	assert.Contains(t, out, "2025-08-18 08:00:15")
	assert.Contains(t, out, "Joao Santos")
}
