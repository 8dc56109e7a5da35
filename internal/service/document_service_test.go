package service

import (
	"testing"

	"agromed-backend/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandoverDocumentRefIsStable(t *testing.T) {
	assert.Equal(t, "handover/SUB2026001.pdf", HandoverDocumentRef("SUB2026001"))
	assert.Equal(t, HandoverDocumentRef("SUB2026001"), HandoverDocumentRef("SUB2026001"))
}

func TestRenderHandover(t *testing.T) {
	sub := &model.Submission{
		ID:           uuid.New(),
		Number:       "SUB2026001",
		FarmerGroup:  "Tani Maju",
		GroupLeader:  "Pak Slamet",
		District:     "Karawang",
		Village:      "Sukamakmur",
		Commodity:    "rice",
		AffectedArea: decimal.NewFromFloat(4.25),
		Items: []model.SubmissionItem{
			{
				Medicine:       model.Medicine{Code: "MED-A", Name: "Abamectin 20EC"},
				Unit:           "liter",
				RequestedQty:   5,
				ApprovedQty:    3,
				DistributedQty: 0,
			},
		},
		Approval: &model.ApprovalRecord{
			Decision:        model.DecisionPartiallyApproved,
			NoteToWarehouse: "check expiry before loading",
		},
	}
	rec := &model.DistributionRecord{ReceiverName: "Pak Slamet"}

	content, err := NewDocumentService().RenderHandover(sub, rec)
	require.NoError(t, err)
	assert.NotEmpty(t, content)
	assert.Equal(t, "%PDF", string(content[:4]))
}

func TestRenderHandoverWithoutApprovalOrReceiver(t *testing.T) {
	sub := &model.Submission{
		Number:       "SUB2026002",
		AffectedArea: decimal.NewFromInt(1),
		Items:        []model.SubmissionItem{{Medicine: model.Medicine{Code: "MED-B"}, Unit: "kg", RequestedQty: 2}},
	}

	content, err := NewDocumentService().RenderHandover(sub, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, content)
}
