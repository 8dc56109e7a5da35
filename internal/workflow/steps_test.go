package workflow

import (
	"testing"
	"time"

	"agromed-backend/internal/model"
	"agromed-backend/pkg/apperrors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckStepOrderBlocksSkippingAhead(t *testing.T) {
	rec := &model.DistributionRecord{CompletedStep: 1}

	// Step 4 before steps 2 and 3 is rejected.
	err := CheckStepOrder(rec, model.StepUpload)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindBusinessLogic))
	assert.Contains(t, err.Error(), "photography")

	// The next step in order is allowed.
	assert.NoError(t, CheckStepOrder(rec, model.StepPhotography))

	// Once 2 and 3 are done, step 4 becomes reachable.
	rec.CompletedStep = 3
	assert.NoError(t, CheckStepOrder(rec, model.StepUpload))
}

func TestCheckStepOrderAllowsRevisiting(t *testing.T) {
	rec := &model.DistributionRecord{CompletedStep: 3}

	assert.NoError(t, CheckStepOrder(rec, model.StepValidation))
	assert.NoError(t, CheckStepOrder(rec, model.StepPhotography))
	assert.NoError(t, CheckStepOrder(rec, model.StepDocument))
}

func TestCheckStepOrderEdgeCases(t *testing.T) {
	err := CheckStepOrder(nil, model.StepValidation)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindBusinessLogic))

	rec := &model.DistributionRecord{CompletedStep: 2}
	err = CheckStepOrder(rec, 0)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
	err = CheckStepOrder(rec, 6)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))

	done := time.Now()
	rec.CompletedAt = &done
	err = CheckStepOrder(rec, model.StepValidation)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already confirmed")
}

func TestMarkStepCompletedRequiresArtifact(t *testing.T) {
	rec := &model.DistributionRecord{}

	// Step 1 without scan results cannot be marked done.
	err := MarkStepCompleted(rec, model.StepValidation)
	require.Error(t, err)
	assert.Equal(t, 0, rec.CompletedStep)

	rec.ScanResults = &model.ScanResults{IsComplete: true, ScannedAt: time.Now()}
	require.NoError(t, MarkStepCompleted(rec, model.StepValidation))
	assert.Equal(t, 1, rec.CompletedStep)

	// Step 3 needs both the generated document and the printed acknowledgment.
	rec.Photos = []model.DistributionPhoto{{FileRef: "photos/SUB2026001/a.jpg"}}
	require.NoError(t, MarkStepCompleted(rec, model.StepPhotography))

	rec.DocumentRef = "handover/SUB2026001.pdf"
	err = MarkStepCompleted(rec, model.StepDocument)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "printed")
	assert.Equal(t, 2, rec.CompletedStep)

	printed := time.Now()
	rec.PrintedAt = &printed
	require.NoError(t, MarkStepCompleted(rec, model.StepDocument))
	assert.Equal(t, 3, rec.CompletedStep)
}

func TestMarkStepCompletedResumesAfterInterruption(t *testing.T) {
	// A fresh load of the persisted record resumes exactly where it stopped.
	scanned := time.Now()
	printed := time.Now()
	rec := &model.DistributionRecord{
		CompletedStep: 3,
		ScanResults:   &model.ScanResults{IsComplete: true, ScannedAt: scanned},
		Photos:        []model.DistributionPhoto{{FileRef: "photos/SUB2026002/a.jpg"}},
		DocumentRef:   "handover/SUB2026002.pdf",
		PrintedAt:     &printed,
	}

	err := MarkStepCompleted(rec, model.StepConfirmation)
	require.Error(t, err, "confirmation before upload must fail")

	rec.SignedDocRef = "signed/SUB2026002.pdf"
	require.NoError(t, MarkStepCompleted(rec, model.StepUpload))

	rec.ReceiverName = "Pak Slamet"
	require.NoError(t, MarkStepCompleted(rec, model.StepConfirmation))
	assert.Equal(t, 5, rec.CompletedStep)
}

func TestMarkStepCompletedRevisitKeepsProgress(t *testing.T) {
	rec := &model.DistributionRecord{
		CompletedStep: 2,
		ScanResults:   &model.ScanResults{IsComplete: true},
		Photos:        []model.DistributionPhoto{{FileRef: "photos/SUB2026003/a.jpg"}},
	}

	// Rescanning after photos were taken keeps CompletedStep at 2.
	require.NoError(t, MarkStepCompleted(rec, model.StepValidation))
	assert.Equal(t, 2, rec.CompletedStep)
}

func approvedItem(code string, approved int) model.SubmissionItem {
	return model.SubmissionItem{
		ID:           uuid.New(),
		Medicine:     model.Medicine{Code: code},
		RequestedQty: approved + 1,
		ApprovedQty:  approved,
	}
}

func TestValidateScan(t *testing.T) {
	items := []model.SubmissionItem{approvedItem("MED-A", 5), approvedItem("MED-B", 3)}

	tests := []struct {
		name     string
		scanned  []model.ScannedItem
		wantKind apperrors.Kind
	}{
		{"exact match", []model.ScannedItem{
			{MedicineCode: "MED-A", Quantity: 5},
			{MedicineCode: "MED-B", Quantity: 3},
		}, ""},
		{"split scans accumulate", []model.ScannedItem{
			{MedicineCode: "MED-A", Quantity: 2},
			{MedicineCode: "MED-A", Quantity: 3},
			{MedicineCode: "MED-B", Quantity: 3},
		}, ""},
		{"nothing scanned", nil, apperrors.KindValidation},
		{"quantity short", []model.ScannedItem{
			{MedicineCode: "MED-A", Quantity: 4},
			{MedicineCode: "MED-B", Quantity: 3},
		}, apperrors.KindBusinessLogic},
		{"quantity over", []model.ScannedItem{
			{MedicineCode: "MED-A", Quantity: 6},
			{MedicineCode: "MED-B", Quantity: 3},
		}, apperrors.KindBusinessLogic},
		{"unknown code", []model.ScannedItem{
			{MedicineCode: "MED-A", Quantity: 5},
			{MedicineCode: "MED-B", Quantity: 3},
			{MedicineCode: "MED-X", Quantity: 1},
		}, apperrors.KindBusinessLogic},
		{"item missing", []model.ScannedItem{
			{MedicineCode: "MED-A", Quantity: 5},
		}, apperrors.KindBusinessLogic},
		{"non-positive quantity", []model.ScannedItem{
			{MedicineCode: "MED-A", Quantity: 0},
		}, apperrors.KindValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateScan(items, tt.scanned)
			if tt.wantKind == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, apperrors.KindOf(err))
		})
	}
}

func TestValidateScanIgnoresZeroApprovedLines(t *testing.T) {
	items := []model.SubmissionItem{approvedItem("MED-A", 5), approvedItem("MED-B", 0)}

	// The zero-approved line must not be required, and scanning it is an error.
	assert.NoError(t, ValidateScan(items, []model.ScannedItem{{MedicineCode: "MED-A", Quantity: 5}}))

	err := ValidateScan(items, []model.ScannedItem{
		{MedicineCode: "MED-A", Quantity: 5},
		{MedicineCode: "MED-B", Quantity: 1},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindBusinessLogic))
}

func TestStepName(t *testing.T) {
	assert.Equal(t, "validation", StepName(model.StepValidation))
	assert.Equal(t, "confirmation", StepName(model.StepConfirmation))
	assert.Equal(t, "unknown", StepName(9))
}
