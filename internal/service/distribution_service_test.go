package service

import (
	"context"
	"testing"
	"time"

	"agromed-backend/internal/model"
	"agromed-backend/pkg/apperrors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type distributionFixture struct {
	subRepo   *fakeSubmissionRepo
	distRepo  *fakeDistributionRepo
	stockRepo *fakeStockRepo
	auditRepo *fakeAuditRepo
	files     *memoryFileStore
	svc       DistributionService

	sub       *model.Submission
	warehouse Actor
}

// newDistributionFixture seeds an approved submission with one item
// (requested 5, approved 3) and two stock batches for its medicine.
func newDistributionFixture(t *testing.T) *distributionFixture {
	t.Helper()

	item := requestedItem("MED-A", 5)
	item.ApprovedQty = 3

	subRepo := newFakeSubmissionRepo()
	sub := seedSubmission(subRepo, model.StatusApproved, item)

	stockRepo := newFakeStockRepo(
		&model.StockBatch{
			MedicineID:   sub.Items[0].MedicineID,
			BatchNumber:  "B-EARLY",
			CurrentStock: 2,
			ExpiryDate:   time.Now().AddDate(0, 1, 0),
		},
		&model.StockBatch{
			MedicineID:   sub.Items[0].MedicineID,
			BatchNumber:  "B-LATE",
			CurrentStock: 10,
			ExpiryDate:   time.Now().AddDate(1, 0, 0),
		},
	)

	f := &distributionFixture{
		subRepo:   subRepo,
		distRepo:  newFakeDistributionRepo(),
		stockRepo: stockRepo,
		auditRepo: &fakeAuditRepo{},
		files:     newMemoryFileStore(),
		sub:       sub,
		warehouse: Actor{ID: uuid.New(), Role: model.RoleWarehouseOfficer},
	}
	f.svc = NewDistributionService(f.subRepo, f.distRepo, f.stockRepo, f.auditRepo,
		&fakeTxManager{}, f.files, NewDocumentService(), nil)
	return f
}

func (f *distributionFixture) begin(t *testing.T) {
	t.Helper()
	_, err := f.svc.Begin(context.Background(), f.warehouse, f.sub.ID)
	require.NoError(t, err)
}

func (f *distributionFixture) scan(t *testing.T) {
	t.Helper()
	_, err := f.svc.SubmitScan(context.Background(), f.warehouse, f.sub.ID, ScanRequest{
		Items: []model.ScannedItem{{MedicineCode: "MED-A", Quantity: 3}},
	})
	require.NoError(t, err)
}

func (f *distributionFixture) photo(t *testing.T) {
	t.Helper()
	_, err := f.svc.AttachPhoto(context.Background(), f.warehouse, f.sub.ID, []byte("jpegdata"), "image/jpeg", "handover at the village office")
	require.NoError(t, err)
}

func (f *distributionFixture) document(t *testing.T) string {
	t.Helper()
	ref, err := f.svc.GenerateDocument(context.Background(), f.warehouse, f.sub.ID)
	require.NoError(t, err)
	_, err = f.svc.AcknowledgePrinted(context.Background(), f.warehouse, f.sub.ID)
	require.NoError(t, err)
	return ref
}

func (f *distributionFixture) signed(t *testing.T) {
	t.Helper()
	_, err := f.svc.UploadSignedDocument(context.Background(), f.warehouse, f.sub.ID, []byte("%PDF-1.4 signed"), "application/pdf")
	require.NoError(t, err)
}

func TestBeginDistribution(t *testing.T) {
	f := newDistributionFixture(t)

	got, err := f.svc.Begin(context.Background(), f.warehouse, f.sub.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusReadyDistribution, got.Status)
	require.NotNil(t, f.distRepo.records[f.sub.ID])
	assert.Equal(t, 0, f.distRepo.records[f.sub.ID].CompletedStep)

	// A reviewer may not open distribution.
	f2 := newDistributionFixture(t)
	_, err = f2.svc.Begin(context.Background(), Actor{ID: uuid.New(), Role: model.RoleReviewer}, f2.sub.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindAuthorization))
}

func TestStepsOutOfOrderRejected(t *testing.T) {
	f := newDistributionFixture(t)
	f.begin(t)

	// Photos before the scan step.
	_, err := f.svc.AttachPhoto(context.Background(), f.warehouse, f.sub.ID, []byte("jpegdata"), "image/jpeg", "")
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindBusinessLogic))

	// Signed document before anything else.
	_, err = f.svc.UploadSignedDocument(context.Background(), f.warehouse, f.sub.ID, []byte("%PDF"), "application/pdf")
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindBusinessLogic))

	// After completing step 1 the next step unlocks.
	f.scan(t)
	f.photo(t)
	assert.Equal(t, 2, f.distRepo.records[f.sub.ID].CompletedStep)
}

func TestScanMovesSubmissionToDistributing(t *testing.T) {
	f := newDistributionFixture(t)
	f.begin(t)

	rec, err := f.svc.SubmitScan(context.Background(), f.warehouse, f.sub.ID, ScanRequest{
		Items: []model.ScannedItem{{MedicineCode: "MED-A", Quantity: 3}},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, rec.CompletedStep)
	require.NotNil(t, rec.ScanResults)
	assert.True(t, rec.ScanResults.IsComplete)
	assert.Equal(t, model.StatusDistributing, f.subRepo.submissions[f.sub.ID].Status)
}

func TestScanMismatchRejected(t *testing.T) {
	f := newDistributionFixture(t)
	f.begin(t)

	// Scanning the requested quantity instead of the approved one.
	_, err := f.svc.SubmitScan(context.Background(), f.warehouse, f.sub.ID, ScanRequest{
		Items: []model.ScannedItem{{MedicineCode: "MED-A", Quantity: 5}},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindBusinessLogic))
	assert.Equal(t, 0, f.distRepo.records[f.sub.ID].CompletedStep)
	assert.Equal(t, model.StatusReadyDistribution, f.subRepo.submissions[f.sub.ID].Status)

	// Corrected rescan succeeds.
	f.scan(t)
}

func TestAttachPhotoRejectsNonImages(t *testing.T) {
	f := newDistributionFixture(t)
	f.begin(t)
	f.scan(t)

	_, err := f.svc.AttachPhoto(context.Background(), f.warehouse, f.sub.ID, []byte("%PDF"), "application/pdf", "")
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))

	_, err = f.svc.AttachPhoto(context.Background(), f.warehouse, f.sub.ID, []byte("gifdata"), "image/gif", "")
	require.Error(t, err)
}

func TestGenerateDocumentIsIdempotent(t *testing.T) {
	f := newDistributionFixture(t)
	f.begin(t)
	f.scan(t)
	f.photo(t)

	ref1, err := f.svc.GenerateDocument(context.Background(), f.warehouse, f.sub.ID)
	require.NoError(t, err)
	assert.Equal(t, HandoverDocumentRef(f.sub.Number), ref1)
	assert.True(t, f.files.Exists(context.Background(), ref1))
	audits := len(f.auditRepo.entries)

	ref2, err := f.svc.GenerateDocument(context.Background(), f.warehouse, f.sub.ID)
	require.NoError(t, err)
	assert.Equal(t, ref1, ref2, "regeneration returns the same reference")
	assert.Len(t, f.auditRepo.entries, audits, "unchanged regeneration is not audited")
}

func TestAcknowledgePrintedRequiresDocument(t *testing.T) {
	f := newDistributionFixture(t)
	f.begin(t)
	f.scan(t)
	f.photo(t)

	_, err := f.svc.AcknowledgePrinted(context.Background(), f.warehouse, f.sub.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindBusinessLogic))

	_, err = f.svc.GenerateDocument(context.Background(), f.warehouse, f.sub.ID)
	require.NoError(t, err)
	rec, err := f.svc.AcknowledgePrinted(context.Background(), f.warehouse, f.sub.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, rec.CompletedStep)
	require.NotNil(t, rec.PrintedAt)
}

func TestConfirmCompletesAndDrawsStockFIFO(t *testing.T) {
	f := newDistributionFixture(t)
	f.begin(t)
	f.scan(t)
	f.photo(t)
	f.document(t)
	f.signed(t)

	got, err := f.svc.Confirm(context.Background(), f.warehouse, f.sub.ID, ConfirmDistributionRequest{
		ReceiverName:     "Pak Slamet",
		ReceiverIdentity: "3215XXXX",
		Items: []ItemDistributionRequest{
			{ItemID: f.sub.Items[0].ID.String(), Quantity: 3},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, model.StatusCompleted, got.Status)
	assert.Equal(t, 3, got.Items[0].DistributedQty)

	rec := f.distRepo.records[f.sub.ID]
	assert.Equal(t, 5, rec.CompletedStep)
	require.NotNil(t, rec.CompletedAt)
	assert.Equal(t, "Pak Slamet", rec.ReceiverName)

	// Earliest-expiring batch is drained first: 2 from B-EARLY, 1 from B-LATE.
	require.Len(t, f.stockRepo.movements, 2)
	assert.Equal(t, -2, f.stockRepo.movements[0].QuantityChanged)
	assert.Equal(t, 0, f.stockRepo.movements[0].StockAfter)
	assert.Equal(t, -1, f.stockRepo.movements[1].QuantityChanged)
	assert.Equal(t, 9, f.stockRepo.movements[1].StockAfter)
	for _, m := range f.stockRepo.movements {
		assert.Equal(t, model.MovementOut, m.MovementType)
		require.NotNil(t, m.SubmissionID)
		assert.Equal(t, f.sub.ID, *m.SubmissionID)
	}

	require.Len(t, f.distRepo.items, 2, "each batch draw is attributed")
}

func TestConfirmPartialKeepsDistributing(t *testing.T) {
	f := newDistributionFixture(t)
	f.begin(t)
	f.scan(t)
	f.photo(t)
	f.document(t)
	f.signed(t)

	got, err := f.svc.Confirm(context.Background(), f.warehouse, f.sub.ID, ConfirmDistributionRequest{
		ReceiverName:     "Pak Slamet",
		ReceiverIdentity: "3215XXXX",
		Items: []ItemDistributionRequest{
			{ItemID: f.sub.Items[0].ID.String(), Quantity: 2},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, model.StatusDistributing, got.Status, "partial hand-over does not complete")
	assert.Equal(t, 2, got.Items[0].DistributedQty)
	assert.Nil(t, f.distRepo.records[f.sub.ID].CompletedAt)

	// The remainder completes it.
	got, err = f.svc.Confirm(context.Background(), f.warehouse, f.sub.ID, ConfirmDistributionRequest{
		ReceiverName:     "Pak Slamet",
		ReceiverIdentity: "3215XXXX",
		Items: []ItemDistributionRequest{
			{ItemID: f.sub.Items[0].ID.String(), Quantity: 1},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, got.Status)
}

func TestConfirmOverDistributionRejected(t *testing.T) {
	f := newDistributionFixture(t)
	f.begin(t)
	f.scan(t)
	f.photo(t)
	f.document(t)
	f.signed(t)

	// Approved is 3; handing over 4 must fail before stock moves.
	_, err := f.svc.Confirm(context.Background(), f.warehouse, f.sub.ID, ConfirmDistributionRequest{
		ReceiverName:     "Pak Slamet",
		ReceiverIdentity: "3215XXXX",
		Items: []ItemDistributionRequest{
			{ItemID: f.sub.Items[0].ID.String(), Quantity: 4},
		},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindOverDistribution))
	assert.Empty(t, f.stockRepo.movements)
	assert.Equal(t, 0, f.subRepo.submissions[f.sub.ID].Items[0].DistributedQty)
}

func TestConfirmInsufficientStock(t *testing.T) {
	f := newDistributionFixture(t)
	for _, b := range f.stockRepo.batches {
		b.CurrentStock = 1
	}
	f.begin(t)
	f.scan(t)
	f.photo(t)
	f.document(t)
	f.signed(t)

	_, err := f.svc.Confirm(context.Background(), f.warehouse, f.sub.ID, ConfirmDistributionRequest{
		ReceiverName:     "Pak Slamet",
		ReceiverIdentity: "3215XXXX",
		Items: []ItemDistributionRequest{
			{ItemID: f.sub.Items[0].ID.String(), Quantity: 3},
		},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindInsufficientStock))
}

func TestConfirmBeforeSignedUploadRejected(t *testing.T) {
	f := newDistributionFixture(t)
	f.begin(t)
	f.scan(t)
	f.photo(t)
	f.document(t)

	_, err := f.svc.Confirm(context.Background(), f.warehouse, f.sub.ID, ConfirmDistributionRequest{
		ReceiverName:     "Pak Slamet",
		ReceiverIdentity: "3215XXXX",
		Items: []ItemDistributionRequest{
			{ItemID: f.sub.Items[0].ID.String(), Quantity: 3},
		},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindBusinessLogic))
}

func TestProgressResumesFromPersistedState(t *testing.T) {
	f := newDistributionFixture(t)
	f.begin(t)
	f.scan(t)
	f.photo(t)

	progress, err := f.svc.Progress(context.Background(), f.sub.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, progress.CompletedStep)
	assert.Equal(t, 3, progress.CurrentStep)
	assert.Equal(t, model.StatusDistributing, progress.SubmissionStatus)
	require.NotNil(t, progress.Record)

	// Before the wizard opens there is no record and no current step.
	f2 := newDistributionFixture(t)
	progress, err = f2.svc.Progress(context.Background(), f2.sub.ID)
	require.NoError(t, err)
	assert.Nil(t, progress.Record)
	assert.Equal(t, 0, progress.CurrentStep)
}

func TestCompletedWizardRejectsFurtherWork(t *testing.T) {
	f := newDistributionFixture(t)
	f.begin(t)
	f.scan(t)
	f.photo(t)
	f.document(t)
	f.signed(t)

	_, err := f.svc.Confirm(context.Background(), f.warehouse, f.sub.ID, ConfirmDistributionRequest{
		ReceiverName:     "Pak Slamet",
		ReceiverIdentity: "3215XXXX",
		Items: []ItemDistributionRequest{
			{ItemID: f.sub.Items[0].ID.String(), Quantity: 3},
		},
	})
	require.NoError(t, err)

	// The submission is completed; nothing in the wizard is reachable now.
	_, err = f.svc.SubmitScan(context.Background(), f.warehouse, f.sub.ID, ScanRequest{
		Items: []model.ScannedItem{{MedicineCode: "MED-A", Quantity: 3}},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindBusinessLogic))
}
