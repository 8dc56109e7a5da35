package service

import (
	"context"
	"sort"
	"time"

	"agromed-backend/internal/model"
	"agromed-backend/internal/repository"
	"agromed-backend/pkg/apperrors"

	"github.com/google/uuid"
)

// In-memory repository fakes. The transaction fake just runs the closure;
// rollback semantics are not simulated, so tests assert on final state only.

type fakeTxManager struct{}

func (f *fakeTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

type fakeSubmissionRepo struct {
	submissions map[uuid.UUID]*model.Submission
	approvals   []*model.ApprovalRecord
	sequences   map[int]int
	stale       []model.Submission

	// forceConflict makes every Save fail as if a concurrent writer won.
	forceConflict bool
}

func newFakeSubmissionRepo() *fakeSubmissionRepo {
	return &fakeSubmissionRepo{
		submissions: make(map[uuid.UUID]*model.Submission),
		sequences:   make(map[int]int),
	}
}

func (f *fakeSubmissionRepo) Create(ctx context.Context, sub *model.Submission) error {
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	for i := range sub.Items {
		if sub.Items[i].ID == uuid.Nil {
			sub.Items[i].ID = uuid.New()
		}
		sub.Items[i].SubmissionID = sub.ID
	}
	f.submissions[sub.ID] = sub
	return nil
}

func (f *fakeSubmissionRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Submission, error) {
	sub, ok := f.submissions[id]
	if !ok {
		return nil, apperrors.NotFound("submission", id)
	}
	return sub, nil
}

func (f *fakeSubmissionRepo) FindByNumber(ctx context.Context, number string) (*model.Submission, error) {
	for _, sub := range f.submissions {
		if sub.Number == number {
			return sub, nil
		}
	}
	return nil, apperrors.NotFound("submission", number)
}

func (f *fakeSubmissionRepo) List(ctx context.Context, filter repository.SubmissionFilter) ([]model.Submission, int64, error) {
	var out []model.Submission
	for _, sub := range f.submissions {
		if filter.Status != "" && sub.Status != filter.Status {
			continue
		}
		if filter.District != "" && sub.District != filter.District {
			continue
		}
		out = append(out, *sub)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, int64(len(out)), nil
}

func (f *fakeSubmissionRepo) ListStale(ctx context.Context, statuses []string, before time.Time) ([]model.Submission, error) {
	return f.stale, nil
}

func (f *fakeSubmissionRepo) Save(ctx context.Context, sub *model.Submission, expectedVersion int) error {
	if f.forceConflict {
		return apperrors.Conflict("submission %s was modified concurrently", sub.Number)
	}
	stored, ok := f.submissions[sub.ID]
	if !ok {
		return apperrors.NotFound("submission", sub.ID)
	}
	if stored.Version != expectedVersion {
		return apperrors.Conflict("submission %s was modified concurrently", sub.Number)
	}
	sub.Version = expectedVersion + 1
	f.submissions[sub.ID] = sub
	return nil
}

func (f *fakeSubmissionRepo) UpdateItem(ctx context.Context, item *model.SubmissionItem) error {
	return nil // items are shared pointers into the stored submission
}

func (f *fakeSubmissionRepo) CreateApproval(ctx context.Context, record *model.ApprovalRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	f.approvals = append(f.approvals, record)
	return nil
}

func (f *fakeSubmissionRepo) NextSequence(ctx context.Context, year int) (int, error) {
	f.sequences[year]++
	return f.sequences[year], nil
}

type fakeMedicineRepo struct {
	medicines map[uuid.UUID]*model.Medicine
}

func newFakeMedicineRepo(medicines ...*model.Medicine) *fakeMedicineRepo {
	f := &fakeMedicineRepo{medicines: make(map[uuid.UUID]*model.Medicine)}
	for _, m := range medicines {
		if m.ID == uuid.Nil {
			m.ID = uuid.New()
		}
		f.medicines[m.ID] = m
	}
	return f
}

func (f *fakeMedicineRepo) Create(ctx context.Context, medicine *model.Medicine) error {
	if medicine.ID == uuid.Nil {
		medicine.ID = uuid.New()
	}
	f.medicines[medicine.ID] = medicine
	return nil
}

func (f *fakeMedicineRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Medicine, error) {
	m, ok := f.medicines[id]
	if !ok {
		return nil, apperrors.NotFound("medicine", id)
	}
	return m, nil
}

func (f *fakeMedicineRepo) FindByCode(ctx context.Context, code string) (*model.Medicine, error) {
	for _, m := range f.medicines {
		if m.Code == code {
			return m, nil
		}
	}
	return nil, apperrors.NotFound("medicine", code)
}

func (f *fakeMedicineRepo) List(ctx context.Context, page, limit int, search string) ([]model.Medicine, int64, error) {
	var out []model.Medicine
	for _, m := range f.medicines {
		out = append(out, *m)
	}
	return out, int64(len(out)), nil
}

type fakeStockRepo struct {
	batches   map[uuid.UUID]*model.StockBatch
	movements []*model.StockMovement
}

func newFakeStockRepo(batches ...*model.StockBatch) *fakeStockRepo {
	f := &fakeStockRepo{batches: make(map[uuid.UUID]*model.StockBatch)}
	for _, b := range batches {
		if b.ID == uuid.Nil {
			b.ID = uuid.New()
		}
		f.batches[b.ID] = b
	}
	return f
}

func (f *fakeStockRepo) CreateBatch(ctx context.Context, batch *model.StockBatch) error {
	if batch.ID == uuid.Nil {
		batch.ID = uuid.New()
	}
	f.batches[batch.ID] = batch
	return nil
}

func (f *fakeStockRepo) FindBatchByID(ctx context.Context, id uuid.UUID) (*model.StockBatch, error) {
	b, ok := f.batches[id]
	if !ok {
		return nil, apperrors.NotFound("stock batch", id)
	}
	return b, nil
}

func (f *fakeStockRepo) ListBatches(ctx context.Context, medicineID *uuid.UUID, page, limit int) ([]model.StockBatch, int64, error) {
	var out []model.StockBatch
	for _, b := range f.batches {
		if medicineID != nil && b.MedicineID != *medicineID {
			continue
		}
		out = append(out, *b)
	}
	return out, int64(len(out)), nil
}

func (f *fakeStockRepo) FindBatchesForUpdate(ctx context.Context, medicineID uuid.UUID) ([]model.StockBatch, error) {
	var out []model.StockBatch
	for _, b := range f.batches {
		if b.MedicineID == medicineID && b.CurrentStock > 0 {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiryDate.Before(out[j].ExpiryDate) })
	return out, nil
}

func (f *fakeStockRepo) Decrement(ctx context.Context, batchID uuid.UUID, quantity int) (int, error) {
	b, ok := f.batches[batchID]
	if !ok {
		return 0, apperrors.NotFound("stock batch", batchID)
	}
	if b.CurrentStock < quantity {
		return 0, apperrors.InsufficientStock("batch %s has %d, needed %d", b.BatchNumber, b.CurrentStock, quantity)
	}
	b.CurrentStock -= quantity
	return b.CurrentStock, nil
}

func (f *fakeStockRepo) CreateMovement(ctx context.Context, movement *model.StockMovement) error {
	if movement.ID == uuid.Nil {
		movement.ID = uuid.New()
	}
	f.movements = append(f.movements, movement)
	return nil
}

func (f *fakeStockRepo) ListMovements(ctx context.Context, batchID *uuid.UUID, page, limit int) ([]model.StockMovement, int64, error) {
	var out []model.StockMovement
	for _, m := range f.movements {
		if batchID != nil && m.BatchID != *batchID {
			continue
		}
		out = append(out, *m)
	}
	return out, int64(len(out)), nil
}

func (f *fakeStockRepo) ListLowStock(ctx context.Context) ([]model.StockBatch, error) {
	var out []model.StockBatch
	for _, b := range f.batches {
		if b.CurrentStock <= b.MinStock {
			out = append(out, *b)
		}
	}
	return out, nil
}

type fakeDistributionRepo struct {
	records map[uuid.UUID]*model.DistributionRecord // by submission id
	items   []*model.DistributionItem
}

func newFakeDistributionRepo() *fakeDistributionRepo {
	return &fakeDistributionRepo{records: make(map[uuid.UUID]*model.DistributionRecord)}
}

func (f *fakeDistributionRepo) Create(ctx context.Context, rec *model.DistributionRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	f.records[rec.SubmissionID] = rec
	return nil
}

func (f *fakeDistributionRepo) FindBySubmission(ctx context.Context, submissionID uuid.UUID) (*model.DistributionRecord, error) {
	return f.records[submissionID], nil
}

func (f *fakeDistributionRepo) Update(ctx context.Context, rec *model.DistributionRecord) error {
	f.records[rec.SubmissionID] = rec
	return nil
}

func (f *fakeDistributionRepo) AddPhoto(ctx context.Context, photo *model.DistributionPhoto) error {
	if photo.ID == uuid.Nil {
		photo.ID = uuid.New()
	}
	return nil
}

func (f *fakeDistributionRepo) AddItem(ctx context.Context, item *model.DistributionItem) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	f.items = append(f.items, item)
	return nil
}

type fakeAuditRepo struct {
	entries []*model.AuditLog
}

func (f *fakeAuditRepo) Log(ctx context.Context, entry *model.AuditLog) error {
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeAuditRepo) List(ctx context.Context, resourceType, resourceID string, page, limit int) ([]model.AuditLog, int64, error) {
	var out []model.AuditLog
	for _, e := range f.entries {
		if resourceType != "" && e.ResourceType != resourceType {
			continue
		}
		if resourceID != "" && e.ResourceID != resourceID {
			continue
		}
		out = append(out, *e)
	}
	return out, int64(len(out)), nil
}

func (f *fakeAuditRepo) actions() []string {
	out := make([]string, 0, len(f.entries))
	for _, e := range f.entries {
		out = append(out, e.Action)
	}
	return out
}

// memoryFileStore keeps stored artifacts in a map for assertions.
type memoryFileStore struct {
	files map[string][]byte
}

func newMemoryFileStore() *memoryFileStore {
	return &memoryFileStore{files: make(map[string][]byte)}
}

func (m *memoryFileStore) Store(ctx context.Context, ref string, content []byte) error {
	m.files[ref] = content
	return nil
}

func (m *memoryFileStore) Fetch(ctx context.Context, ref string) ([]byte, error) {
	content, ok := m.files[ref]
	if !ok {
		return nil, apperrors.NotFound("file", ref)
	}
	return content, nil
}

func (m *memoryFileStore) Exists(ctx context.Context, ref string) bool {
	_, ok := m.files[ref]
	return ok
}
