package service

import (
	"context"
	"fmt"
	"time"

	"agromed-backend/internal/model"
	"agromed-backend/internal/repository"
	"agromed-backend/internal/storage"
	ws "agromed-backend/internal/websocket"
	"agromed-backend/internal/workflow"
	"agromed-backend/pkg/apperrors"

	"github.com/google/uuid"
)

// --- DTOs ---

type ScanRequest struct {
	Items []model.ScannedItem `json:"items" binding:"required,min=1,dive"`
}

type ItemDistributionRequest struct {
	ItemID   string `json:"item_id" binding:"required"`
	Quantity int    `json:"quantity" binding:"required,gt=0"`
}

type ConfirmDistributionRequest struct {
	ReceiverName     string                    `json:"receiver_name" binding:"required"`
	ReceiverIdentity string                    `json:"receiver_identity" binding:"required"`
	Notes            string                    `json:"notes"`
	Items            []ItemDistributionRequest `json:"items" binding:"required,min=1,dive"`
}

// DistributionProgress is the wizard state returned to clients so a
// disconnected operator resumes from persisted data, not browser state.
type DistributionProgress struct {
	SubmissionID     string                    `json:"submission_id"`
	SubmissionStatus string                    `json:"submission_status"`
	CompletedStep    int                       `json:"completed_step"`
	CurrentStep      int                       `json:"current_step"`
	Record           *model.DistributionRecord `json:"record"`
}

// --- Interface ---

type DistributionService interface {
	Begin(ctx context.Context, actor Actor, submissionID uuid.UUID) (*model.Submission, error)
	Progress(ctx context.Context, submissionID uuid.UUID) (*DistributionProgress, error)
	// Step 1: scanned items must reconcile exactly with approved quantities.
	SubmitScan(ctx context.Context, actor Actor, submissionID uuid.UUID, req ScanRequest) (*model.DistributionRecord, error)
	// Step 2: at least one hand-over photo.
	AttachPhoto(ctx context.Context, actor Actor, submissionID uuid.UUID, content []byte, contentType, caption string) (*model.DistributionPhoto, error)
	// Step 3: generate the handover document (idempotent ref), then
	// acknowledge it printed.
	GenerateDocument(ctx context.Context, actor Actor, submissionID uuid.UUID) (string, error)
	AcknowledgePrinted(ctx context.Context, actor Actor, submissionID uuid.UUID) (*model.DistributionRecord, error)
	// Step 4: counter-signed document upload (pdf/jpeg/png).
	UploadSignedDocument(ctx context.Context, actor Actor, submissionID uuid.UUID, content []byte, contentType string) (*model.DistributionRecord, error)
	// Step 5: confirm hand-over; reconciles quantities against stock and
	// completes the submission when fully distributed.
	Confirm(ctx context.Context, actor Actor, submissionID uuid.UUID, req ConfirmDistributionRequest) (*model.Submission, error)
}

type distributionService struct {
	subRepo   repository.SubmissionRepository
	distRepo  repository.DistributionRepository
	stockRepo repository.StockRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
	files     storage.FileStore
	documents DocumentService
	hub       *ws.Hub
}

func NewDistributionService(
	subRepo repository.SubmissionRepository,
	distRepo repository.DistributionRepository,
	stockRepo repository.StockRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	files storage.FileStore,
	documents DocumentService,
	hub *ws.Hub,
) DistributionService {
	return &distributionService{
		subRepo:   subRepo,
		distRepo:  distRepo,
		stockRepo: stockRepo,
		auditRepo: auditRepo,
		txManager: txManager,
		files:     files,
		documents: documents,
		hub:       hub,
	}
}

func (s *distributionService) Begin(ctx context.Context, actor Actor, submissionID uuid.UUID) (*model.Submission, error) {
	var result *model.Submission
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		sub, err := s.subRepo.FindByID(txCtx, submissionID)
		if err != nil {
			return err
		}

		next, err := workflow.Transition(sub.Status, workflow.ActionBeginDistribution, actor.Role)
		if err != nil {
			return err
		}

		if sub.Distribution == nil {
			rec := &model.DistributionRecord{
				SubmissionID:  sub.ID,
				DistributedBy: actor.ID,
			}
			if err := s.distRepo.Create(txCtx, rec); err != nil {
				return fmt.Errorf("failed to create distribution record: %w", err)
			}
			sub.Distribution = rec
		}

		before := sub.Status
		sub.Status = next
		if err := s.subRepo.Save(txCtx, sub, sub.Version); err != nil {
			return err
		}

		if err := writeAudit(txCtx, s.auditRepo, actor, model.ActionBeginDistribution,
			model.ResourceSubmission, sub.ID.String(),
			map[string]interface{}{"status": before},
			map[string]interface{}{"status": next}); err != nil {
			return err
		}

		result = sub
		return nil
	})
	if err != nil {
		return nil, err
	}

	broadcast(s.hub, "submission_status_changed", map[string]interface{}{
		"submission_id": result.ID.String(),
		"number":        result.Number,
		"status":        result.Status,
	})
	return result, nil
}

func (s *distributionService) Progress(ctx context.Context, submissionID uuid.UUID) (*DistributionProgress, error) {
	sub, err := s.subRepo.FindByID(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	rec, err := s.distRepo.FindBySubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}

	progress := &DistributionProgress{
		SubmissionID:     sub.ID.String(),
		SubmissionStatus: sub.Status,
		Record:           rec,
	}
	if rec != nil {
		progress.CompletedStep = rec.CompletedStep
		progress.CurrentStep = rec.CompletedStep + 1
		if progress.CurrentStep > model.StepConfirmation {
			progress.CurrentStep = model.StepConfirmation
		}
	}
	return progress, nil
}

// loadActive fetches the submission and its wizard record, checking the
// submission is actually in a distributable state.
func (s *distributionService) loadActive(ctx context.Context, submissionID uuid.UUID) (*model.Submission, *model.DistributionRecord, error) {
	sub, err := s.subRepo.FindByID(ctx, submissionID)
	if err != nil {
		return nil, nil, err
	}
	if sub.Status != model.StatusReadyDistribution && sub.Status != model.StatusDistributing {
		return nil, nil, apperrors.BusinessLogic("submission %s is %s, not in distribution", sub.Number, sub.Status)
	}
	rec, err := s.distRepo.FindBySubmission(ctx, submissionID)
	if err != nil {
		return nil, nil, err
	}
	if rec == nil {
		return nil, nil, apperrors.BusinessLogic("distribution has not been started for submission %s", sub.Number)
	}
	return sub, rec, nil
}

func (s *distributionService) SubmitScan(ctx context.Context, actor Actor, submissionID uuid.UUID, req ScanRequest) (*model.DistributionRecord, error) {
	var result *model.DistributionRecord
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		sub, rec, err := s.loadActive(txCtx, submissionID)
		if err != nil {
			return err
		}
		if err := workflow.CheckStepOrder(rec, model.StepValidation); err != nil {
			return err
		}
		if err := workflow.ValidateScan(sub.Items, req.Items); err != nil {
			return err
		}

		rec.ScanResults = &model.ScanResults{
			ScannedItems: req.Items,
			IsComplete:   true,
			ScannedAt:    time.Now(),
		}
		if err := workflow.MarkStepCompleted(rec, model.StepValidation); err != nil {
			return err
		}
		if err := s.distRepo.Update(txCtx, rec); err != nil {
			return err
		}

		// First completed step moves the submission into distributing.
		if sub.Status == model.StatusReadyDistribution {
			next, trErr := workflow.Transition(sub.Status, workflow.ActionStartDistribution, actor.Role)
			if trErr != nil {
				return trErr
			}
			sub.Status = next
			if err := s.subRepo.Save(txCtx, sub, sub.Version); err != nil {
				return err
			}
		}

		if err := writeAudit(txCtx, s.auditRepo, actor, model.ActionScanValidation,
			model.ResourceDistribution, rec.ID.String(),
			nil, rec.ScanResults); err != nil {
			return err
		}

		result = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *distributionService) AttachPhoto(ctx context.Context, actor Actor, submissionID uuid.UUID, content []byte, contentType, caption string) (*model.DistributionPhoto, error) {
	if len(content) == 0 {
		return nil, apperrors.Validation("photo content is empty")
	}
	ext, err := storage.ExtensionFor(contentType)
	if err != nil {
		return nil, err
	}
	if ext == ".pdf" {
		return nil, apperrors.Validation("hand-over photos must be jpeg or png images")
	}

	var result *model.DistributionPhoto
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		sub, rec, err := s.loadActive(txCtx, submissionID)
		if err != nil {
			return err
		}
		if err := workflow.CheckStepOrder(rec, model.StepPhotography); err != nil {
			return err
		}

		ref := fmt.Sprintf("photos/%s/%s%s", sub.Number, uuid.NewString(), ext)
		if err := s.files.Store(txCtx, ref, content); err != nil {
			return err
		}

		photo := &model.DistributionPhoto{
			DistributionID: rec.ID,
			FileRef:        ref,
			Caption:        caption,
		}
		if err := s.distRepo.AddPhoto(txCtx, photo); err != nil {
			return err
		}

		rec.Photos = append(rec.Photos, *photo)
		if err := workflow.MarkStepCompleted(rec, model.StepPhotography); err != nil {
			return err
		}
		if err := s.distRepo.Update(txCtx, rec); err != nil {
			return err
		}

		if err := writeAudit(txCtx, s.auditRepo, actor, model.ActionAttachPhoto,
			model.ResourceDistribution, rec.ID.String(),
			nil, map[string]interface{}{"file_ref": ref, "caption": caption}); err != nil {
			return err
		}

		result = photo
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GenerateDocument renders and stores the handover document. The reference
// is derived from the submission number, so re-generating with identical
// inputs overwrites the same artifact and returns the same ref.
func (s *distributionService) GenerateDocument(ctx context.Context, actor Actor, submissionID uuid.UUID) (string, error) {
	var ref string
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		sub, rec, err := s.loadActive(txCtx, submissionID)
		if err != nil {
			return err
		}
		if err := workflow.CheckStepOrder(rec, model.StepDocument); err != nil {
			return err
		}

		content, err := s.documents.RenderHandover(sub, rec)
		if err != nil {
			return err
		}

		ref = HandoverDocumentRef(sub.Number)
		if err := s.files.Store(txCtx, ref, content); err != nil {
			return err
		}

		if rec.DocumentRef == ref {
			// Regeneration with unchanged inputs: artifact refreshed, state
			// untouched, same reference handed back.
			return nil
		}

		rec.DocumentRef = ref
		if err := s.distRepo.Update(txCtx, rec); err != nil {
			return err
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionGenerateDocument,
			model.ResourceDistribution, rec.ID.String(),
			nil, map[string]interface{}{"document_ref": ref})
	})
	if err != nil {
		return "", err
	}
	return ref, nil
}

func (s *distributionService) AcknowledgePrinted(ctx context.Context, actor Actor, submissionID uuid.UUID) (*model.DistributionRecord, error) {
	var result *model.DistributionRecord
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		_, rec, err := s.loadActive(txCtx, submissionID)
		if err != nil {
			return err
		}
		if err := workflow.CheckStepOrder(rec, model.StepDocument); err != nil {
			return err
		}
		if rec.DocumentRef == "" {
			return apperrors.BusinessLogic("handover document must be generated before acknowledging print")
		}

		now := time.Now()
		rec.PrintedAt = &now
		if err := workflow.MarkStepCompleted(rec, model.StepDocument); err != nil {
			return err
		}
		if err := s.distRepo.Update(txCtx, rec); err != nil {
			return err
		}

		if err := writeAudit(txCtx, s.auditRepo, actor, model.ActionGenerateDocument,
			model.ResourceDistribution, rec.ID.String(),
			nil, map[string]interface{}{"printed_at": now.Format(time.RFC3339)}); err != nil {
			return err
		}

		result = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *distributionService) UploadSignedDocument(ctx context.Context, actor Actor, submissionID uuid.UUID, content []byte, contentType string) (*model.DistributionRecord, error) {
	if len(content) == 0 {
		return nil, apperrors.Validation("signed document content is empty")
	}
	ext, err := storage.ExtensionFor(contentType)
	if err != nil {
		return nil, err
	}

	var result *model.DistributionRecord
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		sub, rec, err := s.loadActive(txCtx, submissionID)
		if err != nil {
			return err
		}
		if err := workflow.CheckStepOrder(rec, model.StepUpload); err != nil {
			return err
		}

		ref := fmt.Sprintf("signed/%s%s", sub.Number, ext)
		if err := s.files.Store(txCtx, ref, content); err != nil {
			return err
		}

		rec.SignedDocRef = ref
		if err := workflow.MarkStepCompleted(rec, model.StepUpload); err != nil {
			return err
		}
		if err := s.distRepo.Update(txCtx, rec); err != nil {
			return err
		}

		if err := writeAudit(txCtx, s.auditRepo, actor, model.ActionUploadSignedDoc,
			model.ResourceDistribution, rec.ID.String(),
			nil, map[string]interface{}{"signed_doc_ref": ref}); err != nil {
			return err
		}

		result = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *distributionService) Confirm(ctx context.Context, actor Actor, submissionID uuid.UUID, req ConfirmDistributionRequest) (*model.Submission, error) {
	var result *model.Submission
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		sub, rec, err := s.loadActive(txCtx, submissionID)
		if err != nil {
			return err
		}
		if err := workflow.CheckStepOrder(rec, model.StepConfirmation); err != nil {
			return err
		}

		before := map[string]interface{}{"status": sub.Status, "items": itemQuantities(sub.Items)}

		itemsByID := make(map[uuid.UUID]*model.SubmissionItem, len(sub.Items))
		for i := range sub.Items {
			itemsByID[sub.Items[i].ID] = &sub.Items[i]
		}

		for _, dr := range req.Items {
			itemID, parseErr := uuid.Parse(dr.ItemID)
			if parseErr != nil {
				return apperrors.Validation("invalid item_id %q", dr.ItemID)
			}
			item, ok := itemsByID[itemID]
			if !ok {
				return apperrors.NotFound("submission item", itemID)
			}
			if err := workflow.CheckDistribution(*item, dr.Quantity); err != nil {
				return err
			}

			if err := s.distributeItem(txCtx, sub, rec, item, dr.Quantity); err != nil {
				return err
			}

			item.DistributedQty += dr.Quantity
			if err := workflow.CheckItemQuantities(*item); err != nil {
				return err
			}
			if err := s.subRepo.UpdateItem(txCtx, item); err != nil {
				return err
			}
		}

		rec.ReceiverName = req.ReceiverName
		rec.ReceiverIdentity = req.ReceiverIdentity
		rec.Notes = req.Notes

		fully := workflow.FullyDistributed(sub.Items)
		if fully {
			next, trErr := workflow.Transition(sub.Status, workflow.ActionComplete, actor.Role)
			if trErr != nil {
				return trErr
			}
			if err := workflow.MarkStepCompleted(rec, model.StepConfirmation); err != nil {
				return err
			}
			now := time.Now()
			rec.CompletedAt = &now
			sub.Status = next
		}

		if err := s.distRepo.Update(txCtx, rec); err != nil {
			return err
		}
		// Version bump serializes concurrent confirmations even when the
		// status did not change (partial hand-over).
		if err := s.subRepo.Save(txCtx, sub, sub.Version); err != nil {
			return err
		}

		if err := writeAudit(txCtx, s.auditRepo, actor, model.ActionConfirmDistribution,
			model.ResourceSubmission, sub.ID.String(), before,
			map[string]interface{}{
				"status":   sub.Status,
				"items":    itemQuantities(sub.Items),
				"receiver": req.ReceiverName,
				"complete": fully,
			}); err != nil {
			return err
		}

		result = sub
		return nil
	})
	if err != nil {
		return nil, err
	}

	broadcast(s.hub, "submission_status_changed", map[string]interface{}{
		"submission_id": result.ID.String(),
		"number":        result.Number,
		"status":        result.Status,
	})
	return result, nil
}

// distributeItem draws quantity for one item from the medicine's batches,
// earliest expiry first, under row locks. Batches are decremented with a
// guarded UPDATE so a concurrent draw can never push stock negative.
func (s *distributionService) distributeItem(ctx context.Context, sub *model.Submission,
	rec *model.DistributionRecord, item *model.SubmissionItem, quantity int) error {

	batches, err := s.stockRepo.FindBatchesForUpdate(ctx, item.MedicineID)
	if err != nil {
		return err
	}

	plan, err := workflow.PlanAllocation(batches, quantity)
	if err != nil {
		return err
	}

	for _, alloc := range plan {
		stockAfter, decErr := s.stockRepo.Decrement(ctx, alloc.BatchID, alloc.Quantity)
		if decErr != nil {
			return decErr
		}

		subID := sub.ID
		movement := &model.StockMovement{
			BatchID:         alloc.BatchID,
			MedicineID:      item.MedicineID,
			SubmissionID:    &subID,
			MovementType:    model.MovementOut,
			QuantityChanged: -alloc.Quantity,
			StockAfter:      stockAfter,
		}
		if err := s.stockRepo.CreateMovement(ctx, movement); err != nil {
			return fmt.Errorf("failed to record stock movement: %w", err)
		}

		if err := s.distRepo.AddItem(ctx, &model.DistributionItem{
			DistributionID:   rec.ID,
			SubmissionItemID: item.ID,
			BatchID:          alloc.BatchID,
			Quantity:         alloc.Quantity,
		}); err != nil {
			return fmt.Errorf("failed to record batch attribution: %w", err)
		}
	}
	return nil
}
