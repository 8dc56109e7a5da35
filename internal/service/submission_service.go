package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"agromed-backend/internal/model"
	"agromed-backend/internal/repository"
	ws "agromed-backend/internal/websocket"
	"agromed-backend/internal/workflow"
	"agromed-backend/pkg/apperrors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- DTOs ---

type SubmissionItemRequest struct {
	MedicineID   string `json:"medicine_id" binding:"required"`
	RequestedQty int    `json:"requested_qty" binding:"required,gt=0"`
	Note         string `json:"note"`
}

type CreateSubmissionRequest struct {
	District     string                  `json:"district" binding:"required"`
	Village      string                  `json:"village" binding:"required"`
	FarmerGroup  string                  `json:"farmer_group" binding:"required"`
	GroupLeader  string                  `json:"group_leader" binding:"required"`
	Commodity    string                  `json:"commodity" binding:"required"`
	TotalArea    string                  `json:"total_area" binding:"required"`
	AffectedArea string                  `json:"affected_area" binding:"required"`
	PestTypes    []string                `json:"pest_types" binding:"required,min=1"`
	LetterNumber string                  `json:"letter_number"`
	LetterDate   *time.Time              `json:"letter_date"`
	LetterRef    string                  `json:"letter_ref"`
	Priority     string                  `json:"priority" binding:"omitempty,oneof=low medium high urgent"`
	Notes        string                  `json:"notes"`
	Items        []SubmissionItemRequest `json:"items" binding:"required,min=1,dive"`
}

type CancelSubmissionRequest struct {
	Reason string `json:"reason"`
}

// --- Interface ---

type SubmissionService interface {
	Create(ctx context.Context, actor Actor, req CreateSubmissionRequest) (*model.Submission, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Submission, error)
	List(ctx context.Context, filter repository.SubmissionFilter) ([]model.Submission, int64, error)
	Submit(ctx context.Context, actor Actor, id uuid.UUID) (*model.Submission, error)
	StartReview(ctx context.Context, actor Actor, id uuid.UUID) (*model.Submission, error)
	Cancel(ctx context.Context, actor Actor, id uuid.UUID, reason string) (*model.Submission, error)
	ExpireStale(ctx context.Context, maxAge time.Duration) (int, error)
}

type submissionService struct {
	subRepo      repository.SubmissionRepository
	medicineRepo repository.MedicineRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
	hub          *ws.Hub
}

func NewSubmissionService(
	subRepo repository.SubmissionRepository,
	medicineRepo repository.MedicineRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	hub *ws.Hub,
) SubmissionService {
	return &submissionService{
		subRepo:      subRepo,
		medicineRepo: medicineRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
		hub:          hub,
	}
}

// SubmissionNumber formats the human-readable sequential number assigned at
// creation, e.g. SUB2024001.
func SubmissionNumber(year, sequence int) string {
	return fmt.Sprintf("SUB%d%03d", year, sequence)
}

func (s *submissionService) Create(ctx context.Context, actor Actor, req CreateSubmissionRequest) (*model.Submission, error) {
	totalArea, err := decimal.NewFromString(req.TotalArea)
	if err != nil {
		return nil, apperrors.Validation("invalid total_area: %v", err)
	}
	affectedArea, err := decimal.NewFromString(req.AffectedArea)
	if err != nil {
		return nil, apperrors.Validation("invalid affected_area: %v", err)
	}
	if totalArea.LessThanOrEqual(decimal.Zero) {
		return nil, apperrors.Validation("total_area must be positive")
	}
	if affectedArea.LessThanOrEqual(decimal.Zero) || affectedArea.GreaterThan(totalArea) {
		return nil, apperrors.Validation("affected_area must be positive and not exceed total_area")
	}

	priority := req.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}

	items := make([]model.SubmissionItem, 0, len(req.Items))
	for _, ir := range req.Items {
		medicineID, parseErr := uuid.Parse(ir.MedicineID)
		if parseErr != nil {
			return nil, apperrors.Validation("invalid medicine_id %q", ir.MedicineID)
		}
		medicine, findErr := s.medicineRepo.FindByID(ctx, medicineID)
		if findErr != nil {
			return nil, findErr
		}
		items = append(items, model.SubmissionItem{
			MedicineID:   medicine.ID,
			Unit:         medicine.Unit,
			RequestedQty: ir.RequestedQty,
			Note:         ir.Note,
		})
	}

	actorID := actor.ID
	sub := &model.Submission{
		Status:       model.StatusDraft,
		Version:      1,
		District:     req.District,
		Village:      req.Village,
		FarmerGroup:  req.FarmerGroup,
		GroupLeader:  req.GroupLeader,
		Commodity:    req.Commodity,
		TotalArea:    totalArea,
		AffectedArea: affectedArea,
		PestTypes:    req.PestTypes,
		LetterNumber: req.LetterNumber,
		LetterDate:   req.LetterDate,
		LetterRef:    req.LetterRef,
		Priority:     priority,
		Notes:        req.Notes,
		CreatedBy:    &actorID,
		Items:        items,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		seq, seqErr := s.subRepo.NextSequence(txCtx, time.Now().Year())
		if seqErr != nil {
			return fmt.Errorf("failed to reserve submission number: %w", seqErr)
		}
		sub.Number = SubmissionNumber(time.Now().Year(), seq)

		if createErr := s.subRepo.Create(txCtx, sub); createErr != nil {
			return fmt.Errorf("failed to create submission: %w", createErr)
		}

		return writeAudit(txCtx, s.auditRepo, actor, model.ActionCreateSubmission,
			model.ResourceSubmission, sub.ID.String(),
			nil, map[string]interface{}{"number": sub.Number, "status": sub.Status, "items": len(sub.Items)})
	})
	if err != nil {
		return nil, err
	}

	return s.subRepo.FindByID(ctx, sub.ID)
}

func (s *submissionService) Get(ctx context.Context, id uuid.UUID) (*model.Submission, error) {
	return s.subRepo.FindByID(ctx, id)
}

func (s *submissionService) List(ctx context.Context, filter repository.SubmissionFilter) ([]model.Submission, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	return s.subRepo.List(ctx, filter)
}

func (s *submissionService) Submit(ctx context.Context, actor Actor, id uuid.UUID) (*model.Submission, error) {
	return s.transition(ctx, actor, id, workflow.ActionSubmit, model.ActionSubmitSubmission, nil)
}

func (s *submissionService) StartReview(ctx context.Context, actor Actor, id uuid.UUID) (*model.Submission, error) {
	return s.transition(ctx, actor, id, workflow.ActionStartReview, model.ActionStartReview, nil)
}

func (s *submissionService) Cancel(ctx context.Context, actor Actor, id uuid.UUID, reason string) (*model.Submission, error) {
	extra := map[string]interface{}{"reason": reason}
	return s.transition(ctx, actor, id, workflow.ActionCancel, model.ActionCancelSubmission, extra)
}

// transition loads, moves and saves a submission for simple (no-payload)
// lifecycle actions, writing the audit entry in the same transaction.
func (s *submissionService) transition(ctx context.Context, actor Actor, id uuid.UUID,
	action workflow.Action, auditAction string, extra map[string]interface{}) (*model.Submission, error) {

	var result *model.Submission
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		sub, err := s.subRepo.FindByID(txCtx, id)
		if err != nil {
			return err
		}

		next, err := workflow.Transition(sub.Status, action, actor.Role)
		if err != nil {
			return err
		}

		before := sub.Status
		sub.Status = next
		if next == model.StatusSubmitted {
			now := time.Now()
			sub.SubmittedAt = &now
		}

		if err := s.subRepo.Save(txCtx, sub, sub.Version); err != nil {
			return err
		}

		after := map[string]interface{}{"status": next}
		for k, v := range extra {
			after[k] = v
		}
		if err := writeAudit(txCtx, s.auditRepo, actor, auditAction,
			model.ResourceSubmission, sub.ID.String(),
			map[string]interface{}{"status": before}, after); err != nil {
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

// ExpireStale moves submissions that sat in submitted/under_review past the
// age limit to expired. Called by the periodic sweeper in cmd/api, never by
// request handlers.
func (s *submissionService) ExpireStale(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge)
	stale, err := s.subRepo.ListStale(ctx, []string{model.StatusSubmitted, model.StatusUnderReview}, cutoff)
	if err != nil {
		return 0, err
	}

	expired := 0
	for i := range stale {
		sub := stale[i]
		txErr := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
			next, err := workflow.Transition(sub.Status, workflow.ActionExpire, workflow.RoleSystem)
			if err != nil {
				return err
			}
			before := sub.Status
			sub.Status = next
			if err := s.subRepo.Save(txCtx, &sub, sub.Version); err != nil {
				return err
			}
			return writeAudit(txCtx, s.auditRepo, SystemActor, model.ActionExpireSubmission,
				model.ResourceSubmission, sub.ID.String(),
				map[string]interface{}{"status": before},
				map[string]interface{}{"status": next, "cutoff": cutoff.Format(time.RFC3339)})
		})
		if txErr != nil {
			// A concurrent reviewer may have won the race; skip and move on.
			log.Printf("expiry sweep: skipping submission %s: %v", sub.Number, txErr)
			continue
		}
		expired++
	}
	return expired, nil
}
