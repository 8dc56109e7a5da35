package service

import (
	"context"
	"fmt"

	"agromed-backend/internal/model"
	"agromed-backend/internal/repository"
	ws "agromed-backend/internal/websocket"
	"agromed-backend/internal/workflow"
	"agromed-backend/pkg/apperrors"

	"github.com/google/uuid"
)

// --- DTOs ---

type ItemApprovalRequest struct {
	ItemID      string `json:"item_id" binding:"required"`
	ApprovedQty int    `json:"approved_qty" binding:"min=0"`
}

type ApproveSubmissionRequest struct {
	Items           []ItemApprovalRequest `json:"items" binding:"required,min=1,dive"`
	NoteToSubmitter string                `json:"note_to_submitter"`
	NoteToWarehouse string                `json:"note_to_warehouse"`
}

type RejectSubmissionRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// --- Interface ---

type ApprovalService interface {
	// Approve applies per-item approved quantities and derives the decision:
	// every line granted in full -> approved, any line reduced ->
	// partially_approved. The ApprovalRecord is created exactly once.
	Approve(ctx context.Context, actor Actor, submissionID uuid.UUID, req ApproveSubmissionRequest) (*model.Submission, error)
	Reject(ctx context.Context, actor Actor, submissionID uuid.UUID, reason string) (*model.Submission, error)
}

type approvalService struct {
	subRepo   repository.SubmissionRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
	hub       *ws.Hub
}

func NewApprovalService(
	subRepo repository.SubmissionRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	hub *ws.Hub,
) ApprovalService {
	return &approvalService{subRepo: subRepo, auditRepo: auditRepo, txManager: txManager, hub: hub}
}

func (s *approvalService) Approve(ctx context.Context, actor Actor, submissionID uuid.UUID, req ApproveSubmissionRequest) (*model.Submission, error) {
	approvals := make([]workflow.ItemApproval, 0, len(req.Items))
	for _, ir := range req.Items {
		itemID, err := uuid.Parse(ir.ItemID)
		if err != nil {
			return nil, apperrors.Validation("invalid item_id %q", ir.ItemID)
		}
		approvals = append(approvals, workflow.ItemApproval{ItemID: itemID, ApprovedQty: ir.ApprovedQty})
	}

	var result *model.Submission
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		sub, err := s.subRepo.FindByID(txCtx, submissionID)
		if err != nil {
			return err
		}
		if sub.Approval != nil {
			return apperrors.BusinessLogic("submission %s already has a decision (%s)", sub.Number, sub.Approval.Decision)
		}

		before := map[string]interface{}{"status": sub.Status, "items": itemQuantities(sub.Items)}

		decision, err := workflow.ApplyApprovals(sub.Items, approvals)
		if err != nil {
			return err
		}

		action := workflow.ActionApprove
		if decision == model.DecisionPartiallyApproved {
			action = workflow.ActionPartiallyApprove
		}
		next, err := workflow.Transition(sub.Status, action, actor.Role)
		if err != nil {
			return err
		}

		// Re-validate the quantity chain before anything is committed.
		for _, item := range sub.Items {
			if err := workflow.CheckItemQuantities(item); err != nil {
				return err
			}
		}

		for i := range sub.Items {
			if err := s.subRepo.UpdateItem(txCtx, &sub.Items[i]); err != nil {
				return fmt.Errorf("failed to persist approved quantity: %w", err)
			}
		}

		record := &model.ApprovalRecord{
			SubmissionID:    sub.ID,
			ApprovedBy:      actor.ID,
			Decision:        decision,
			NoteToSubmitter: req.NoteToSubmitter,
			NoteToWarehouse: req.NoteToWarehouse,
		}
		if err := s.subRepo.CreateApproval(txCtx, record); err != nil {
			return err
		}

		sub.Status = next
		if err := s.subRepo.Save(txCtx, sub, sub.Version); err != nil {
			return err
		}

		if err := writeAudit(txCtx, s.auditRepo, actor, model.ActionApproveSubmission,
			model.ResourceSubmission, sub.ID.String(), before,
			map[string]interface{}{"status": next, "decision": decision, "items": itemQuantities(sub.Items)}); err != nil {
			return err
		}

		sub.Approval = record
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

func (s *approvalService) Reject(ctx context.Context, actor Actor, submissionID uuid.UUID, reason string) (*model.Submission, error) {
	var result *model.Submission
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		sub, err := s.subRepo.FindByID(txCtx, submissionID)
		if err != nil {
			return err
		}
		if sub.Approval != nil {
			return apperrors.BusinessLogic("submission %s already has a decision (%s)", sub.Number, sub.Approval.Decision)
		}

		next, err := workflow.Transition(sub.Status, workflow.ActionReject, actor.Role)
		if err != nil {
			return err
		}

		record := &model.ApprovalRecord{
			SubmissionID:    sub.ID,
			ApprovedBy:      actor.ID,
			Decision:        model.DecisionRejected,
			NoteToSubmitter: reason,
		}
		if err := s.subRepo.CreateApproval(txCtx, record); err != nil {
			return err
		}

		before := sub.Status
		sub.Status = next
		if err := s.subRepo.Save(txCtx, sub, sub.Version); err != nil {
			return err
		}

		if err := writeAudit(txCtx, s.auditRepo, actor, model.ActionRejectSubmission,
			model.ResourceSubmission, sub.ID.String(),
			map[string]interface{}{"status": before},
			map[string]interface{}{"status": next, "reason": reason}); err != nil {
			return err
		}

		sub.Approval = record
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

func itemQuantities(items []model.SubmissionItem) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(items))
	for _, item := range items {
		out = append(out, map[string]interface{}{
			"item_id":   item.ID.String(),
			"requested": item.RequestedQty,
			"approved":  item.ApprovedQty,
		})
	}
	return out
}
