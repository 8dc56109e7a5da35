package workflow

import (
	"agromed-backend/internal/model"
	"agromed-backend/pkg/apperrors"
)

// StepName returns a human label for wizard step numbers (used in errors
// and audit payloads).
func StepName(step int) string {
	switch step {
	case model.StepValidation:
		return "validation"
	case model.StepPhotography:
		return "photography"
	case model.StepDocument:
		return "document"
	case model.StepUpload:
		return "upload"
	case model.StepConfirmation:
		return "confirmation"
	default:
		return "unknown"
	}
}

// CheckStepOrder gates forward movement through the wizard: step N may only
// be worked on once step N-1 is complete. Re-running an already completed
// step is allowed (artifacts are overwritten, never stacked), so the check
// is only against skipping ahead.
func CheckStepOrder(rec *model.DistributionRecord, step int) error {
	if rec == nil {
		return apperrors.BusinessLogic("distribution has not been started")
	}
	if step < model.StepValidation || step > model.StepConfirmation {
		return apperrors.Validation("unknown distribution step %d", step)
	}
	if rec.CompletedAt != nil {
		return apperrors.BusinessLogic("distribution is already confirmed")
	}
	if step > rec.CompletedStep+1 {
		return apperrors.BusinessLogic("step %s requires step %s to be completed first",
			StepName(step), StepName(rec.CompletedStep+1))
	}
	return nil
}

// CheckStepArtifact verifies that the artifact a completed step must leave
// behind actually exists on the record. Called before marking CompletedStep
// so a step can never be "done" without its evidence.
func CheckStepArtifact(rec *model.DistributionRecord, step int) error {
	switch step {
	case model.StepValidation:
		if rec.ScanResults == nil || !rec.ScanResults.IsComplete {
			return apperrors.BusinessLogic("scan results are missing or incomplete")
		}
	case model.StepPhotography:
		if len(rec.Photos) == 0 {
			return apperrors.BusinessLogic("at least one hand-over photo is required")
		}
	case model.StepDocument:
		if rec.DocumentRef == "" {
			return apperrors.BusinessLogic("handover document has not been generated")
		}
		if rec.PrintedAt == nil {
			return apperrors.BusinessLogic("handover document must be acknowledged as printed")
		}
	case model.StepUpload:
		if rec.SignedDocRef == "" {
			return apperrors.BusinessLogic("signed handover document has not been uploaded")
		}
	case model.StepConfirmation:
		if rec.ReceiverName == "" {
			return apperrors.BusinessLogic("receiving party identity is required")
		}
	}
	return nil
}

// MarkStepCompleted advances CompletedStep after verifying order and
// artifact. Revisiting an earlier step leaves CompletedStep untouched.
func MarkStepCompleted(rec *model.DistributionRecord, step int) error {
	if err := CheckStepOrder(rec, step); err != nil {
		return err
	}
	if err := CheckStepArtifact(rec, step); err != nil {
		return err
	}
	if step > rec.CompletedStep {
		rec.CompletedStep = step
	}
	return nil
}

// ValidateScan reconciles scanned lines against the approved quantities on
// the submission items. Every item with a non-zero approved quantity must be
// scanned at exactly that quantity; unknown codes and mismatches are
// reported specifically so the operator can correct and rescan.
func ValidateScan(items []model.SubmissionItem, scanned []model.ScannedItem) error {
	if len(scanned) == 0 {
		return apperrors.Validation("no items scanned")
	}

	approved := make(map[string]int, len(items)) // medicine code -> approved qty
	for _, item := range items {
		if item.ApprovedQty > 0 {
			approved[item.Medicine.Code] = item.ApprovedQty
		}
	}

	seen := make(map[string]int, len(scanned))
	for _, s := range scanned {
		if s.Quantity <= 0 {
			return apperrors.Validation("scanned quantity for %s must be positive", s.MedicineCode)
		}
		seen[s.MedicineCode] += s.Quantity
	}

	for code, qty := range seen {
		want, ok := approved[code]
		if !ok {
			return apperrors.BusinessLogic("scanned medicine %s is not part of the approved items", code)
		}
		if qty != want {
			return apperrors.BusinessLogic("scanned quantity %d for %s does not match approved quantity %d",
				qty, code, want)
		}
	}
	for code, want := range approved {
		if _, ok := seen[code]; !ok {
			return apperrors.BusinessLogic("approved medicine %s (qty %d) was not scanned", code, want)
		}
	}
	return nil
}
