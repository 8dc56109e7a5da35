package workflow

import (
	"sort"

	"agromed-backend/internal/model"
	"agromed-backend/pkg/apperrors"

	"github.com/google/uuid"
)

// ItemApproval is a reviewer's per-line decision.
type ItemApproval struct {
	ItemID      uuid.UUID
	ApprovedQty int
}

// CheckItemQuantities verifies the quantity chain on a single item. Every
// mutation that touches quantities must pass through here before commit.
func CheckItemQuantities(item model.SubmissionItem) error {
	if item.RequestedQty <= 0 {
		return apperrors.Validation("item %s: requested quantity must be positive", item.ID)
	}
	if item.ApprovedQty < 0 || item.ApprovedQty > item.RequestedQty {
		return apperrors.BusinessLogic("item %s: approved quantity %d exceeds requested %d",
			item.ID, item.ApprovedQty, item.RequestedQty)
	}
	if item.DistributedQty < 0 || item.DistributedQty > item.ApprovedQty {
		return apperrors.BusinessLogic("item %s: distributed quantity %d exceeds approved %d",
			item.ID, item.DistributedQty, item.ApprovedQty)
	}
	return nil
}

// ApplyApprovals sets approved quantities on the items. The whole call
// fails if any approval targets an unknown item or exceeds its requested
// quantity; on failure no item is modified. It returns the derived decision:
// approved when every line got what it asked for, partially_approved when at
// least one line was reduced (possibly to zero).
func ApplyApprovals(items []model.SubmissionItem, approvals []ItemApproval) (string, error) {
	if len(approvals) == 0 {
		return "", apperrors.Validation("at least one item approval is required")
	}

	byID := make(map[uuid.UUID]int, len(items)) // item id -> index
	for i, item := range items {
		byID[item.ID] = i
	}

	staged := make(map[uuid.UUID]int, len(approvals))
	for _, a := range approvals {
		idx, ok := byID[a.ItemID]
		if !ok {
			return "", apperrors.NotFound("submission item", a.ItemID)
		}
		if _, dup := staged[a.ItemID]; dup {
			return "", apperrors.Validation("duplicate approval for item %s", a.ItemID)
		}
		if a.ApprovedQty < 0 {
			return "", apperrors.Validation("item %s: approved quantity must not be negative", a.ItemID)
		}
		if a.ApprovedQty > items[idx].RequestedQty {
			return "", apperrors.BusinessLogic("item %s: approved quantity %d exceeds requested %d",
				a.ItemID, a.ApprovedQty, items[idx].RequestedQty)
		}
		staged[a.ItemID] = a.ApprovedQty
	}
	if len(staged) != len(items) {
		return "", apperrors.Validation("every submission item needs an approval decision")
	}

	decision := model.DecisionApproved
	for i := range items {
		qty := staged[items[i].ID]
		items[i].ApprovedQty = qty
		if qty < items[i].RequestedQty {
			decision = model.DecisionPartiallyApproved
		}
	}
	return decision, nil
}

// BatchAllocation is one slice of a planned stock draw.
type BatchAllocation struct {
	BatchID  uuid.UUID
	Quantity int
}

// PlanAllocation splits quantity across the medicine's batches, consuming
// the earliest-expiring batch first. It fails with InsufficientStockError
// when the batches cannot cover the quantity. No batch is mutated here;
// the caller decrements under a row lock using the returned plan.
func PlanAllocation(batches []model.StockBatch, quantity int) ([]BatchAllocation, error) {
	if quantity <= 0 {
		return nil, apperrors.Validation("distribution quantity must be positive")
	}

	ordered := make([]model.StockBatch, len(batches))
	copy(ordered, batches)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ExpiryDate.Before(ordered[j].ExpiryDate)
	})

	available := 0
	for _, b := range ordered {
		available += b.CurrentStock
	}
	if available < quantity {
		return nil, apperrors.InsufficientStock("requested %d but only %d in stock across %d batches",
			quantity, available, len(ordered))
	}

	var plan []BatchAllocation
	remaining := quantity
	for _, b := range ordered {
		if remaining == 0 {
			break
		}
		if b.CurrentStock == 0 {
			continue
		}
		take := b.CurrentStock
		if take > remaining {
			take = remaining
		}
		plan = append(plan, BatchAllocation{BatchID: b.ID, Quantity: take})
		remaining -= take
	}
	return plan, nil
}

// CheckDistribution verifies a pending draw against the item's remaining
// approved headroom before any stock is touched.
func CheckDistribution(item model.SubmissionItem, quantity int) error {
	if quantity <= 0 {
		return apperrors.Validation("distribution quantity must be positive")
	}
	if item.DistributedQty+quantity > item.ApprovedQty {
		return apperrors.OverDistribution("item %s: distributing %d on top of %d would exceed approved %d",
			item.ID, quantity, item.DistributedQty, item.ApprovedQty)
	}
	return nil
}

// FullyDistributed reports whether every item with an approved quantity has
// received it in full, which gates completion. Items approved at
// zero are trivially satisfied.
func FullyDistributed(items []model.SubmissionItem) bool {
	for _, item := range items {
		if item.DistributedQty != item.ApprovedQty {
			return false
		}
	}
	return len(items) > 0
}
