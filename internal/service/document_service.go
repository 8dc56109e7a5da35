package service

import (
	"bytes"
	"fmt"
	"time"

	"agromed-backend/internal/model"

	"github.com/jung-kurt/gofpdf/v2"
)

// HandoverDocumentRef is the stable storage path of a submission's generated
// handover document. Regenerating with identical inputs writes to the same
// ref, so callers see one reference per submission.
func HandoverDocumentRef(submissionNumber string) string {
	return fmt.Sprintf("handover/%s.pdf", submissionNumber)
}

// DocumentService renders the hand-over document merged from submission,
// approval and distribution data.
type DocumentService interface {
	RenderHandover(sub *model.Submission, rec *model.DistributionRecord) ([]byte, error)
}

type documentService struct{}

func NewDocumentService() DocumentService {
	return &documentService{}
}

func (s *documentService) RenderHandover(sub *model.Submission, rec *model.DistributionRecord) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()

	// Header
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(190, 10, "Agro-Medicine Distribution Handover", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(190, 6, fmt.Sprintf("Submission: %s", sub.Number), "", 1, "C", false, 0, "")
	pdf.Ln(5)

	// Requesting party
	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(190, 8, "Requesting Party", "1", 1, "L", true, 0, "")

	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(95, 7, fmt.Sprintf("Farmer Group: %s", sub.FarmerGroup), "LB", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("Leader: %s", sub.GroupLeader), "RB", 1, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("District: %s", sub.District), "LB", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("Village: %s", sub.Village), "RB", 1, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("Commodity: %s", sub.Commodity), "LB", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("Affected Area: %s ha", sub.AffectedArea.StringFixed(2)), "RB", 1, "L", false, 0, "")
	pdf.Ln(5)

	// Items table
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(190, 8, "Medicines", "1", 1, "L", true, 0, "")

	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(200, 200, 200)
	pdf.CellFormat(30, 7, "Code", "1", 0, "C", true, 0, "")
	pdf.CellFormat(70, 7, "Medicine", "1", 0, "C", true, 0, "")
	pdf.CellFormat(20, 7, "Unit", "1", 0, "C", true, 0, "")
	pdf.CellFormat(23, 7, "Requested", "1", 0, "C", true, 0, "")
	pdf.CellFormat(23, 7, "Approved", "1", 0, "C", true, 0, "")
	pdf.CellFormat(24, 7, "Handed Over", "1", 1, "C", true, 0, "")

	pdf.SetFont("Arial", "", 10)
	for _, item := range sub.Items {
		name := item.Medicine.Name
		if len(name) > 34 {
			name = name[:31] + "..."
		}
		pdf.CellFormat(30, 6, item.Medicine.Code, "1", 0, "C", false, 0, "")
		pdf.CellFormat(70, 6, name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, 6, item.Unit, "1", 0, "C", false, 0, "")
		pdf.CellFormat(23, 6, fmt.Sprintf("%d", item.RequestedQty), "1", 0, "C", false, 0, "")
		pdf.CellFormat(23, 6, fmt.Sprintf("%d", item.ApprovedQty), "1", 0, "C", false, 0, "")
		pdf.CellFormat(24, 6, fmt.Sprintf("%d", item.ApprovedQty-item.DistributedQty), "1", 1, "C", false, 0, "")
	}
	pdf.Ln(5)

	// Approval notes
	if sub.Approval != nil {
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(190, 8, "Approval", "1", 1, "L", true, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(95, 7, fmt.Sprintf("Decision: %s", sub.Approval.Decision), "LB", 0, "L", false, 0, "")
		pdf.CellFormat(95, 7, fmt.Sprintf("Decided: %s", sub.Approval.CreatedAt.Format("02-Jan-2006")), "RB", 1, "L", false, 0, "")
		if sub.Approval.NoteToWarehouse != "" {
			pdf.MultiCell(190, 6, "Warehouse note: "+sub.Approval.NoteToWarehouse, "LRB", "L", false)
		}
		pdf.Ln(5)
	}

	// Signature boxes
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(95, 8, "Handed over by", "1", 0, "C", false, 0, "")
	pdf.CellFormat(95, 8, "Received by", "1", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(95, 25, "", "1", 0, "C", false, 0, "")
	receiver := ""
	if rec != nil {
		receiver = rec.ReceiverName
	}
	pdf.CellFormat(95, 25, receiver, "1", 1, "C", false, 0, "")

	pdf.Ln(3)
	pdf.SetFont("Arial", "I", 8)
	pdf.CellFormat(190, 5, fmt.Sprintf("Generated %s", time.Now().Format("02-Jan-2006 15:04")), "", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render handover document: %w", err)
	}
	return buf.Bytes(), nil
}
