package infra

// pdf.go — printable documents rendered with go-pdf/fpdf.
// Two documents leave this file:
//   - the bill ("conta") handed to the customer when the waiter pulls it,
//     thermal-receipt sized;
//   - the cashier closing report attached to the accounting email, A4.

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"

	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/model"
)

// GenerateBillPDF renders the pulled bill for a table. serviceFee is the
// 10% preview computed by the order book; discounting happens at close, so
// the bill never shows one. Returns the written file path.
func GenerateBillPDF(order *model.TableOrder, serviceFee decimal.Decimal, storagePath string) (string, error) {
	if err := os.MkdirAll(storagePath, 0o755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}

	fileName := fmt.Sprintf("conta_%s_%s.pdf", order.TableID, order.OpenedAt.Format("20060102_1504"))
	filePath := filepath.Join(storagePath, fileName)

	// 74mm wide — matches the thermal paper used at the counter.
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: 74, Ht: 160},
	})
	pdf.SetMargins(4, 4, 4)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 8

	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(contentW, 7, "Almareia Mirapraia", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(contentW, 5, "Conferência de Consumo", "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "B", 8)
	pdf.CellFormat(contentW, 5, fmt.Sprintf("Mesa %s", order.TableID), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 7)
	pdf.CellFormat(contentW, 4, fmt.Sprintf("Garçom: %s  Pax: %d", order.Waiter, order.NumAdults), "", 1, "L", false, 0, "")
	pdf.CellFormat(contentW, 4, order.OpenedAt.Format("02/01/2006  15:04"), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.Line(4, pdf.GetY(), pageW-4, pdf.GetY())
	pdf.Ln(2)

	col1 := contentW * 0.52
	col2 := contentW * 0.16
	col3 := contentW * 0.32

	pdf.SetFont("Helvetica", "B", 7)
	pdf.CellFormat(col1, 5, "Item", "B", 0, "L", false, 0, "")
	pdf.CellFormat(col2, 5, "Qtd", "B", 0, "C", false, 0, "")
	pdf.CellFormat(col3, 5, "Subtotal", "B", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	for _, item := range order.Items {
		name := item.Name
		if len(name) > 22 {
			name = name[:21] + "…"
		}
		pdf.CellFormat(col1, 5, name, "", 0, "L", false, 0, "")
		pdf.CellFormat(col2, 5, "x"+item.Qty.String(), "", 0, "C", false, 0, "")
		pdf.CellFormat(col3, 5, "R$"+item.Subtotal().StringFixed(2), "", 1, "R", false, 0, "")
	}

	pdf.Ln(2)
	pdf.Line(4, pdf.GetY(), pageW-4, pdf.GetY())
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "", 7)
	pdf.CellFormat(col1+col2, 5, "Consumo:", "", 0, "L", false, 0, "")
	pdf.CellFormat(col3, 5, "R$"+order.Total.StringFixed(2), "", 1, "R", false, 0, "")
	if !serviceFee.IsZero() {
		pdf.CellFormat(col1+col2, 5, "Serviço (10%):", "", 0, "L", false, 0, "")
		pdf.CellFormat(col3, 5, "R$"+serviceFee.StringFixed(2), "", 1, "R", false, 0, "")
	}
	if !order.PaidAmount.IsZero() {
		pdf.CellFormat(col1+col2, 5, "Pago:", "", 0, "L", false, 0, "")
		pdf.CellFormat(col3, 5, "-R$"+order.PaidAmount.StringFixed(2), "", 1, "R", false, 0, "")
	}

	pdf.SetFont("Helvetica", "B", 9)
	due := order.Total.Add(serviceFee).Sub(order.PaidAmount)
	pdf.CellFormat(col1+col2, 6, "TOTAL:", "", 0, "L", false, 0, "")
	pdf.CellFormat(col3, 6, "R$"+due.StringFixed(2), "", 1, "R", false, 0, "")

	pdf.Ln(3)
	pdf.SetFont("Helvetica", "I", 7)
	pdf.CellFormat(contentW, 4, "Documento sem valor fiscal", "", 1, "C", false, 0, "")

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", fmt.Errorf("pdf: write file: %w", err)
	}
	return filePath, nil
}

// GenerateClosingReportPDF renders the end-of-session summary: opening and
// expected balances, counted figures, and the full transaction list.
func GenerateClosingReportPDF(session *model.CashierSession, storagePath string) (string, error) {
	if err := os.MkdirAll(storagePath, 0o755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}

	fileName := fmt.Sprintf("fechamento_%s_%s.pdf", session.Type, session.OpenedAt.Format("20060102"))
	filePath := filepath.Join(storagePath, fileName)

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(180, 8, "Fechamento de Caixa — "+session.Type, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(180, 5, fmt.Sprintf("Operador: %s", session.User), "", 1, "L", false, 0, "")
	pdf.CellFormat(180, 5, "Abertura: "+session.OpenedAt.Format("02/01/2006 15:04"), "", 1, "L", false, 0, "")
	if session.ClosedAt != nil {
		pdf.CellFormat(180, 5, "Fechamento: "+session.ClosedAt.Format("02/01/2006 15:04"), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(90, 6, "Saldo inicial", "B", 0, "L", false, 0, "")
	pdf.CellFormat(90, 6, "R$"+session.OpeningBalance.StringFixed(2), "B", 1, "R", false, 0, "")
	pdf.CellFormat(90, 6, "Saldo esperado", "B", 0, "L", false, 0, "")
	pdf.CellFormat(90, 6, "R$"+session.ExpectedBalance().StringFixed(2), "B", 1, "R", false, 0, "")
	if session.CountedClosing != nil {
		pdf.CellFormat(90, 6, "Saldo conferido", "B", 0, "L", false, 0, "")
		pdf.CellFormat(90, 6, "R$"+session.CountedClosing.StringFixed(2), "B", 1, "R", false, 0, "")
	}
	if session.ClosingDiff != nil {
		pdf.CellFormat(90, 6, "Diferença", "B", 0, "L", false, 0, "")
		pdf.CellFormat(90, 6, "R$"+session.ClosingDiff.StringFixed(2), "B", 1, "R", false, 0, "")
	}
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(30, 6, "Hora", "B", 0, "L", false, 0, "")
	pdf.CellFormat(25, 6, "Tipo", "B", 0, "L", false, 0, "")
	pdf.CellFormat(75, 6, "Descrição", "B", 0, "L", false, 0, "")
	pdf.CellFormat(25, 6, "Forma", "B", 0, "L", false, 0, "")
	pdf.CellFormat(25, 6, "Valor", "B", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 8)
	for _, tx := range session.Transactions {
		desc := tx.Description
		if len(desc) > 45 {
			desc = desc[:44] + "…"
		}
		pdf.CellFormat(30, 5, tx.Timestamp.Format("15:04:05"), "", 0, "L", false, 0, "")
		pdf.CellFormat(25, 5, tx.Type, "", 0, "L", false, 0, "")
		pdf.CellFormat(75, 5, desc, "", 0, "L", false, 0, "")
		pdf.CellFormat(25, 5, tx.PaymentMethod, "", 0, "L", false, 0, "")
		pdf.CellFormat(25, 5, "R$"+tx.Amount.StringFixed(2), "", 1, "R", false, 0, "")
	}

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", fmt.Errorf("pdf: write file: %w", err)
	}
	return filePath, nil
}
