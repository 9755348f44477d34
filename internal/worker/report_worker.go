package worker

// report_worker.go
// Processes closing-report jobs from QueueRelatorio: renders the cashier
// closing report as PDF and mails it to the configured address.

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/infra"
	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/repository"
)

// ReportWorker renders and mails cashier closing reports.
type ReportWorker struct {
	sessions repository.CashierRepository
	mailer   *infra.Mailer
	pdfDir   string
	emailTo  string
}

func NewReportWorker(sessions repository.CashierRepository, mailer *infra.Mailer, pdfDir, emailTo string) *ReportWorker {
	return &ReportWorker{sessions: sessions, mailer: mailer, pdfDir: pdfDir, emailTo: emailTo}
}

func (w *ReportWorker) Process(ctx context.Context, raw json.RawMessage) {
	var payload RelatorioJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("report_worker: invalid payload")
		return
	}
	sessionID, err := uuid.Parse(payload.SessionID)
	if err != nil {
		log.Error().Str("session_id", payload.SessionID).Msg("report_worker: invalid session_id")
		return
	}

	session, err := w.sessions.FindByID(sessionID)
	if err != nil {
		log.Error().Err(err).Str("session_id", payload.SessionID).Msg("report_worker: session not found")
		return
	}

	pdfPath, err := infra.GenerateClosingReportPDF(session, w.pdfDir)
	if err != nil {
		log.Error().Err(err).Str("session_id", payload.SessionID).Msg("report_worker: PDF generation failed")
		return
	}
	log.Info().Str("pdf", pdfPath).Str("session_id", payload.SessionID).Msg("report_worker: closing report generated")

	if w.mailer == nil || w.emailTo == "" {
		return
	}
	subject := fmt.Sprintf("Fechamento de Caixa — %s (%s)", session.Type, session.OpenedAt.Format("02/01/2006"))
	body := fmt.Sprintf("Segue em anexo o relatório de fechamento do caixa %s.\nOperador: %s",
		session.Type, session.User)
	if err := w.mailer.Send(w.emailTo, subject, body, pdfPath); err != nil {
		log.Error().Err(err).Str("to", w.emailTo).Msg("report_worker: failed to send email")
		return
	}
	log.Info().Str("to", w.emailTo).Msg("report_worker: closing report sent")
}
