// Package notify sends operations alerts for large ledger transactions
// over SMTP. Delivery failures are logged and never affect the ledger
// operation that triggered them.
package notify

import (
	"fmt"
	"net/smtp"

	"github.com/jordan-wright/email"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/corebank/ledger-service/internal/config"
	"github.com/corebank/ledger-service/internal/models"
)

// Sender handles sending emails via SMTP
type Sender struct {
	cfg *config.Config
	log *logrus.Logger
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, log *logrus.Logger) *Sender {
	return &Sender{cfg: cfg, log: log}
}

// TransactionRecorded notifies the operations address about a committed
// transaction that met the configured threshold.
func (s *Sender) TransactionRecorded(tx models.Transaction, balance decimal.Decimal) {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{s.cfg.NotifyEmail}
	e.Subject = fmt.Sprintf("Large %s on account %s", tx.Type, tx.AccountNumber)

	body := fmt.Sprintf(
		"Transaction %d on account %s\n\n"+
			"Type: %s\n"+
			"Amount: %s\n"+
			"Description: %s\n"+
			"Recorded at: %s\n"+
			"Balance after: %s\n",
		tx.TransactionID, tx.AccountNumber,
		tx.Type, tx.Amount.StringFixed(2), tx.Description,
		tx.Timestamp.Format("2006-01-02 15:04:05"), balance.StringFixed(2),
	)
	e.Text = []byte(body)

	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	auth := smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	if err := e.Send(addr, auth); err != nil {
		s.log.Errorf("Failed to send transaction alert to %s: %v", s.cfg.NotifyEmail, err)
		return
	}

	s.log.Infof("Transaction alert sent to %s: %s", s.cfg.NotifyEmail, e.Subject)
}
