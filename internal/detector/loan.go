package detector

import (
	"context"
	"fmt"
	"time"

	"github.com/vhvplatform/go-marketplace-notifications/internal/domain"
)

// LoanDueSoon reminds borrowers of unpaid installments due within
// days_before days
type LoanDueSoon struct {
	base
	loans LoanStore
}

func NewLoanDueSoon(cfg Config, deps Deps, loans LoanStore) *LoanDueSoon {
	return &LoanDueSoon{base: newBase(NameLoanDueSoon, cfg, deps), loans: loans}
}

func (d *LoanDueSoon) Run(ctx context.Context) (RunStats, error) {
	return d.track(ctx, d.tick)
}

func (d *LoanDueSoon) tick(ctx context.Context, stats *RunStats) error {
	now := d.now()
	until := now.Add(time.Duration(d.cfg.DaysBefore) * day)

	loans, err := scan(ctx, &d.base, func(ctx context.Context) ([]*domain.Loan, error) {
		return d.loans.FindLoansWithInstallmentsDue(ctx, now, until, d.cfg.ResultLimit)
	})
	if err != nil {
		return err
	}
	stats.Scanned = len(loans)

	for _, l := range loans {
		for _, in := range l.UnpaidDueBetween(now, until) {
			d.emit(ctx, stats, Candidate{
				UserID:  l.BorrowerID,
				Type:    domain.TypeLoanDueSoon,
				Title:   "Repayment due soon",
				Message: fmt.Sprintf("Installment %d of %.2f is due on %s.", in.Number, in.Amount, humanDate(in.DueDate)),
				Payload: &domain.LoanPayload{
					LoanID:            l.ID,
					LoanKind:          l.Kind,
					InstallmentNumber: in.Number,
					DueDate:           dateKey(in.DueDate),
					Amount:            in.Amount,
				},
				Match: map[string]any{"loanId": l.ID, "dueDate": dateKey(in.DueDate)},
			})
		}
	}
	return nil
}

// LoanOverdue warns borrowers of unpaid installments that fell due within
// the lookback window
type LoanOverdue struct {
	base
	loans LoanStore
}

func NewLoanOverdue(cfg Config, deps Deps, loans LoanStore) *LoanOverdue {
	return &LoanOverdue{base: newBase(NameLoanOverdue, cfg, deps), loans: loans}
}

func (d *LoanOverdue) Run(ctx context.Context) (RunStats, error) {
	return d.track(ctx, d.tick)
}

func (d *LoanOverdue) tick(ctx context.Context, stats *RunStats) error {
	now := d.now()
	from := now.Add(-d.cfg.Lookback)

	loans, err := scan(ctx, &d.base, func(ctx context.Context) ([]*domain.Loan, error) {
		return d.loans.FindLoansWithInstallmentsDue(ctx, from, now, d.cfg.ResultLimit)
	})
	if err != nil {
		return err
	}
	stats.Scanned = len(loans)

	for _, l := range loans {
		for _, in := range l.UnpaidDueBetween(from, now) {
			overdue := int(now.Sub(in.DueDate) / day)
			d.emit(ctx, stats, Candidate{
				UserID:  l.BorrowerID,
				Type:    domain.TypeLoanOverdue,
				Title:   "Repayment overdue",
				Message: fmt.Sprintf("Installment %d of %.2f was due on %s.", in.Number, in.Amount, humanDate(in.DueDate)),
				Payload: &domain.LoanPayload{
					LoanID:            l.ID,
					LoanKind:          l.Kind,
					InstallmentNumber: in.Number,
					DueDate:           dateKey(in.DueDate),
					Amount:            in.Amount,
					DaysOverdue:       overdue,
				},
				Match: map[string]any{"loanId": l.ID, "dueDate": dateKey(in.DueDate)},
			})
		}
	}
	return nil
}
