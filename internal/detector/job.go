package detector

import (
	"context"
	"fmt"

	"github.com/vhvplatform/go-marketplace-notifications/internal/domain"
)

// JobApplicationFollowUp reminds employers of applications left pending
// longer than threshold
type JobApplicationFollowUp struct {
	base
	applications JobApplicationStore
}

func NewJobApplicationFollowUp(cfg Config, deps Deps, applications JobApplicationStore) *JobApplicationFollowUp {
	return &JobApplicationFollowUp{base: newBase(NameJobApplicationFollowUp, cfg, deps), applications: applications}
}

func (d *JobApplicationFollowUp) Run(ctx context.Context) (RunStats, error) {
	return d.track(ctx, d.tick)
}

func (d *JobApplicationFollowUp) tick(ctx context.Context, stats *RunStats) error {
	apps, err := scan(ctx, &d.base, func(ctx context.Context) ([]*domain.JobApplication, error) {
		return d.applications.FindJobApplications(ctx, domain.RangeQuery{
			Statuses: []string{domain.JobApplicationPending},
			Field:    "createdAt",
			To:       d.now().Add(-d.cfg.Threshold),
			Limit:    d.cfg.ResultLimit,
		})
	})
	if err != nil {
		return err
	}
	stats.Scanned = len(apps)

	for _, a := range apps {
		d.emit(ctx, stats, Candidate{
			UserID:  a.EmployerID,
			Type:    domain.TypeJobApplicationFollowUp,
			Title:   "Applications waiting for review",
			Message: fmt.Sprintf("An application for %s has been waiting since %s.", a.JobTitle, humanDate(a.CreatedAt)),
			Payload: &domain.JobApplicationPayload{
				ApplicationID: a.ID,
				JobID:         a.JobID,
				JobTitle:      a.JobTitle,
				ApplicantID:   a.ApplicantID,
			},
			Match: map[string]any{"applicationId": a.ID},
		})
	}
	return nil
}
