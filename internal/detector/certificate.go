package detector

import (
	"context"
	"fmt"

	"github.com/vhvplatform/go-marketplace-notifications/internal/domain"
)

// CertificatePending alerts every admin about enrollments completed more
// than threshold ago that still have no certificate
type CertificatePending struct {
	base
	enrollments EnrollmentStore
}

func NewCertificatePending(cfg Config, deps Deps, enrollments EnrollmentStore) *CertificatePending {
	return &CertificatePending{base: newBase(NameCertificatePending, cfg, deps), enrollments: enrollments}
}

func (d *CertificatePending) Run(ctx context.Context) (RunStats, error) {
	return d.track(ctx, d.tick)
}

func (d *CertificatePending) tick(ctx context.Context, stats *RunStats) error {
	enrollments, err := scan(ctx, &d.base, func(ctx context.Context) ([]*domain.Enrollment, error) {
		return d.enrollments.FindCompletedWithoutCertificate(ctx, d.now().Add(-d.cfg.Threshold), d.cfg.ResultLimit)
	})
	if err != nil {
		return err
	}
	stats.Scanned = len(enrollments)
	if len(enrollments) == 0 {
		return nil
	}

	admins, err := d.adminIDs(ctx)
	if err != nil {
		return err
	}

	for _, e := range enrollments {
		d.emitTo(ctx, stats, admins, Candidate{
			Type:    domain.TypeCertificatePending,
			Title:   "Certificate pending",
			Message: fmt.Sprintf("A student completed %s and is waiting for a certificate.", e.CourseTitle),
			Payload: &domain.EnrollmentPayload{
				EnrollmentID: e.ID,
				CourseID:     e.CourseID,
				CourseTitle:  e.CourseTitle,
				StudentID:    e.StudentID,
			},
			Match: map[string]any{"enrollmentId": e.ID},
		})
	}
	return nil
}
