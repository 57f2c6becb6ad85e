package detector

import (
	"sort"
)

// Names lists every detector name in a stable order
func Names() []string {
	names := make([]string, 0, len(DefaultConfigs()))
	for name := range DefaultConfigs() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewAll builds every detector. A detector missing from configs runs with
// its built-in defaults.
func NewAll(configs map[string]Config, deps Deps, stores Stores) []Detector {
	defaults := DefaultConfigs()
	cfg := func(name string) Config {
		if c, ok := configs[name]; ok {
			return c
		}
		return defaults[name]
	}

	all := []Detector{
		NewBookingReminder(cfg(NameBookingReminder), deps, stores.Bookings),
		NewBookingAutoTransition(cfg(NameBookingAutoTransition), deps, stores.Bookings),
		NewBookingOverdue(cfg(NameBookingOverdue), deps, stores.Bookings),
		NewReviewRequest(cfg(NameReviewRequest), deps, stores.Bookings),
		NewLoanDueSoon(cfg(NameLoanDueSoon), deps, stores.Loans),
		NewLoanOverdue(cfg(NameLoanOverdue), deps, stores.Loans),
		NewRentalDueSoon(cfg(NameRentalDueSoon), deps, stores.Rentals),
		NewRentalOverdue(cfg(NameRentalOverdue), deps, stores.Rentals),
		NewSuppliesReorder(cfg(NameSuppliesReorder), deps, stores.Orders),
		NewOrderAbandonedPayment(cfg(NameOrderAbandonedPayment), deps, stores.Orders),
		NewOrderLateDelivery(cfg(NameOrderLateDelivery), deps, stores.Orders),
		NewOrderAutoDeliver(cfg(NameOrderAutoDeliver), deps, stores.Orders),
		NewJobApplicationFollowUp(cfg(NameJobApplicationFollowUp), deps, stores.JobApplications),
		NewLiveChatSLA(cfg(NameLiveChatSLA), deps, stores.Chats),
		NewMessageNudge(cfg(NameMessageNudge), deps, stores.Messages),
		NewMessageModeration(cfg(NameMessageModeration), deps, stores.Messages),
		NewReferralMilestone(cfg(NameReferralMilestone), deps, stores.Referrals),
		NewSubscriptionDunning(cfg(NameSubscriptionDunning), deps, stores.Subscriptions),
		NewCertificatePending(cfg(NameCertificatePending), deps, stores.Enrollments),
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name() < all[j].Name() })
	return all
}

// Find returns the detector called name, or nil
func Find(detectors []Detector, name string) Detector {
	for _, d := range detectors {
		if d.Name() == name {
			return d
		}
	}
	return nil
}
