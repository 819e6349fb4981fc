package parentconsent

// ConsentRequestedEvent fires after a consent solicitation commits.
type ConsentRequestedEvent struct {
	Consent ParentConsent
}

// ConsentResolvedEvent fires after a parent decision (or the expiry sweep)
// commits.
type ConsentResolvedEvent struct {
	Consent  ParentConsent
	Decision ConsentStatus
}
