package payment

// VerifiedEvent fires after a gateway verification changed the stored
// status and committed.
type VerifiedEvent struct {
	Payment    Payment
	FromStatus Status
	ToStatus   Status
}

// RegistrationPaidEvent fires when a verification marked the linked
// registration paid. At most one fires per registration.
type RegistrationPaidEvent struct {
	Payment        Payment
	RegistrationID uint
}
