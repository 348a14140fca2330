package domain

type LifecycleState string

const (
	LifecyclePending   LifecycleState = "pending"
	LifecycleCompleted LifecycleState = "completed"
	LifecycleFailed    LifecycleState = "failed"
)

// PaymentStatus is a view of a gateway payment record.
type PaymentStatus struct {
	ProviderID        string
	RawProviderStatus string
	LifecycleState    LifecycleState
	Paid              bool
}

// MapPaymentStatus folds a provider status into the internal lifecycle.
// Unknown statuses stay pending.
func MapPaymentStatus(raw string) (LifecycleState, bool) {
	switch raw {
	case "succeeded":
		return LifecycleCompleted, true
	case "canceled":
		return LifecycleFailed, false
	default:
		return LifecyclePending, false
	}
}

func NewPaymentStatus(providerID, raw string) PaymentStatus {
	state, paid := MapPaymentStatus(raw)
	return PaymentStatus{
		ProviderID:        providerID,
		RawProviderStatus: raw,
		LifecycleState:    state,
		Paid:              paid,
	}
}
