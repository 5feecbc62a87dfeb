package ledger

// View is what a client's dashboard request resolves to.
type View string

const (
	ViewNoApplication     View = "no_application"
	ViewPendingReview     View = "pending_review"
	ViewAgreementRequired View = "agreement_required"
	ViewDashboard         View = "dashboard"
)

// ResolveView decides which dashboard view a client gets. The agreement gate
// sits in front of everything once financials unlock.
func ResolveView(found bool, status ClientStatus, agreementAccepted bool) View {
	if !found {
		return ViewNoApplication
	}
	if !status.FinancialsVisible() {
		return ViewPendingReview
	}
	if !agreementAccepted {
		return ViewAgreementRequired
	}
	return ViewDashboard
}
