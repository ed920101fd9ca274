package booking

type Status string

const (
	StatusScheduled   Status = "scheduled"
	StatusReceived    Status = "received"
	StatusInformed    Status = "informed"
	StatusInTreatment Status = "in-treatment"
	StatusToPalletize Status = "to-palletize"
	StatusPalletized  Status = "palletized"
	StatusClosed      Status = "closed"
)

// InitialStatus is the status of every founding ledger entry.
const InitialStatus = StatusScheduled

// Statuses lists the vocabulary in workflow order. The order is for
// display only; any status may follow any other.
var Statuses = []Status{
	StatusScheduled,
	StatusReceived,
	StatusInformed,
	StatusInTreatment,
	StatusToPalletize,
	StatusPalletized,
	StatusClosed,
}

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusScheduled, StatusReceived, StatusInformed, StatusInTreatment,
		StatusToPalletize, StatusPalletized, StatusClosed:
		return Status(s), nil
	case "":
		return "", ValidationError{Code: CodeStatusRequired, Message: "status is required"}
	default:
		return "", ValidationError{Code: CodeInvalidStatus, Message: "invalid status: " + s}
	}
}
