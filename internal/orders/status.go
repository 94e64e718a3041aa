package orders

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusPaid       Status = "PAID"
	StatusCancelled  Status = "CANCELLED"
)

// COMPLETED, PAID and CANCELLED are terminal.
var validNext = map[Status]map[Status]bool{
	StatusPending:    {StatusProcessing: true, StatusPaid: true, StatusCancelled: true},
	StatusProcessing: {StatusCompleted: true, StatusPaid: true, StatusCancelled: true},
	StatusCompleted:  {},
	StatusPaid:       {},
	StatusCancelled:  {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// ValidInitial reports whether an order may be created directly in s.
// Creating an order already cancelled or completed makes no sense.
func ValidInitial(s Status) bool {
	switch s {
	case StatusPending, StatusProcessing, StatusPaid:
		return true
	}
	return false
}
