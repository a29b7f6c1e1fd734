package event_bus

const (
	// ExpensesChanged fires after a manual expense edit landed in a month note.
	ExpensesChanged EventType = "expenses.changed"
	// ExpensesRecorded fires after a recurring processing pass wrote records.
	ExpensesRecorded EventType = "expenses.recorded"
)

// ExpensesChangedPayload names the months whose tables were rewritten.
type ExpensesChangedPayload struct {
	Months []string
}

// ExpensesRecordedPayload summarizes one recurring processing pass.
type ExpensesRecordedPayload struct {
	Months  []string
	Created int
}
