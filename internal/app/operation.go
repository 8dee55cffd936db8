package app

// LibraryOperation tracks a CLI operation that may mutate the database.
// Operations are created in memory with ID=0. Only DB-mutating commands
// persist them (giving them an auto-increment ID from the database).
type LibraryOperation struct {
	ID         int64
	Operation  string
	Parameters string
	Status     string // "success" or "error"
}

// NewLibraryOperation creates a new in-memory operation record.
func NewLibraryOperation(operation, parameters string) *LibraryOperation {
	return &LibraryOperation{
		Operation:  operation,
		Parameters: parameters,
		Status:     "success",
	}
}

// Persisted returns true if this operation has been saved to the database.
func (op *LibraryOperation) Persisted() bool {
	return op.ID != 0
}
