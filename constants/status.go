package constants

// ItemStatus is the processing state of an intake item.
type ItemStatus string

// Stable values (these exact strings go over the wire and into exports).
const (
	ItemStatusProcessing ItemStatus = "processing" // admitted, OCR in flight
	ItemStatusCompleted  ItemStatus = "completed"  // fields extracted
	ItemStatusError      ItemStatus = "error"      // OCR failed, terminal
)

// IsTerminal reports whether the pipeline is done with an item in this status.
func (s ItemStatus) IsTerminal() bool {
	return s == ItemStatusCompleted || s == ItemStatusError
}

func (s ItemStatus) String() string { return string(s) }
