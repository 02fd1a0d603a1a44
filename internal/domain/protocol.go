package domain

// ProtocolDocument is a meeting page as stored in the protocol archive.
type ProtocolDocument struct {
	// ID is the wiki page id, e.g. "plenum:2024-06-17".
	ID string `json:"id"`

	// Namespace is the page namespace, e.g. "plenum".
	Namespace string `json:"namespace"`

	// Date is the meeting date in YYYY-MM-DD form.
	Date string `json:"date"`

	// Year is the four digit meeting year, used for filtering.
	Year string `json:"year"`

	// Concluded is true once the page carries the closing-time marker.
	Concluded bool `json:"concluded"`

	// Content is the full page text.
	Content string `json:"content"`
}

// Bleve field names of ProtocolDocument.
const (
	ProtocolFieldID        = "id"
	ProtocolFieldNamespace = "namespace"
	ProtocolFieldDate      = "date"
	ProtocolFieldYear      = "year"
	ProtocolFieldConcluded = "concluded"
	ProtocolFieldContent   = "content"
)
