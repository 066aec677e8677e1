package models

// ImportValidationError pinpoints one rejected row or block during a
// question import. Row is 1-based for spreadsheet sources and is the block
// ordinal for bulk-text sources.
type ImportValidationError struct {
	Row     int    `json:"row"`
	Column  string `json:"column,omitempty"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

// ImportSummary is the outcome of one import run. Malformed rows/blocks are
// reported here rather than failing the whole import.
type ImportSummary struct {
	TotalRows     int                     `json:"total_rows"`
	ProcessedRows int                     `json:"processed_rows"`
	SuccessCount  int                     `json:"success_count"`
	ErrorCount    int                     `json:"error_count"`
	Errors        []ImportValidationError `json:"errors,omitempty"`
}
