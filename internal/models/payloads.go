package models

// BatchRequest is the input for a single batch run.
type BatchRequest struct {
	RunID   string
	Pattern string
	Output  string
}

// BatchResponse summarises a finished batch for the caller to render.
type BatchResponse struct {
	RunID     string
	OutputURI string
	Total     int
	Successes []ResultEntry
	Failures  []ResultEntry
	Usage     UsageTotals
	Inventory Inventory
	HandedOff bool
	RunStored bool
}

// Inventory describes the discovered documents before dispatch.
type Inventory struct {
	Images   int
	PDFs     int
	PDFPages int // Pages across PDFs whose page count could be read
}

// WorkflowPayload is the argument passed to the downstream workflow execution.
type WorkflowPayload struct {
	RunID     string `json:"runId"`
	OutputURI string `json:"outputUri"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
}
