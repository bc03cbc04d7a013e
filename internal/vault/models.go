package vault

// Record is one row of the append-only ledger. All chain-relevant fields
// are stored as the exact strings that went into the hash computation, so
// a verifier can re-derive every digest from storage alone.
type Record struct {
	Sequence     int64  `json:"sequence"`
	SessionID    string `json:"session_id"`
	Timestamp    string `json:"timestamp"`
	EventType    string `json:"event_type"`
	Payload      string `json:"payload"`
	PreviousHash string `json:"previous_hash"`
	CurrentHash  string `json:"current_hash"`
	Signature    string `json:"signature"`
	Metadata     string `json:"metadata,omitempty"`
}

// Stats summarizes the ledger for the status command.
type Stats struct {
	Records        int64  `json:"records"`
	Sessions       int64  `json:"sessions"`
	FirstTimestamp string `json:"first_timestamp,omitempty"`
	LastTimestamp  string `json:"last_timestamp,omitempty"`
}
