package models

// Call is a single invoke, already bound to concrete values
type Call struct {
	Target     Felt
	Entrypoint string
	Args       Args
	// ABI of the target, used to encode Args; raw felts when empty
	ABI []byte
}

// DeclaredClass is the result of a declare
type DeclaredClass struct {
	Contract        string
	ClassHash       Felt
	TxHash          *Felt // nil when already declared
	AlreadyDeclared bool
	Artifact        *Artifact
}

// DeployResult is the outcome of a deploy submission
type DeployResult struct {
	Address Felt
	TxHash  Felt
}

// Execution and finality statuses reported by the chain
const (
	ExecutionSucceeded = "SUCCEEDED"
	ExecutionReverted  = "REVERTED"
	ExecutionRejected  = "REJECTED"

	FinalityReceived   = "RECEIVED"
	FinalityAcceptedL2 = "ACCEPTED_ON_L2"
	FinalityAcceptedL1 = "ACCEPTED_ON_L1"
)

// Receipt is a confirmed transaction
type Receipt struct {
	TxHash          Felt
	ExecutionStatus string
	FinalityStatus  string
	BlockNumber     uint64
	RevertReason    string
}

// Accepted reports whether the transaction is final enough to register results
func (r Receipt) Accepted() bool {
	return r.ExecutionStatus == ExecutionSucceeded &&
		(r.FinalityStatus == FinalityAcceptedL2 || r.FinalityStatus == FinalityAcceptedL1)
}

// ExportResult lists the files written by a ledger export
type ExportResult struct {
	LatestPath   string
	SnapshotPath string // empty when nothing changed
}
