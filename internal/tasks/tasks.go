package tasks

const (
	TypeAuditArchive = "audit:archive"
)

type AuditArchivePayload struct {
	ExecutionLogID string
	AgentID        string
}
