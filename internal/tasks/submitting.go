package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

func NewAuditArchive(executionLogID, agentID string) (*asynq.Task, error) {
	payload, err := json.Marshal(AuditArchivePayload{ExecutionLogID: executionLogID, AgentID: agentID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeAuditArchive, payload), nil
}
