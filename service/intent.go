package service

import (
	"context"
	"fmt"
	"time"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/fido1hn/agentic-autonomous-wallets/internal/audit"
	"github.com/fido1hn/agentic-autonomous-wallets/internal/builder"
	"github.com/fido1hn/agentic-autonomous-wallets/internal/custody"
	"github.com/fido1hn/agentic-autonomous-wallets/internal/policy"
	"github.com/fido1hn/agentic-autonomous-wallets/internal/reason"
	"github.com/fido1hn/agentic-autonomous-wallets/internal/simulation"
	"github.com/fido1hn/agentic-autonomous-wallets/internal/solana"
	"github.com/fido1hn/agentic-autonomous-wallets/internal/tasks"
	"github.com/fido1hn/agentic-autonomous-wallets/internal/types"
	"github.com/fido1hn/agentic-autonomous-wallets/storage"

	"github.com/google/uuid"
)

// BuilderRegistry selects the transaction builder for a resolved intent.
type BuilderRegistry interface {
	For(intent *types.ExecutionIntent) (builder.TransactionBuilder, error)
}

// AgentPolicySource provides the active policies attached to an agent wallet.
// Satisfied by PolicyService.
type AgentPolicySource interface {
	ListAgentWalletPolicies(ctx context.Context, agentID string) ([]types.PolicyRecord, error)
}

// SimulationGate dry-runs built payloads; a nil outcome means proceed.
type SimulationGate interface {
	Check(ctx context.Context, serializedTxs []string) *simulation.Outcome
}

// TaskEnqueuer is the slice of asynq.Client the router uses.
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Intent is the execution pipeline entry point.
type Intent interface {
	Execute(ctx context.Context, intent *types.ExecutionIntent) (*types.ExecutionResult, error)
}

// IntentService orchestrates one intent through the fixed stage order:
// idempotency lookup, wallet resolution, assigned-policy evaluation, baseline
// evaluation, transaction build, simulation, sign-and-broadcast, commit.
// Every exit path emits an audit event, appends an execution log, and saves
// the idempotency record.
type IntentService struct {
	logger        *logrus.Logger
	db            storage.DatabaseStorage
	policyService AgentPolicySource
	walletService Wallet
	builders      BuilderRegistry
	gate          SimulationGate
	provider      custody.Provider
	auditSink     audit.Sink
	queue         TaskEnqueuer
	sdClient      *statsd.Client
	baseline      policy.BaselineLimits
	cluster       solana.Cluster
	now           func() time.Time
}

type IntentServiceParams struct {
	Logger        *logrus.Logger
	DB            storage.DatabaseStorage
	PolicyService AgentPolicySource
	WalletService Wallet
	Builders      BuilderRegistry
	Gate          SimulationGate
	Provider      custody.Provider
	AuditSink     audit.Sink
	Queue         TaskEnqueuer
	SdClient      *statsd.Client
	Baseline      policy.BaselineLimits
	Cluster       solana.Cluster
}

func NewIntentService(params IntentServiceParams) (*IntentService, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("database storage cannot be nil")
	}
	if params.PolicyService == nil || params.WalletService == nil {
		return nil, fmt.Errorf("policy and wallet services cannot be nil")
	}
	if params.Builders == nil || params.Gate == nil || params.Provider == nil {
		return nil, fmt.Errorf("builders, gate and custody provider cannot be nil")
	}
	if params.AuditSink == nil {
		return nil, fmt.Errorf("audit sink cannot be nil")
	}
	return &IntentService{
		logger:        params.Logger,
		db:            params.DB,
		policyService: params.PolicyService,
		walletService: params.WalletService,
		builders:      params.Builders,
		gate:          params.Gate,
		provider:      params.Provider,
		auditSink:     params.AuditSink,
		queue:         params.Queue,
		sdClient:      params.SdClient,
		baseline:      params.Baseline,
		cluster:       params.Cluster,
		now:           time.Now,
	}, nil
}

func rejected(code reason.Code, detail string, checks []string, match *types.PolicyMatchInfo) *types.ExecutionResult {
	return &types.ExecutionResult{
		Status:       types.ExecutionRejected,
		ReasonCode:   string(code),
		ReasonDetail: detail,
		PolicyChecks: checks,
		PolicyMatch:  match,
	}
}

func (s *IntentService) Execute(ctx context.Context, intent *types.ExecutionIntent) (*types.ExecutionResult, error) {
	idempotencyKey := intent.IdempotencyKey

	// 1. Replay a decodable stored result verbatim. Undecodable payloads are
	// treated as absent so a poisoned record heals on the next run.
	if idempotencyKey != "" {
		record, err := s.db.FindIdempotencyRecord(ctx, intent.AgentID, idempotencyKey)
		if err != nil {
			return nil, fmt.Errorf("failed to look up idempotency record: %w", err)
		}
		if record != nil {
			if stored := types.DecodeExecutionResult(record.ResultJSON); stored != nil {
				s.count("intent.idempotent_replay", "")
				return stored, nil
			}
		}
	}

	// 2. Wallet resolution.
	binding, err := s.walletService.GetOrCreateWallet(ctx, intent.AgentID)
	if err != nil {
		s.logger.WithField("agent_id", intent.AgentID).WithError(err).Error("fail to resolve wallet")
		result := rejected(reason.WalletAddressUnavailable, "Wallet could not be resolved for this agent.", []string{}, nil)
		return s.finalizeRejection(ctx, intent, idempotencyKey, result), nil
	}
	if intent.WalletAddress == "" {
		intent.WalletAddress = binding.WalletAddress
		if intent.WalletAddress == "" {
			intent.WalletAddress = binding.WalletRef
		}
	}
	if intent.WalletAddress == "" {
		result := rejected(reason.WalletAddressUnavailable, "Wallet could not be resolved for this agent.", []string{}, nil)
		return s.finalizeRejection(ctx, intent, idempotencyKey, result), nil
	}

	if intent.Action == types.ActionSwap {
		intent.SwapProtocol = builder.ResolveProtocol(intent.SwapProtocol, s.cluster)
	}

	// Persisted spend snapshots feed both evaluators.
	dayKey := types.DayKey(s.now())
	dailySpent, err := s.db.GetDailySpend(ctx, intent.AgentID, dayKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read daily spend: %w", err)
	}
	actionSpent, err := s.db.GetDailyActionSpend(ctx, intent.AgentID, dayKey, intent.Action)
	if err != nil {
		return nil, fmt.Errorf("failed to read daily action spend: %w", err)
	}

	// 3. Assigned-policy evaluation.
	assigned, err := s.policyService.ListAgentWalletPolicies(ctx, intent.AgentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assigned policies: %w", err)
	}
	assignedDecision := policy.EvaluateAssigned(intent, assigned, policy.Context{
		CurrentDailySpentLamports: dailySpent,
		CurrentDailySpentByAction: map[types.IntentAction]string{intent.Action: actionSpent},
		ResolvedSwapProtocol:      intent.SwapProtocol,
	})
	checks := assignedDecision.Checks
	if !assignedDecision.Allowed {
		result := rejected(reason.Code(assignedDecision.ReasonCode), assignedDecision.ReasonDetail, checks, assignedDecision.Match)
		return s.finalizeRejection(ctx, intent, idempotencyKey, result), nil
	}

	// 4. Baseline guard.
	baselineDecision := policy.EvaluateBaseline(intent, s.baseline, dailySpent)
	checks = append(checks, baselineDecision.Checks...)
	if !baselineDecision.Allowed {
		result := rejected(reason.Code(baselineDecision.ReasonCode), baselineDecision.ReasonDetail, checks, nil)
		return s.finalizeRejection(ctx, intent, idempotencyKey, result), nil
	}

	// 5. Transaction build. Builder errors that already carry a stable code
	// propagate verbatim; anything else coerces to TX_BUILD_FAILED.
	payloads, err := s.buildTransactions(ctx, intent)
	if err != nil {
		code, detail, ok := reason.SplitError(err)
		if !ok {
			code, detail = reason.TxBuildFailed, ""
		}
		result := rejected(code, detail, checks, nil)
		return s.finalizeRejection(ctx, intent, idempotencyKey, result), nil
	}

	// 6. Simulation gate over every payload.
	checks = append(checks, "rpc_simulation")
	if outcome := s.gate.Check(ctx, payloads); outcome != nil {
		result := rejected(outcome.ReasonCode, outcome.ReasonDetail, checks, nil)
		return s.finalizeRejection(ctx, intent, idempotencyKey, result), nil
	}

	// 7. Sign and broadcast, in payload order.
	signature, err := s.signAll(ctx, intent, binding, payloads)
	if err != nil {
		code, detail, ok := reason.SplitError(err)
		if !ok {
			classified := reason.Classify(err, reason.SigningFailed, "Provider signing or broadcast failed.")
			code, detail = classified.Code, classified.Detail
		}
		result := rejected(code, detail, checks, nil)
		return s.finalizeRejection(ctx, intent, idempotencyKey, result), nil
	}

	// 8. Commit: atomic spend increments, then the approved result. A failure
	// here happens after funds moved and must surface to the caller.
	if err := s.db.AddDailySpend(ctx, intent.AgentID, dayKey, intent.AmountAtomic); err != nil {
		return nil, fmt.Errorf("failed to commit daily spend: %w", err)
	}
	if err := s.db.AddDailyActionSpend(ctx, intent.AgentID, dayKey, intent.Action, intent.AmountAtomic); err != nil {
		return nil, fmt.Errorf("failed to commit daily action spend: %w", err)
	}

	approved := &types.ExecutionResult{
		Status:       types.ExecutionApproved,
		Provider:     signature.Provider,
		TxSignature:  signature.TxSignature,
		TxSignatures: signature.TxSignatures,
		PolicyChecks: checks,
	}

	s.emitAudit(intent, approved)
	s.appendExecutionLog(ctx, intent, approved)
	s.count("intent.approved", "")

	if idempotencyKey != "" {
		if err := s.db.SaveIdempotencyRecord(ctx, intent.AgentID, idempotencyKey, encodeResult(approved)); err != nil {
			return nil, fmt.Errorf("failed to save idempotency record after broadcast: %w", err)
		}
	}

	return approved, nil
}

func (s *IntentService) buildTransactions(ctx context.Context, intent *types.ExecutionIntent) ([]string, error) {
	txBuilder, err := s.builders.For(intent)
	if err != nil {
		return nil, err
	}
	payloads, err := txBuilder.Build(ctx, intent)
	if err != nil {
		return nil, err
	}
	if len(payloads) == 0 {
		return nil, reason.Errorf(reason.TxBuildFailed, "builder returned no payloads")
	}
	for _, payload := range payloads {
		if payload == "" {
			return nil, reason.Errorf(reason.TxBuildFailed, "builder returned an empty payload")
		}
	}
	return payloads, nil
}

func (s *IntentService) signAll(ctx context.Context, intent *types.ExecutionIntent, binding types.WalletBinding, payloads []string) (types.SignatureResult, error) {
	var signatures []string
	for _, payload := range payloads {
		result, err := s.provider.SignAndSend(ctx, custody.SignRequest{
			AgentID:      intent.AgentID,
			WalletRef:    binding.WalletRef,
			SerializedTx: payload,
		})
		if err != nil {
			return types.SignatureResult{}, err
		}
		signatures = append(signatures, result.TxSignature)
	}

	combined := types.SignatureResult{
		TxSignature: signatures[len(signatures)-1],
		Provider:    s.provider.Name(),
	}
	if len(signatures) > 1 {
		combined.TxSignatures = signatures
	}
	return combined, nil
}

// finalizeRejection runs the shared exit path for rejections. Audit and log
// failures are swallowed so the authorization decision stays authoritative;
// an idempotency-save failure on a rejection is logged and swallowed too,
// since no funds moved and re-execution is safe.
func (s *IntentService) finalizeRejection(ctx context.Context, intent *types.ExecutionIntent, idempotencyKey string, result *types.ExecutionResult) *types.ExecutionResult {
	if result.PolicyChecks == nil {
		result.PolicyChecks = []string{}
	}

	s.emitAudit(intent, result)
	s.appendExecutionLog(ctx, intent, result)
	s.count("intent.rejected", result.ReasonCode)

	if idempotencyKey != "" {
		if err := s.db.SaveIdempotencyRecord(ctx, intent.AgentID, idempotencyKey, encodeResult(result)); err != nil {
			s.logger.WithFields(logrus.Fields{
				"agent_id": intent.AgentID,
			}).WithError(err).Error("fail to save idempotency record for rejection")
		}
	}

	return result
}

func (s *IntentService) emitAudit(intent *types.ExecutionIntent, result *types.ExecutionResult) {
	err := s.auditSink.Write(audit.Event{
		AgentID:      intent.AgentID,
		Status:       string(result.Status),
		ReasonCode:   result.ReasonCode,
		Provider:     result.Provider,
		TxSignature:  result.TxSignature,
		PolicyChecks: result.PolicyChecks,
	})
	if err != nil {
		s.logger.WithField("agent_id", intent.AgentID).WithError(err).Error("fail to write audit event")
	}
}

func (s *IntentService) appendExecutionLog(ctx context.Context, intent *types.ExecutionIntent, result *types.ExecutionResult) {
	saved, err := s.db.InsertExecutionLog(ctx, types.ExecutionLog{
		ID:           uuid.New(),
		AgentID:      intent.AgentID,
		Status:       result.Status,
		ReasonCode:   result.ReasonCode,
		Provider:     result.Provider,
		TxSignature:  result.TxSignature,
		PolicyChecks: result.PolicyChecks,
	})
	if err != nil {
		s.logger.WithField("agent_id", intent.AgentID).WithError(err).Error("fail to append execution log")
		return
	}

	if s.queue == nil {
		return
	}
	task, err := tasks.NewAuditArchive(saved.ID.String(), intent.AgentID)
	if err != nil {
		s.logger.WithError(err).Error("fail to create audit archive task")
		return
	}
	if _, err := s.queue.Enqueue(task); err != nil {
		s.logger.WithError(err).Warn("fail to enqueue audit archive task")
	}
}

func (s *IntentService) count(name, reasonCode string) {
	if s.sdClient == nil {
		return
	}
	var tags []string
	if reasonCode != "" {
		tags = append(tags, "reason:"+reasonCode)
	}
	if err := s.sdClient.Count(name, 1, tags, 1); err != nil {
		s.logger.WithError(err).Error("fail to send metric")
	}
}

func encodeResult(result *types.ExecutionResult) string {
	return result.Encode()
}
