package api

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/fido1hn/agentic-autonomous-wallets/internal/types"
	"github.com/fido1hn/agentic-autonomous-wallets/internal/validation"
	"github.com/fido1hn/agentic-autonomous-wallets/service"
	"github.com/fido1hn/agentic-autonomous-wallets/storage"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/sirupsen/logrus"
)

type Server struct {
	port          int64
	mode          string
	sdClient      *statsd.Client
	logger        *logrus.Logger
	db            storage.DatabaseStorage
	intentService service.Intent
	policyService service.Policy
	walletService service.Wallet
}

// NewServer returns a new server.
func NewServer(port int64,
	mode string,
	sdClient *statsd.Client,
	db storage.DatabaseStorage,
	intentService service.Intent,
	policyService service.Policy,
	walletService service.Wallet) *Server {
	logger := logrus.WithField("service", "api").Logger

	logger.Infof("Initializing new server, mode: %s", mode)

	return &Server{
		port:          port,
		mode:          mode,
		sdClient:      sdClient,
		logger:        logger,
		db:            db,
		intentService: intentService,
		policyService: policyService,
		walletService: walletService,
	}
}

func (s *Server) StartServer() error {
	e := echo.New()
	e.Logger.SetLevel(log.DEBUG)
	e.Validator = &validation.EchoValidator{Validator: validation.Validate}
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("1M"))
	e.Use(s.statsdMiddleware)
	e.Use(middleware.CORS())
	limiterStore := middleware.NewRateLimiterMemoryStoreWithConfig(
		middleware.RateLimiterMemoryStoreConfig{Rate: 5, Burst: 30, ExpiresIn: 5 * time.Minute},
	)
	e.Use(middleware.RateLimiter(limiterStore))
	e.GET("/ping", s.Ping)

	grp := e.Group("/intent")
	// gateway mode fronts untrusted agents; trusted mode sits behind an
	// internal proxy that already authenticated the caller
	if s.mode == "gateway" {
		grp.Use(s.agentAuthMiddleware)
	}
	grp.POST("/execute", s.ExecuteIntent)
	grp.GET("/logs/:agentId", s.GetExecutionLogs)
	grp.GET("/logs/detail/:id", s.GetExecutionLog)

	policyGroup := e.Group("/policy")
	policyGroup.POST("", s.CreatePolicy)
	policyGroup.GET("", s.ListPolicies)
	policyGroup.GET("/:policyId", s.GetPolicy)
	policyGroup.PUT("/:policyId", s.UpdatePolicy)
	policyGroup.DELETE("/:policyId", s.ArchivePolicy)
	policyGroup.POST("/:policyId/assign", s.AssignPolicy)
	policyGroup.DELETE("/:policyId/assign/:agentId", s.UnassignPolicy)

	agentGroup := e.Group("/agent")
	agentGroup.GET("/:agentId/policies", s.GetAgentPolicies)
	agentGroup.GET("/:agentId/assignments", s.GetAgentAssignments)
	agentGroup.GET("/:agentId/wallet", s.GetAgentWallet)
	agentGroup.POST("/:agentId/apikeys", s.CreateAgentAPIKey)

	return e.Start(fmt.Sprintf(":%d", s.port))
}

func (s *Server) Ping(c echo.Context) error {
	return c.String(http.StatusOK, "Aegis gateway is running")
}

// ExecuteIntent runs one wallet action through the policy and execution
// pipeline. The response is always 200 with a status field; policy
// rejections are not transport errors.
func (s *Server) ExecuteIntent(c echo.Context) error {
	var req types.ExecutionIntentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	// gateway mode pins the intent to the authenticated agent
	if authedAgent, ok := c.Get("agent_id").(string); ok && authedAgent != "" {
		if req.AgentID != "" && req.AgentID != authedAgent {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "agent id does not match credentials"})
		}
		req.AgentID = authedAgent
	}

	intent, fieldErrs := types.ValidateExecutionIntent(req)
	if len(fieldErrs) > 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"errors": fieldErrs})
	}

	if err := s.sdClient.Count("intent.received", 1, []string{"action:" + string(intent.Action)}, 1); err != nil {
		s.logger.Errorf("fail to count metric, err: %v", err)
	}

	result, err := s.intentService.Execute(c.Request().Context(), intent)
	if err != nil {
		s.logger.WithField("agent_id", intent.AgentID).WithError(err).Error("fail to execute intent")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "intent execution failed"})
	}

	return c.JSON(http.StatusOK, result)
}

func (s *Server) GetExecutionLogs(c echo.Context) error {
	agentID := c.Param("agentId")
	if agentID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "agent id is required"})
	}

	take := 50
	if raw := c.QueryParam("take"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 200 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "take must be between 1 and 200"})
		}
		take = parsed
	}
	skip := 0
	if raw := c.QueryParam("skip"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "skip must be non-negative"})
		}
		skip = parsed
	}

	logs, err := s.db.GetExecutionLogs(c.Request().Context(), agentID, take, skip)
	if err != nil {
		return fmt.Errorf("fail to get execution logs, err: %w", err)
	}
	return c.JSON(http.StatusOK, logs)
}

func (s *Server) GetExecutionLog(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid execution log id"})
	}

	record, err := s.db.GetExecutionLog(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "execution log not found"})
	}
	return c.JSON(http.StatusOK, record)
}

func (s *Server) GetAgentWallet(c echo.Context) error {
	agentID := c.Param("agentId")
	if agentID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "agent id is required"})
	}

	binding, err := s.walletService.GetOrCreateWallet(c.Request().Context(), agentID)
	if err != nil {
		return fmt.Errorf("fail to get wallet binding, err: %w", err)
	}
	return c.JSON(http.StatusOK, binding)
}

type createAPIKeyRequest struct {
	Label string `json:"label,omitempty"`
}

// CreateAgentAPIKey mints a new API key for an agent. The plaintext key is
// returned exactly once; only its SHA-256 is stored.
func (s *Server) CreateAgentAPIKey(c echo.Context) error {
	agentID := c.Param("agentId")
	if agentID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "agent id is required"})
	}

	var req createAPIKeyRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	apiKey := "aegis_" + uuid.NewString() + uuid.NewString()
	hash := sha256.Sum256([]byte(apiKey))

	record, err := s.db.InsertAgentAPIKey(c.Request().Context(), types.AgentAPIKey{
		ID:      uuid.New(),
		AgentID: agentID,
		KeyHash: hex.EncodeToString(hash[:]),
		Label:   req.Label,
		Status:  "active",
	})
	if err != nil {
		return fmt.Errorf("fail to insert api key, err: %w", err)
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"id":      record.ID,
		"agentId": record.AgentID,
		"label":   record.Label,
		"apiKey":  apiKey,
	})
}
