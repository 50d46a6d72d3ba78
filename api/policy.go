package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/fido1hn/agentic-autonomous-wallets/internal/types"
)

type policyRequest struct {
	OwnerAgentID string          `json:"ownerAgentId" validate:"required"`
	Name         string          `json:"name" validate:"required"`
	Description  string          `json:"description,omitempty"`
	Status       string          `json:"status,omitempty" validate:"omitempty,oneof=active disabled archived"`
	DSL          json.RawMessage `json:"dsl,omitempty"`
}

type updatePolicyRequest struct {
	Name        string          `json:"name,omitempty"`
	Description string          `json:"description,omitempty"`
	Status      string          `json:"status,omitempty" validate:"omitempty,oneof=active disabled archived"`
	DSL         json.RawMessage `json:"dsl,omitempty"`
}

type assignRequest struct {
	AgentID  string `json:"agentId" validate:"required"`
	Priority int    `json:"priority,omitempty" validate:"omitempty,min=1"`
}

func (s *Server) CreatePolicy(c echo.Context) error {
	var req policyRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	created, err := s.policyService.CreatePolicy(c.Request().Context(), req.OwnerAgentID, req.Name, req.Description, req.DSL)
	if err != nil {
		s.logger.WithError(err).Warn("fail to create policy")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusCreated, created)
}

func (s *Server) ListPolicies(c echo.Context) error {
	owner := c.QueryParam("owner")
	if owner == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "owner query parameter is required"})
	}

	policies, err := s.policyService.ListPolicies(c.Request().Context(), owner)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list policies"})
	}
	return c.JSON(http.StatusOK, policies)
}

func (s *Server) GetPolicy(c echo.Context) error {
	id, err := uuid.Parse(c.Param("policyId"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid policy id"})
	}

	record, err := s.policyService.GetPolicy(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "policy not found"})
	}
	return c.JSON(http.StatusOK, record)
}

func (s *Server) UpdatePolicy(c echo.Context) error {
	id, err := uuid.Parse(c.Param("policyId"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid policy id"})
	}

	var req updatePolicyRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	updated, err := s.policyService.UpdatePolicy(c.Request().Context(), id, req.Name, req.Description, types.PolicyStatus(req.Status), req.DSL)
	if err != nil {
		s.logger.WithField("policy_id", id).WithError(err).Warn("fail to update policy")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, updated)
}

// ArchivePolicy is a soft delete. Archived policies stay readable for
// history but never evaluate again.
func (s *Server) ArchivePolicy(c echo.Context) error {
	id, err := uuid.Parse(c.Param("policyId"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid policy id"})
	}

	if err := s.policyService.ArchivePolicy(c.Request().Context(), id); err != nil {
		s.logger.WithField("policy_id", id).WithError(err).Warn("fail to archive policy")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) AssignPolicy(c echo.Context) error {
	id, err := uuid.Parse(c.Param("policyId"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid policy id"})
	}

	var req assignRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	assignment, err := s.policyService.AssignPolicy(c.Request().Context(), req.AgentID, id, req.Priority)
	if err != nil {
		s.logger.WithField("policy_id", id).WithError(err).Warn("fail to assign policy")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusCreated, assignment)
}

func (s *Server) UnassignPolicy(c echo.Context) error {
	id, err := uuid.Parse(c.Param("policyId"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid policy id"})
	}
	agentID := c.Param("agentId")
	if agentID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "agent id is required"})
	}

	if err := s.policyService.UnassignPolicy(c.Request().Context(), agentID, id); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to unassign policy"})
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) GetAgentPolicies(c echo.Context) error {
	agentID := c.Param("agentId")
	if agentID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "agent id is required"})
	}

	policies, err := s.policyService.ListAgentWalletPolicies(c.Request().Context(), agentID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list agent policies"})
	}
	return c.JSON(http.StatusOK, policies)
}

func (s *Server) GetAgentAssignments(c echo.Context) error {
	agentID := c.Param("agentId")
	if agentID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "agent id is required"})
	}

	assignments, err := s.policyService.ListAssignments(c.Request().Context(), agentID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list assignments"})
	}
	return c.JSON(http.StatusOK, assignments)
}
