// Package web provides HTTP handlers and REST API endpoints for workflow authoring.
package web

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"github.com/dukex/flowcanvas/pkg/agents"
	"github.com/dukex/flowcanvas/pkg/catalog"
	"github.com/dukex/flowcanvas/pkg/models"
	"github.com/dukex/flowcanvas/pkg/preview"
	"github.com/dukex/flowcanvas/pkg/serializer"
	"github.com/dukex/flowcanvas/pkg/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

type APIHandlers struct {
	workflowService *services.Workflow
	validator       *validator.Validate
	catalog         *catalog.Catalog
	agents          agents.Directory
	renderer        *preview.Renderer
}

func NewAPIHandlers(
	workflowService *services.Workflow,
	validator *validator.Validate,
	catalog *catalog.Catalog,
	agents agents.Directory,
	renderer *preview.Renderer,
) *APIHandlers {
	return &APIHandlers{
		workflowService: workflowService,
		validator:       validator,
		catalog:         catalog,
		agents:          agents,
		renderer:        renderer,
	}
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	req, err := h.parseListWorkflowsRequest(c)
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	result, err := h.workflowService.ListWorkflows(c.Context(), *req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"workflows":     result.Workflows,
		"total_count":   result.TotalCount,
		"has_next_page": result.HasNextPage,
		"pagination": fiber.Map{
			"limit":  req.Limit,
			"offset": req.Offset,
		},
		"sorting": fiber.Map{
			"sort_by":    req.SortBy,
			"sort_order": req.SortOrder,
		},
	})
}

// parseListWorkflowsRequest parses query parameters for listing workflows. Range and
// sort checks are left to the service.
func (h *APIHandlers) parseListWorkflowsRequest(c fiber.Ctx) (*services.ListWorkflowsRequest, error) {
	req := &services.ListWorkflowsRequest{}

	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return nil, err
		}

		req.Limit = limit
	}

	if offsetStr := c.Query("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil {
			return nil, err
		}

		req.Offset = offset
	}

	req.AgentID = c.Query("agent_id")
	req.SortBy = c.Query("sort_by")
	req.SortOrder = c.Query("sort_order")

	return req, nil
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	workflow, report, err := h.workflowService.Fetch(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(h.workflowResponse(c, workflow, report))
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req CreateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.workflowService.Create(c.Context(), services.CreateWorkflowRequest{
		Name:    req.Name,
		AgentID: req.AgentID,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(h.workflowResponse(c, created, nil))
}

// SaveWorkflow replaces the stored document. Invalid graph entries are dropped, not
// rejected; the response lists them under issues.
func (h *APIHandlers) SaveWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var req SaveWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	saved, report, err := h.workflowService.Save(c.Context(), id, req.document())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(h.workflowResponse(c, saved, report))
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	if err := h.workflowService.Delete(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) GetWorkflowPreview(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	workflow, _, err := h.workflowService.Fetch(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	var buf bytes.Buffer
	if err := h.renderer.EncodePNG(&buf, workflow); err != nil {
		return handleServiceError(c, err)
	}

	c.Set(fiber.HeaderContentType, "image/png")

	return c.Send(buf.Bytes())
}

func (h *APIHandlers) GetTemplates(c fiber.Ctx) error {
	kind := models.NodeKind(c.Query("kind"))
	if kind == "" {
		return c.JSON(fiber.Map{"templates": h.catalog.Templates()})
	}

	if !kind.IsValid() {
		return badRequest(c, "kind must be one of trigger, action, condition")
	}

	return c.JSON(fiber.Map{"templates": h.catalog.ByKind(kind)})
}

func (h *APIHandlers) GetAgents(c fiber.Ctx) error {
	list := []models.Agent{}

	if h.agents != nil {
		found, err := h.agents.ListAgents(c.Context())
		if err != nil {
			return internalError(c, err)
		}

		list = append(list, found...)
	}

	return c.JSON(fiber.Map{"agents": list})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, repOk := h.workflowService.HealthCheck(c.Context())

	catalogCheck := "Catalog loaded with " + strconv.Itoa(h.catalog.Len()) + " templates"
	catOk := h.catalog.Len() > 0

	if !catOk {
		catalogCheck = "Catalog is empty"
	}

	status := "unhealthy"
	message := "Flowcanvas API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if catOk && repOk {
		status = "healthy"
		message = "Flowcanvas API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"catalog":    catalogCheck,
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) workflowResponse(c fiber.Ctx, workflow *models.Workflow, report *serializer.Report) WorkflowResponse {
	response := WorkflowResponse{
		Workflow:  workflow,
		AgentName: agents.Label(c.Context(), h.agents, workflow.AgentID),
	}

	if !report.Clean() {
		response.Issues = report.Issues
	}

	return response
}
