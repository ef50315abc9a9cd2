package management

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"relay/internal/constants"
	"relay/internal/logger"
	"relay/internal/tenant"
	"relay/pkg/errors"
)

type BaseHandler struct {
	Service Service
	Logger  logger.Logger
}

func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	h.Logger.ErrorwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)

	status := errors.ToHTTPStatus(err)
	response := errors.ToErrorResponse(err)

	c.JSON(status, response)
}

type Handler struct {
	BaseHandler
}

func NewHandler(service Service, log logger.Logger) *Handler {
	return &Handler{
		BaseHandler: BaseHandler{
			Service: service,
			Logger:  log,
		},
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		rules := v1.Group("/rules/routing")
		{
			rules.GET("", h.ListRules)
			rules.POST("", h.CreateRule)
			rules.POST("/import", h.ImportRules)
			rules.GET("/export", h.ExportRules)
			rules.GET("/:id", h.GetRule)
			rules.PUT("/:id", h.UpdateRule)
			rules.DELETE("/:id", h.DeleteRule)
			rules.GET("/:id/versions", h.GetRuleVersions)
			rules.GET("/:id/audit", h.GetRuleAuditLogs)
		}

		audit := v1.Group("/audit")
		{
			audit.GET("/logs", h.GetAuditLogs)
		}
	}
}

// ListRules godoc
// @Summary      List all routing rules
// @Description  Get a list of all routing rules
// @Tags         routing-rules
// @Accept       json
// @Produce      json
// @Success      200  {array}   routing.Rule
// @Failure      500  {object}  errors.ErrorResponse
// @Router       /rules/routing [get]
func (h *Handler) ListRules(c *gin.Context) {
	rules, err := h.Service.ListRoutingRules(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, rules)
}

// CreateRule godoc
// @Summary      Create a new routing rule
// @Description  Create a new routing rule with the provided data
// @Tags         routing-rules
// @Accept       json
// @Produce      json
// @Param        rule  body      CreateRoutingRuleRequest  true  "Routing rule data"
// @Success      201   {object}  routing.Rule
// @Failure      400   {object}  errors.ErrorResponse
// @Failure      409   {object}  errors.ErrorResponse
// @Failure      500   {object}  errors.ErrorResponse
// @Router       /rules/routing [post]
func (h *Handler) CreateRule(c *gin.Context) {
	var req CreateRoutingRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	rule, err := h.Service.CreateRoutingRule(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, rule)
}

// GetRule godoc
// @Summary      Get a routing rule by ID
// @Description  Get a specific routing rule by its ID
// @Tags         routing-rules
// @Accept       json
// @Produce      json
// @Param        id   path      string  true  "Rule ID"
// @Success      200  {object}  routing.Rule
// @Failure      404  {object}  errors.ErrorResponse
// @Failure      500  {object}  errors.ErrorResponse
// @Router       /rules/routing/{id} [get]
func (h *Handler) GetRule(c *gin.Context) {
	id := c.Param("id")
	rule, err := h.Service.GetRoutingRule(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, rule)
}

// UpdateRule godoc
// @Summary      Update a routing rule
// @Description  Update an existing routing rule by ID
// @Tags         routing-rules
// @Accept       json
// @Produce      json
// @Param        id    path      string                    true  "Rule ID"
// @Param        rule  body      UpdateRoutingRuleRequest  true  "Updated rule data"
// @Success      200   {object}  routing.Rule
// @Failure      400   {object}  errors.ErrorResponse
// @Failure      404   {object}  errors.ErrorResponse
// @Failure      500   {object}  errors.ErrorResponse
// @Router       /rules/routing/{id} [put]
func (h *Handler) UpdateRule(c *gin.Context) {
	id := c.Param("id")
	var req UpdateRoutingRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	rule, err := h.Service.UpdateRoutingRule(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, rule)
}

// DeleteRule godoc
// @Summary      Delete a routing rule
// @Description  Delete a routing rule by ID
// @Tags         routing-rules
// @Accept       json
// @Produce      json
// @Param        id   path      string  true  "Rule ID"
// @Success      204  "No Content"
// @Failure      404  {object}  errors.ErrorResponse
// @Failure      500  {object}  errors.ErrorResponse
// @Router       /rules/routing/{id} [delete]
func (h *Handler) DeleteRule(c *gin.Context) {
	id := c.Param("id")
	err := h.Service.DeleteRoutingRule(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ImportRules godoc
// @Summary      Import routing rules
// @Description  Import a JSON array of routing rules; the batch is validated before anything is written
// @Tags         routing-rules
// @Accept       json
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  errors.ErrorResponse
// @Failure      500  {object}  errors.ErrorResponse
// @Router       /rules/routing/import [post]
func (h *Handler) ImportRules(c *gin.Context) {
	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	imported, err := h.Service.ImportRoutingRules(c.Request.Context(), data)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"imported": imported})
}

// ExportRules godoc
// @Summary      Export routing rules
// @Description  Export all routing rules as a JSON array
// @Tags         routing-rules
// @Produce      json
// @Success      200  {array}   routing.Rule
// @Failure      500  {object}  errors.ErrorResponse
// @Router       /rules/routing/export [get]
func (h *Handler) ExportRules(c *gin.Context) {
	data, err := h.Service.ExportRoutingRules(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", data)
}

// GetRuleVersions godoc
// @Summary      Get rule version history
// @Description  Get version history for a specific routing rule
// @Tags         routing-rules
// @Accept       json
// @Produce      json
// @Param        id   path      string  true  "Rule ID"
// @Success      200  {array}   RuleVersion
// @Failure      404  {object}  errors.ErrorResponse
// @Failure      500  {object}  errors.ErrorResponse
// @Router       /rules/routing/{id}/versions [get]
func (h *Handler) GetRuleVersions(c *gin.Context) {
	id := c.Param("id")
	versions, err := h.Service.GetRuleVersions(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, versions)
}

// GetRuleAuditLogs godoc
// @Summary      Get audit logs for a rule
// @Description  Get audit logs for a specific routing rule
// @Tags         routing-rules
// @Accept       json
// @Produce      json
// @Param        id     path      string  true   "Rule ID"
// @Param        limit  query     int     false  "Maximum number of logs to return (1-1000)" default(100)
// @Success      200    {array}   AuditLog
// @Failure      404    {object}  errors.ErrorResponse
// @Failure      500    {object}  errors.ErrorResponse
// @Router       /rules/routing/{id}/audit [get]
func (h *Handler) GetRuleAuditLogs(c *gin.Context) {
	id := c.Param("id")
	limit := parseLimit(c.Query("limit"))

	logs, err := h.Service.GetAuditLogs(c.Request.Context(), &id, "routing", limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, logs)
}

// GetAuditLogs godoc
// @Summary      Get audit logs
// @Description  Get audit logs with optional filtering by rule ID and rule type
// @Tags         audit
// @Accept       json
// @Produce      json
// @Param        rule_id    query     string  false  "Filter by rule ID"
// @Param        rule_type  query     string  false  "Filter by rule type"
// @Param        limit      query     int     false  "Maximum number of logs to return (1-1000)" default(100)
// @Success      200        {array}   AuditLog
// @Failure      500        {object}  errors.ErrorResponse
// @Router       /audit/logs [get]
func (h *Handler) GetAuditLogs(c *gin.Context) {
	ruleID := c.Query("rule_id")
	ruleType := c.Query("rule_type")
	limit := parseLimit(c.Query("limit"))

	var ruleIDPtr *string
	if ruleID != "" {
		ruleIDPtr = &ruleID
	}

	logs, err := h.Service.GetAuditLogs(c.Request.Context(), ruleIDPtr, ruleType, limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, logs)
}

func parseLimit(limitStr string) int {
	if limitStr == "" {
		return constants.DefaultLimit
	}
	parsed, err := strconv.Atoi(limitStr)
	if err != nil || parsed <= 0 || parsed > constants.MaxLimit {
		return constants.DefaultLimit
	}
	return parsed
}

type TenantHandler struct {
	BaseHandler
}

func NewTenantHandler(service Service, log logger.Logger) *TenantHandler {
	return &TenantHandler{
		BaseHandler: BaseHandler{
			Service: service,
			Logger:  log,
		},
	}
}

func (h *TenantHandler) RegisterTenantRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		tenants := v1.Group("/tenants")
		{
			tenants.GET("", h.ListTenants)
			tenants.POST("", h.CreateTenant)
			tenants.GET("/:id", h.GetTenant)
			tenants.PUT("/:id", h.UpdateTenant)
			tenants.DELETE("/:id", h.DeleteTenant)
		}
	}
}

// ListTenants godoc
// @Summary      List all tenants
// @Description  Get a list of all registered subscriber tenants
// @Tags         tenants
// @Accept       json
// @Produce      json
// @Success      200  {array}   tenant.Record
// @Failure      500  {object}  errors.ErrorResponse
// @Router       /tenants [get]
func (h *TenantHandler) ListTenants(c *gin.Context) {
	records, err := h.Service.ListTenants(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, redactTenants(records))
}

// CreateTenant godoc
// @Summary      Register a new tenant
// @Description  Register a subscriber tenant with its webhook endpoint
// @Tags         tenants
// @Accept       json
// @Produce      json
// @Param        tenant  body      CreateTenantRequest  true  "Tenant data"
// @Success      201     {object}  tenant.Record
// @Failure      400     {object}  errors.ErrorResponse
// @Failure      500     {object}  errors.ErrorResponse
// @Router       /tenants [post]
func (h *TenantHandler) CreateTenant(c *gin.Context) {
	var req CreateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	record, err := h.Service.CreateTenant(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, redactTenant(record))
}

// GetTenant godoc
// @Summary      Get a tenant by ID
// @Description  Get a specific tenant by its ID
// @Tags         tenants
// @Accept       json
// @Produce      json
// @Param        id   path      string  true  "Tenant ID"
// @Success      200  {object}  tenant.Record
// @Failure      404  {object}  errors.ErrorResponse
// @Failure      500  {object}  errors.ErrorResponse
// @Router       /tenants/{id} [get]
func (h *TenantHandler) GetTenant(c *gin.Context) {
	id := c.Param("id")
	record, err := h.Service.GetTenant(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, redactTenant(record))
}

// UpdateTenant godoc
// @Summary      Update a tenant
// @Description  Update an existing tenant by ID
// @Tags         tenants
// @Accept       json
// @Produce      json
// @Param        id      path      string               true  "Tenant ID"
// @Param        tenant  body      UpdateTenantRequest  true  "Updated tenant data"
// @Success      200     {object}  tenant.Record
// @Failure      400     {object}  errors.ErrorResponse
// @Failure      404     {object}  errors.ErrorResponse
// @Failure      500     {object}  errors.ErrorResponse
// @Router       /tenants/{id} [put]
func (h *TenantHandler) UpdateTenant(c *gin.Context) {
	id := c.Param("id")
	var req UpdateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	record, err := h.Service.UpdateTenant(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, redactTenant(record))
}

// DeleteTenant godoc
// @Summary      Delete a tenant
// @Description  Delete a tenant by ID
// @Tags         tenants
// @Accept       json
// @Produce      json
// @Param        id   path      string  true  "Tenant ID"
// @Success      204  "No Content"
// @Failure      404  {object}  errors.ErrorResponse
// @Failure      500  {object}  errors.ErrorResponse
// @Router       /tenants/{id} [delete]
func (h *TenantHandler) DeleteTenant(c *gin.Context) {
	id := c.Param("id")
	err := h.Service.DeleteTenant(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// delivery secrets never leave the management API
func redactTenant(record *tenant.Record) *tenant.Record {
	if record == nil {
		return nil
	}
	clean := *record
	clean.Secret = ""
	return &clean
}

func redactTenants(records []tenant.Record) []tenant.Record {
	out := make([]tenant.Record, len(records))
	for i, record := range records {
		record.Secret = ""
		out[i] = record
	}
	return out
}

type SchemaHandler struct {
	BaseHandler
}

func NewSchemaHandler(service Service, log logger.Logger) *SchemaHandler {
	return &SchemaHandler{
		BaseHandler: BaseHandler{
			Service: service,
			Logger:  log,
		},
	}
}

func (h *SchemaHandler) RegisterSchemaRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		schemas := v1.Group("/schemas")
		{
			schemas.GET("", h.ListEventSchemas)
			schemas.POST("", h.CreateEventSchema)
			schemas.GET("/:code", h.GetEventSchema)
			schemas.PUT("/:code", h.UpdateEventSchema)
			schemas.DELETE("/:code", h.DeleteEventSchema)
		}
	}
}

// ListEventSchemas godoc
// @Summary      List all event schemas
// @Description  Get a list of all event-type schemas
// @Tags         event-schemas
// @Accept       json
// @Produce      json
// @Success      200  {array}   models.EventSchema
// @Failure      500  {object}  errors.ErrorResponse
// @Router       /schemas [get]
func (h *SchemaHandler) ListEventSchemas(c *gin.Context) {
	schemas, err := h.Service.ListEventSchemas(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, schemas)
}

// CreateEventSchema godoc
// @Summary      Create a new event schema
// @Description  Create a new event-type schema with the provided data
// @Tags         event-schemas
// @Accept       json
// @Produce      json
// @Param        schema  body      CreateEventSchemaRequest  true  "Event schema data"
// @Success      201     {object}  models.EventSchema
// @Failure      400     {object}  errors.ErrorResponse
// @Failure      409     {object}  errors.ErrorResponse
// @Failure      500     {object}  errors.ErrorResponse
// @Router       /schemas [post]
func (h *SchemaHandler) CreateEventSchema(c *gin.Context) {
	var req CreateEventSchemaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	schema, err := h.Service.CreateEventSchema(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, schema)
}

// GetEventSchema godoc
// @Summary      Get an event schema by code
// @Description  Get a specific event-type schema by its code
// @Tags         event-schemas
// @Accept       json
// @Produce      json
// @Param        code  path      string  true  "Schema code"
// @Success      200   {object}  models.EventSchema
// @Failure      404   {object}  errors.ErrorResponse
// @Failure      500   {object}  errors.ErrorResponse
// @Router       /schemas/{code} [get]
func (h *SchemaHandler) GetEventSchema(c *gin.Context) {
	code := c.Param("code")
	schema, err := h.Service.GetEventSchema(c.Request.Context(), code)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, schema)
}

// UpdateEventSchema godoc
// @Summary      Update an event schema
// @Description  Update an existing event-type schema by code
// @Tags         event-schemas
// @Accept       json
// @Produce      json
// @Param        code    path      string                    true  "Schema code"
// @Param        schema  body      UpdateEventSchemaRequest  true  "Updated schema data"
// @Success      200     {object}  models.EventSchema
// @Failure      400     {object}  errors.ErrorResponse
// @Failure      404     {object}  errors.ErrorResponse
// @Failure      500     {object}  errors.ErrorResponse
// @Router       /schemas/{code} [put]
func (h *SchemaHandler) UpdateEventSchema(c *gin.Context) {
	code := c.Param("code")
	var req UpdateEventSchemaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	schema, err := h.Service.UpdateEventSchema(c.Request.Context(), code, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, schema)
}

// DeleteEventSchema godoc
// @Summary      Delete an event schema
// @Description  Delete an event-type schema by code
// @Tags         event-schemas
// @Accept       json
// @Produce      json
// @Param        code  path      string  true  "Schema code"
// @Success      204   "No Content"
// @Failure      404   {object}  errors.ErrorResponse
// @Failure      500   {object}  errors.ErrorResponse
// @Router       /schemas/{code} [delete]
func (h *SchemaHandler) DeleteEventSchema(c *gin.Context) {
	code := c.Param("code")
	err := h.Service.DeleteEventSchema(c.Request.Context(), code)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
