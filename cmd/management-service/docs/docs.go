// Package docs holds the generated OpenAPI definition for the management API.
// Regenerate with: swag init -g cmd/management-service/main.go -o cmd/management-service/docs
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "termsOfService": "http://swagger.io/terms/",
        "contact": {
            "name": "API Support",
            "url": "http://www.example.com/support",
            "email": "support@example.com"
        },
        "license": {
            "name": "Apache 2.0",
            "url": "http://www.apache.org/licenses/LICENSE-2.0.html"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/audit/logs": {
            "get": {
                "produces": ["application/json"],
                "tags": ["audit"],
                "summary": "Get audit logs",
                "parameters": [
                    {"type": "string", "name": "rule_id", "in": "query"},
                    {"type": "string", "name": "rule_type", "in": "query"},
                    {"type": "integer", "name": "limit", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/rules/routing": {
            "get": {
                "produces": ["application/json"],
                "tags": ["routing-rules"],
                "summary": "List all routing rules",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["routing-rules"],
                "summary": "Create a new routing rule",
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/rules/routing/export": {
            "get": {
                "produces": ["application/json"],
                "tags": ["routing-rules"],
                "summary": "Export routing rules",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/rules/routing/import": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["routing-rules"],
                "summary": "Import routing rules",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/rules/routing/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["routing-rules"],
                "summary": "Get a routing rule by ID",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
            },
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["routing-rules"],
                "summary": "Update a routing rule",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
            },
            "delete": {
                "tags": ["routing-rules"],
                "summary": "Delete a routing rule",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/rules/routing/{id}/audit": {
            "get": {
                "produces": ["application/json"],
                "tags": ["routing-rules"],
                "summary": "Get audit logs for a rule",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/rules/routing/{id}/versions": {
            "get": {
                "produces": ["application/json"],
                "tags": ["routing-rules"],
                "summary": "Get rule version history",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/schemas": {
            "get": {
                "produces": ["application/json"],
                "tags": ["event-schemas"],
                "summary": "List all event schemas",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["event-schemas"],
                "summary": "Create a new event schema",
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/schemas/{code}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["event-schemas"],
                "summary": "Get an event schema by code",
                "parameters": [{"type": "string", "name": "code", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
            },
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["event-schemas"],
                "summary": "Update an event schema",
                "parameters": [{"type": "string", "name": "code", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
            },
            "delete": {
                "tags": ["event-schemas"],
                "summary": "Delete an event schema",
                "parameters": [{"type": "string", "name": "code", "in": "path", "required": true}],
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/tenants": {
            "get": {
                "produces": ["application/json"],
                "tags": ["tenants"],
                "summary": "List all tenants",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["tenants"],
                "summary": "Register a new tenant",
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/tenants/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["tenants"],
                "summary": "Get a tenant by ID",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
            },
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["tenants"],
                "summary": "Update a tenant",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
            },
            "delete": {
                "tags": ["tenants"],
                "summary": "Delete a tenant",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"204": {"description": "No Content"}}
            }
        }
    }
}`

var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{"http", "https"},
	Title:            "Relay Management Service API",
	Description:      "REST API for managing routing rules, subscriber tenants, and event schemas",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
