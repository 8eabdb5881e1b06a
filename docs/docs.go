// Package docs registers the OpenAPI document served at /swagger/doc.json.
// Regenerate with: swag init -g cmd/neurasense/main.go
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/connect/{provider}": {
            "get": {
                "tags": ["Connect"],
                "summary": "Start a provider connection",
                "parameters": [
                    {"type": "string", "enum": ["twitter", "reddit", "spotify"], "name": "provider", "in": "path", "required": true},
                    {"type": "string", "name": "token", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/driving.InitiateResponse"}},
                    "302": {"description": "Redirect to provider authorization page"},
                    "401": {"description": "Not authenticated", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "404": {"description": "Unknown or unconfigured provider", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "500": {"description": "Storage error", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/connect/{provider}/callback": {
            "get": {
                "tags": ["Connect"],
                "summary": "Provider OAuth callback",
                "parameters": [
                    {"type": "string", "enum": ["twitter", "reddit", "spotify"], "name": "provider", "in": "path", "required": true},
                    {"type": "string", "name": "code", "in": "query"},
                    {"type": "string", "name": "state", "in": "query"},
                    {"type": "string", "name": "error", "in": "query"},
                    {"type": "string", "name": "error_description", "in": "query"}
                ],
                "responses": {
                    "302": {"description": "Redirect to application"},
                    "400": {"description": "Missing code or state, invalid state or denied", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "500": {"description": "Exchange or storage failure", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "504": {"description": "Provider timeout", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/api/v1/connections": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["Connections"],
                "summary": "List connections",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.ConnectionsResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/api/v1/connections/{provider}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["Connections"],
                "summary": "Get connection",
                "parameters": [
                    {"type": "string", "enum": ["twitter", "reddit", "spotify"], "name": "provider", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.TokenRecordSummary"}},
                    "404": {"description": "Not connected or unknown provider", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["Connections"],
                "summary": "Disconnect provider",
                "parameters": [
                    {"type": "string", "enum": ["twitter", "reddit", "spotify"], "name": "provider", "in": "path", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Unknown provider", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/health": {"get": {"tags": ["Health"], "summary": "Health check", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/http.StatusResponse"}}}}},
        "/ready": {"get": {"tags": ["Health"], "summary": "Readiness check", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/http.StatusResponse"}}, "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/http.StatusResponse"}}}}},
        "/version": {"get": {"tags": ["Health"], "summary": "Get API version", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/http.VersionResponse"}}}}}
    },
    "definitions": {
        "driving.InitiateResponse": {
            "type": "object",
            "properties": {
                "authorization_url": {"type": "string"},
                "state": {"type": "string"},
                "expires_at": {"type": "string"}
            }
        },
        "domain.TokenRecordSummary": {
            "type": "object",
            "properties": {
                "provider": {"type": "string"},
                "username": {"type": "string"},
                "has_refresh_token": {"type": "boolean"},
                "expires_at": {"type": "string"},
                "connected_at": {"type": "string"},
                "fetched_at": {"type": "string"}
            }
        },
        "http.ConnectionsResponse": {
            "type": "object",
            "properties": {
                "connections": {"type": "object", "additionalProperties": {"type": "boolean"}}
            }
        },
        "http.ErrorResponse": {"type": "object", "properties": {"error": {"type": "string"}}},
        "http.StatusResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "checks": {"type": "object", "additionalProperties": {"type": "string"}}
            }
        },
        "http.VersionResponse": {"type": "object", "properties": {"version": {"type": "string"}}}
    },
    "securityDefinitions": {
        "BearerAuth": {"description": "Identity token. Format: \"Bearer {token}\"", "type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{"http", "https"},
	Title:            "NeuraSense Connect API",
	Description:      "OAuth connection manager for Twitter, Reddit and Spotify accounts.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
