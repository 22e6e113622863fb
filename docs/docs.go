// Package docs registers the OpenAPI description of the Bastion API with swag.
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
        "/api/v1/health": {
            "get": {"tags": ["system"], "summary": "Health check", "responses": {"200": {"description": "OK"}, "503": {"description": "Service Unavailable"}}}
        },
        "/api/v1/info": {
            "get": {"tags": ["system"], "summary": "Get server information", "responses": {"200": {"description": "OK"}}}
        },
        "/api/v1/version": {
            "get": {"tags": ["system"], "summary": "Get server version", "responses": {"200": {"description": "OK"}}}
        },
        "/admin/auth/login": {
            "post": {"tags": ["auth"], "summary": "User login", "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}}
        },
        "/admin/auth/logout": {
            "post": {"tags": ["auth"], "summary": "Log out", "responses": {"204": {"description": "No Content"}}}
        },
        "/admin/auth/oidc/login": {
            "get": {"tags": ["auth"], "summary": "Start OIDC login", "responses": {"302": {"description": "Found"}}}
        },
        "/admin/auth/oidc/callback": {
            "get": {"tags": ["auth"], "summary": "OIDC callback", "responses": {"302": {"description": "Found"}}}
        },
        "/admin/me": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["auth"], "summary": "Current user", "responses": {"200": {"description": "OK"}}}
        },
        "/admin/users": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["users"], "summary": "List users", "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["users"], "summary": "Create a user", "responses": {"201": {"description": "Created"}, "409": {"description": "Conflict"}}}
        },
        "/admin/users/deleted": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["users"], "summary": "List deleted users", "responses": {"200": {"description": "OK"}}}
        },
        "/admin/users/{id}": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["users"], "summary": "Get a user", "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}},
            "put": {"security": [{"BearerAuth": []}], "tags": ["users"], "summary": "Update a user", "responses": {"200": {"description": "OK"}}},
            "delete": {"security": [{"BearerAuth": []}], "tags": ["users"], "summary": "Move a user to the recycle bin", "responses": {"204": {"description": "No Content"}, "409": {"description": "Conflict"}}}
        },
        "/admin/users/{id}/activate": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["users"], "summary": "Activate a user", "responses": {"200": {"description": "OK"}}}
        },
        "/admin/users/{id}/deactivate": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["users"], "summary": "Deactivate a user", "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}}}
        },
        "/admin/users/{id}/restore": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["users"], "summary": "Restore a deleted user", "responses": {"204": {"description": "No Content"}}}
        },
        "/admin/users/{id}/purge": {
            "delete": {"security": [{"BearerAuth": []}], "tags": ["users"], "summary": "Permanently delete a user", "responses": {"204": {"description": "No Content"}, "409": {"description": "Conflict"}}}
        },
        "/admin/users/{id}/roles": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["users"], "summary": "List the roles of a user", "responses": {"200": {"description": "OK"}}}
        },
        "/admin/users/{id}/roles/{roleId}": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["users"], "summary": "Assign a role to a user", "responses": {"204": {"description": "No Content"}}},
            "delete": {"security": [{"BearerAuth": []}], "tags": ["users"], "summary": "Remove a role from a user", "responses": {"204": {"description": "No Content"}, "409": {"description": "Conflict"}}}
        },
        "/admin/users/{id}/roles/deleted": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["users"], "summary": "List the removed role assignments of a user", "responses": {"200": {"description": "OK"}}}
        },
        "/admin/users/{id}/roles/{roleId}/restore": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["users"], "summary": "Restore a removed role assignment", "responses": {"204": {"description": "No Content"}, "404": {"description": "Not Found"}}}
        },
        "/admin/users/{id}/roles/{roleId}/purge": {
            "delete": {"security": [{"BearerAuth": []}], "tags": ["users"], "summary": "Permanently delete a removed role assignment", "responses": {"204": {"description": "No Content"}, "409": {"description": "Conflict"}}}
        },
        "/admin/roles": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["roles"], "summary": "List roles", "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["roles"], "summary": "Create a role", "responses": {"201": {"description": "Created"}, "409": {"description": "Conflict"}}}
        },
        "/admin/roles/deleted": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["roles"], "summary": "List deleted roles", "responses": {"200": {"description": "OK"}}}
        },
        "/admin/roles/{id}": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["roles"], "summary": "Get a role", "responses": {"200": {"description": "OK"}}},
            "put": {"security": [{"BearerAuth": []}], "tags": ["roles"], "summary": "Update a role", "responses": {"200": {"description": "OK"}}},
            "delete": {"security": [{"BearerAuth": []}], "tags": ["roles"], "summary": "Move a role to the recycle bin", "responses": {"204": {"description": "No Content"}}}
        },
        "/admin/roles/{id}/restore": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["roles"], "summary": "Restore a deleted role", "responses": {"204": {"description": "No Content"}}}
        },
        "/admin/roles/{id}/purge": {
            "delete": {"security": [{"BearerAuth": []}], "tags": ["roles"], "summary": "Permanently delete a role", "responses": {"204": {"description": "No Content"}}}
        },
        "/admin/roles/{id}/permissions": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["roles"], "summary": "List the permissions of a role", "responses": {"200": {"description": "OK"}}}
        },
        "/admin/roles/{id}/permissions/{permissionId}": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["roles"], "summary": "Grant a permission to a role", "responses": {"204": {"description": "No Content"}}},
            "delete": {"security": [{"BearerAuth": []}], "tags": ["roles"], "summary": "Revoke a permission from a role", "responses": {"204": {"description": "No Content"}, "409": {"description": "Conflict"}}}
        },
        "/admin/roles/{id}/permissions/deleted": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["roles"], "summary": "List the revoked permission grants of a role", "responses": {"200": {"description": "OK"}}}
        },
        "/admin/roles/{id}/permissions/{permissionId}/restore": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["roles"], "summary": "Restore a revoked permission grant", "responses": {"204": {"description": "No Content"}, "404": {"description": "Not Found"}}}
        },
        "/admin/roles/{id}/permissions/{permissionId}/purge": {
            "delete": {"security": [{"BearerAuth": []}], "tags": ["roles"], "summary": "Permanently delete a revoked permission grant", "responses": {"204": {"description": "No Content"}, "409": {"description": "Conflict"}}}
        },
        "/admin/permissions": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["permissions"], "summary": "List permissions", "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["permissions"], "summary": "Create a permission", "responses": {"201": {"description": "Created"}}}
        },
        "/admin/permissions/deleted": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["permissions"], "summary": "List deleted permissions", "responses": {"200": {"description": "OK"}}}
        },
        "/admin/permissions/{id}": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["permissions"], "summary": "Get a permission", "responses": {"200": {"description": "OK"}}},
            "put": {"security": [{"BearerAuth": []}], "tags": ["permissions"], "summary": "Update a permission", "responses": {"200": {"description": "OK"}}},
            "delete": {"security": [{"BearerAuth": []}], "tags": ["permissions"], "summary": "Move a permission to the recycle bin", "responses": {"204": {"description": "No Content"}}}
        },
        "/admin/permissions/{id}/restore": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["permissions"], "summary": "Restore a deleted permission", "responses": {"204": {"description": "No Content"}}}
        },
        "/admin/permissions/{id}/purge": {
            "delete": {"security": [{"BearerAuth": []}], "tags": ["permissions"], "summary": "Permanently delete a permission", "responses": {"204": {"description": "No Content"}}}
        },
        "/admin/audit-logs": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["audit"], "summary": "List audit log entries", "responses": {"200": {"description": "OK"}}}
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8470",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Bastion API",
	Description:      "Admin-area access control and entity lifecycle API",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
