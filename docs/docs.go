// Package docs registers the OpenAPI description served at /swagger/.
// Regenerate with: swag init -g cmd/api/main.go
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/users": {
            "post": {"tags": ["users"], "summary": "Create or update a user", "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}}
        },
        "/users/{id}": {
            "get": {"tags": ["users"], "summary": "Get user by ID", "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}
        },
        "/users/{id}/bills": {
            "get": {"tags": ["users"], "summary": "List a user's bills", "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}
        },
        "/bills": {
            "post": {"tags": ["bills"], "summary": "Create a bill", "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}, "401": {"description": "Unauthorized"}}}
        },
        "/bills/{id}": {
            "get": {"tags": ["bills"], "summary": "Get bill detail", "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}
        },
        "/bills/{id}/items": {
            "post": {"tags": ["items"], "summary": "Add a line item", "responses": {"201": {"description": "Created"}, "403": {"description": "Forbidden"}}}
        },
        "/bills/{id}/items/{itemId}": {
            "delete": {"tags": ["items"], "summary": "Remove a line item", "responses": {"204": {"description": "No Content"}, "404": {"description": "Not Found"}}}
        },
        "/bills/{id}/participants": {
            "post": {"tags": ["participants"], "summary": "Add a participant", "responses": {"201": {"description": "Created"}, "409": {"description": "Conflict"}}}
        },
        "/bills/{id}/participants/{pid}": {
            "delete": {"tags": ["participants"], "summary": "Remove a participant", "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}}}
        },
        "/bills/{id}/participants/{pid}/payment": {
            "patch": {"tags": ["settlement"], "summary": "Set payment status", "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}}}
        },
        "/bills/{id}/join": {
            "post": {"tags": ["participants"], "summary": "Join a bill", "responses": {"200": {"description": "OK"}}}
        },
        "/bills/{id}/split-equally": {
            "post": {"tags": ["allocation"], "summary": "Split equally", "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}}
        },
        "/bills/{id}/split-remainder": {
            "post": {"tags": ["allocation"], "summary": "Split the remainder", "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}}
        },
        "/bills/{id}/assign": {
            "post": {"tags": ["allocation"], "summary": "Assign an amount", "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}}
        },
        "/bills/{id}/close": {
            "post": {"tags": ["settlement"], "summary": "Close a bill", "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}}}
        },
        "/bills/{id}/events": {
            "get": {"tags": ["events"], "summary": "Subscribe to bill signals", "produces": ["text/event-stream"], "responses": {"200": {"description": "event stream"}}}
        },
        "/bills/{id}/reactions": {
            "post": {"tags": ["events"], "summary": "Broadcast an emoji reaction", "responses": {"204": {"description": "No Content"}}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "Split the Bill API",
	Description:      "Bill allocation and settlement with live refresh over server-sent events.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
