// Package docs holds the OpenAPI document served under /swagger in
// -tags=swagger builds. Regenerate with `swag init -g cmd/predictd/docs.go`.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "predictd maintainers"
        },
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/journal": {
            "get": {
                "produces": ["application/json"],
                "tags": ["journal"],
                "summary": "Recent prediction calls",
                "parameters": [
                    {"type": "integer", "description": "Max entries (default 50)", "name": "limit", "in": "query"},
                    {"type": "string", "description": "Filter by service id", "name": "service", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.JournalResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/models": {
            "get": {
                "produces": ["application/json"],
                "tags": ["meta"],
                "summary": "Mounted prediction services",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ModelsResponse"}}
                }
            }
        },
        "/status": {
            "get": {
                "produces": ["application/json"],
                "tags": ["meta"],
                "summary": "Service states and counters",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.StatusResponse"}}
                }
            }
        },
        "/{service}/predict": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["predict"],
                "summary": "Score a batch of instances",
                "parameters": [
                    {"type": "string", "description": "Service id", "name": "service", "in": "path", "required": true},
                    {"description": "Instances to score", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/types.PredictRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.PredictResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "415": {"description": "Unsupported Media Type", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "types.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "integer", "example": 400},
                "error": {"type": "string", "example": "invalid JSON body"}
            }
        },
        "types.JournalEntry": {
            "type": "object",
            "properties": {
                "created_unix": {"type": "integer", "example": 1700000000},
                "duration_ms": {"type": "integer", "example": 3},
                "error": {"type": "string"},
                "id": {"type": "string", "example": "5b1f3c1e-7c0e-4d8a-9a59-1a1f0c3c9e20"},
                "instances": {"type": "integer", "example": 10},
                "service": {"type": "string", "example": "german_credit_dtree"},
                "status": {"type": "integer", "example": 200}
            }
        },
        "types.JournalResponse": {
            "type": "object",
            "properties": {
                "entries": {"type": "array", "items": {"$ref": "#/definitions/types.JournalEntry"}}
            }
        },
        "types.ModelsResponse": {
            "type": "object",
            "properties": {
                "models": {"type": "array", "items": {"$ref": "#/definitions/types.ServiceInfo"}}
            }
        },
        "types.PredictPayload": {
            "type": "object",
            "properties": {
                "instances": {"type": "array", "items": {"type": "array", "items": {}}}
            }
        },
        "types.PredictRequest": {
            "type": "object",
            "properties": {
                "payload": {"$ref": "#/definitions/types.PredictPayload"}
            }
        },
        "types.PredictResponse": {
            "type": "object",
            "properties": {
                "payload": {"$ref": "#/definitions/types.PredictionPayload"}
            }
        },
        "types.PredictionPayload": {
            "type": "object",
            "properties": {
                "labels": {"type": "array", "items": {}},
                "predictions": {"type": "array", "items": {}},
                "scores": {"type": "array", "items": {"type": "array", "items": {"type": "number"}}}
            }
        },
        "types.ServiceInfo": {
            "type": "object",
            "properties": {
                "columns": {"type": "array", "items": {"type": "string"}},
                "endpoint": {"type": "string", "example": "/german_credit_dtree/predict"},
                "id": {"type": "string", "example": "german_credit_dtree"},
                "kind": {"type": "string", "example": "bundle"},
                "name": {"type": "string", "example": "German credit decision tree"},
                "outcomes": {"type": "array", "items": {}},
                "source": {"type": "string", "example": "/models/german_credit_dtree.json"},
                "supports_soft_scores": {"type": "boolean"}
            }
        },
        "types.ServiceStatus": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "failures_total": {"type": "integer", "example": 1},
                "id": {"type": "string", "example": "german_credit_dtree"},
                "inflight": {"type": "integer", "example": 1},
                "last_used_unix": {"type": "integer", "example": 1700000000},
                "max_queue_depth": {"type": "integer", "example": 32},
                "queue_len": {"type": "integer", "example": 0},
                "reloads_total": {"type": "integer", "example": 0},
                "requests_total": {"type": "integer", "example": 42},
                "state": {"type": "string", "example": "ready"},
                "workers": {"type": "integer", "example": 3}
            }
        },
        "types.StatusResponse": {
            "type": "object",
            "properties": {
                "instances_total": {"type": "integer", "example": 1200},
                "last_error": {"type": "string"},
                "server_time_unix": {"type": "integer", "example": 1700000000},
                "services": {"type": "array", "items": {"$ref": "#/definitions/types.ServiceStatus"}},
                "state": {"type": "string", "example": "ready"},
                "uptime_seconds": {"type": "integer", "example": 3600}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "predictd API",
	Description:      "Prediction services for model scanning.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
