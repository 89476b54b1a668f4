package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Hercules API",
        "description": "Administrative core of the judicial council: access control, catalogs, support tickets and exhortos exchange",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http",
        "https"
    ],
    "securityDefinitions": {
        "ApiKey": {"type": "apiKey", "in": "header", "name": "X-Api-Key"},
        "Session": {"type": "apiKey", "in": "header", "name": "Cookie"}
    },
    "tags": [
        {"name": "Auth", "description": "Session login, profile and API keys"},
        {"name": "Bitacoras", "description": "Audit trail"},
        {"name": "Tareas", "description": "Background tasks"},
        {"name": "Exh Exhortos", "description": "Inter-court requests and their exchange with peers"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"},
                    "503": {"description": "Database unavailable"}
                }
            }
        },
        "/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Start a session",
                "consumes": ["application/json", "application/x-www-form-urlencoded"],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "429": {"description": "Too many attempts", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/perfil": {
            "get": {
                "tags": ["Auth"],
                "summary": "Current user with roles",
                "security": [{"Session": []}, {"ApiKey": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/bitacoras/datatable_json": {
            "get": {
                "tags": ["Bitacoras"],
                "summary": "List audit rows",
                "security": [{"Session": []}, {"ApiKey": []}],
                "parameters": [
                    {"name": "draw", "in": "query", "type": "integer"},
                    {"name": "start", "in": "query", "type": "integer"},
                    {"name": "length", "in": "query", "type": "integer"},
                    {"name": "modulo_id", "in": "query", "type": "integer"},
                    {"name": "usuario_id", "in": "query", "type": "integer"},
                    {"name": "fecha_desde", "in": "query", "type": "string"},
                    {"name": "fecha_hasta", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/DatatableResponse"}}
                }
            }
        },
        "/tareas/{id}": {
            "get": {
                "tags": ["Tareas"],
                "summary": "Poll a background task",
                "security": [{"Session": []}, {"ApiKey": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exh_exhortos/enviar/{id}": {
            "post": {
                "tags": ["Exh Exhortos"],
                "summary": "Queue the delivery of an exhorto to its peer",
                "security": [{"Session": []}, {"ApiKey": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "Queued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["email", "password"]
        },
        "Flash": {
            "type": "object",
            "properties": {
                "category": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        },
        "DatatableResponse": {
            "type": "object",
            "properties": {
                "draw": {"type": "integer"},
                "recordsTotal": {"type": "integer"},
                "recordsFiltered": {"type": "integer"},
                "data": {"type": "array", "items": {"type": "object"}}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
