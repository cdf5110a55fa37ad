package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Study Plan API",
        "description": "Generates exam study schedules, tracks session progress and exports plans",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "StudyPlans", "description": "Plan generation and session tracking"},
        {"name": "Exports", "description": "Plan exports and signed downloads"},
        {"name": "Authentication", "description": "Development token issuing"}
    ],
    "paths": {
        "/plans/me": {
            "post": {
                "tags": ["StudyPlans"],
                "summary": "Generate a study plan",
                "description": "Builds a new schedule for the learner, replacing any previous plan.",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GenerateStudyPlanRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "get": {
                "tags": ["StudyPlans"],
                "summary": "Current study plan",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No plan", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["StudyPlans"],
                "summary": "Delete the study plan",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "204": {"description": "Deleted"},
                    "404": {"description": "No plan", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/plans/me/progress": {
            "get": {
                "tags": ["StudyPlans"],
                "summary": "Study progress",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No plan", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/plans/me/sessions/{index}": {
            "patch": {
                "tags": ["StudyPlans"],
                "summary": "Update a session",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "index", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateSessionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Session not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/plans/me/exports": {
            "post": {
                "tags": ["Exports"],
                "summary": "Export the study plan",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ExportRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Unsupported format", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No plan", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exports/download": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download an export",
                "produces": ["application/octet-stream"],
                "parameters": [
                    {"name": "token", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File", "schema": {"type": "file"}},
                    "401": {"description": "Invalid or expired link", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Export removed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/token": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Issue a learner token",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/IssueTokenRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "GenerateStudyPlanRequest": {
            "type": "object",
            "properties": {
                "examDate": {"type": "string", "example": "2026-11-30"},
                "subjects": {"type": "array", "items": {"type": "string"}},
                "studyHoursPerDay": {"type": "integer", "minimum": 1, "maximum": 24},
                "difficulty": {"type": "string", "enum": ["beginner", "intermediate", "advanced"]},
                "learningStyle": {"type": "string", "enum": ["visual", "auditory", "kinesthetic", "reading"]},
                "timePreferences": {"type": "array", "items": {"type": "string", "enum": ["morning", "afternoon", "evening", "night"]}},
                "subjectFileTopics": {"type": "object", "additionalProperties": {"type": "array", "items": {"type": "string"}}},
                "seed": {"type": "integer", "format": "int64"}
            },
            "required": ["examDate", "subjects", "studyHoursPerDay", "difficulty"]
        },
        "UpdateSessionRequest": {
            "type": "object",
            "properties": {
                "completed": {"type": "boolean"},
                "notes": {"type": "string", "maxLength": 2000}
            }
        },
        "ExportRequest": {
            "type": "object",
            "properties": {
                "format": {"type": "string", "enum": ["csv", "pdf", "xlsx", "ics", "json"]}
            },
            "required": ["format"]
        },
        "IssueTokenRequest": {
            "type": "object",
            "properties": {
                "learnerId": {"type": "string"},
                "displayName": {"type": "string"}
            },
            "required": ["learnerId"]
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
                "meta": {"type": "object"}
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
