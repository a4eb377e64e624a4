package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Hostel Maintenance API",
        "description": "Maintenance request workflow engine for hostel and PG operators",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Requests", "description": "Maintenance request lifecycle"},
        {"name": "Approvals", "description": "Cost-gated approval workflow"},
        {"name": "Assignments", "description": "Staff and vendor assignment"},
        {"name": "Costs", "description": "Actual spend reconciliation"},
        {"name": "Completions", "description": "Completion records, quality checks and certificates"},
        {"name": "Schedules", "description": "Preventive-maintenance recurrences"},
        {"name": "Dashboard", "description": "Workload overview and bottleneck diagnostics"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/requests": {
            "get": {
                "tags": ["Requests"],
                "summary": "List maintenance requests",
                "parameters": [
                    {"name": "hostelId", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "priority", "in": "query", "type": "string"},
                    {"name": "category", "in": "query", "type": "string"},
                    {"name": "assignedTo", "in": "query", "type": "string"},
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "offset", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Requests"],
                "summary": "Open a maintenance request",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateRequestRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/requests/{id}": {
            "get": {
                "tags": ["Requests"],
                "summary": "Get a maintenance request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Requests"],
                "summary": "Soft-delete a terminal request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/requests/{id}/transition": {
            "post": {
                "tags": ["Requests"],
                "summary": "Move a request to a new status",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/TransitionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/requests/{id}/assign": {
            "post": {
                "tags": ["Assignments"],
                "summary": "Assign a request to staff or a vendor",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AssignPayload"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/requests/{id}/complete": {
            "post": {
                "tags": ["Completions"],
                "summary": "Record the terminal work on an in-progress request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CompleteWorkRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/requests/{id}/costs": {
            "put": {
                "tags": ["Costs"],
                "summary": "Record the actual spend for a request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RecordCostRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/approvals/{id}/decision": {
            "post": {
                "tags": ["Approvals"],
                "summary": "Approve or reject an open approval",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/DecideApprovalRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/approvals/{id}/escalate": {
            "post": {
                "tags": ["Approvals"],
                "summary": "Escalate an open approval to the next level",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/EscalateApprovalRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedules": {
            "get": {
                "tags": ["Schedules"],
                "summary": "List schedules for a hostel",
                "parameters": [
                    {"name": "hostelId", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Schedules"],
                "summary": "Register a preventive-maintenance schedule",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateScheduleRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/dashboard/overview": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "Get the hostel workload overview",
                "parameters": [
                    {"name": "hostelId", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "CreateRequestRequest": {
            "type": "object",
            "properties": {
                "hostelId": {"type": "string"},
                "roomNumber": {"type": "string"},
                "area": {"type": "string"},
                "title": {"type": "string"},
                "description": {"type": "string"},
                "category": {"type": "string"},
                "issueType": {"type": "string"},
                "priority": {"type": "string"},
                "estimatedCost": {"type": "string"},
                "justification": {"type": "string"},
                "deadline": {"type": "string"}
            },
            "required": ["hostelId", "title", "description", "category", "issueType", "priority", "estimatedCost"]
        },
        "TransitionRequest": {
            "type": "object",
            "properties": {
                "toStatus": {"type": "string"},
                "notes": {"type": "string"}
            },
            "required": ["toStatus"]
        },
        "AssignPayload": {
            "type": "object",
            "properties": {
                "assigneeId": {"type": "string"},
                "assigneeKind": {"type": "string"},
                "estimatedHours": {"type": "number"},
                "quotedAmount": {"type": "string"},
                "deadline": {"type": "string"},
                "requiredSkill": {"type": "string"},
                "pool": {"type": "array", "items": {"type": "object"}}
            }
        },
        "CompleteWorkRequest": {
            "type": "object",
            "properties": {
                "workNotes": {"type": "string"},
                "laborHours": {"type": "number"},
                "materials": {"type": "array", "items": {"type": "object"}},
                "costs": {"$ref": "#/definitions/RecordCostRequest"}
            },
            "required": ["workNotes", "laborHours", "costs"]
        },
        "RecordCostRequest": {
            "type": "object",
            "properties": {
                "actualCost": {"type": "string"},
                "materials": {"type": "string"},
                "labor": {"type": "string"},
                "vendor": {"type": "string"},
                "other": {"type": "string"},
                "tax": {"type": "string"}
            },
            "required": ["actualCost"]
        },
        "DecideApprovalRequest": {
            "type": "object",
            "properties": {
                "approved": {"type": "boolean"},
                "approvedAmount": {"type": "string"},
                "conditions": {"type": "string"},
                "reason": {"type": "string"},
                "allowResubmission": {"type": "boolean"}
            }
        },
        "EscalateApprovalRequest": {
            "type": "object",
            "properties": {
                "reason": {"type": "string"}
            },
            "required": ["reason"]
        },
        "CreateScheduleRequest": {
            "type": "object",
            "properties": {
                "hostelId": {"type": "string"},
                "title": {"type": "string"},
                "description": {"type": "string"},
                "category": {"type": "string"},
                "priority": {"type": "string"},
                "recurrence": {"type": "string"},
                "intervalDays": {"type": "integer"},
                "estimatedCost": {"type": "string"},
                "startDate": {"type": "string"}
            },
            "required": ["hostelId", "title", "description", "category", "priority", "recurrence", "startDate"]
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
