package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "No Dues Portal API",
        "description": "Department clearance and reapplication workflow for the student no-dues portal",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Reapplications", "description": "Student reapplication workflow"},
        {"name": "Forms", "description": "Staff review queue and decisions"},
        {"name": "Departments", "description": "Clearance department catalog"},
        {"name": "Certificates", "description": "Clearance certificate downloads"}
    ],
    "paths": {
        "/reapplications": {
            "post": {
                "tags": ["Reapplications"],
                "summary": "Reapply to a rejecting department",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitReapplicationRequest"}}
                ],
                "responses": {
                    "200": {"description": "Reapplication accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation or state error"},
                    "403": {"description": "Completed form, protected field or reapply limit"},
                    "404": {"description": "Unknown form or department"}
                }
            }
        },
        "/reapplications/status/{registrationNo}": {
            "get": {
                "tags": ["Reapplications"],
                "summary": "Reapplication status and eligibility",
                "parameters": [
                    {"name": "registrationNo", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown registration number"}
                }
            }
        },
        "/forms": {
            "get": {
                "tags": ["Forms"],
                "summary": "List clearance forms for review",
                "parameters": [
                    {"name": "department", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/forms/export": {
            "get": {
                "tags": ["Forms"],
                "summary": "Export the review queue as CSV",
                "produces": ["text/csv"],
                "parameters": [
                    {"name": "department", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "CSV file"}
                }
            }
        },
        "/forms/{id}": {
            "get": {
                "tags": ["Forms"],
                "summary": "Get one clearance form",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown form"}
                }
            }
        },
        "/forms/{id}/departments/{department}/approve": {
            "post": {
                "tags": ["Forms"],
                "summary": "Approve a pending department entry",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "department", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Entry is not pending"},
                    "403": {"description": "Completed form or foreign department"}
                }
            }
        },
        "/forms/{id}/departments/{department}/reject": {
            "post": {
                "tags": ["Forms"],
                "summary": "Reject a pending department entry",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "department", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/DepartmentActionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Entry is not pending or reason missing"},
                    "403": {"description": "Completed form or foreign department"}
                }
            }
        },
        "/forms/{id}/certificate": {
            "get": {
                "tags": ["Certificates"],
                "summary": "Get a signed download token for a form's certificate",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No certificate issued"}
                }
            }
        },
        "/certificates/download": {
            "get": {
                "tags": ["Certificates"],
                "summary": "Download a certificate by signed token",
                "produces": ["application/pdf"],
                "parameters": [
                    {"name": "token", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "PDF file"},
                    "403": {"description": "Invalid or expired token"}
                }
            }
        },
        "/departments": {
            "get": {
                "tags": ["Departments"],
                "summary": "List active clearance departments",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "SubmitReapplicationRequest": {
            "type": "object",
            "required": ["registration_no", "department_name", "student_reply_message"],
            "properties": {
                "registration_no": {"type": "string"},
                "department_name": {"type": "string"},
                "student_reply_message": {"type": "string", "minLength": 10},
                "updated_form_data": {
                    "type": "object",
                    "additionalProperties": {"type": "string"}
                }
            }
        },
        "DepartmentActionRequest": {
            "type": "object",
            "properties": {
                "reason": {"type": "string"}
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
                "status": {"type": "integer"},
                "details": {"type": "object"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "message": {"type": "string"},
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"}
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
