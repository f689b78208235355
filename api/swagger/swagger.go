package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "LMS Admission API",
        "description": "Assignment resolution and enrollment admission service",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Assignments", "description": "Course visibility per organization and department"},
        {"name": "Enrollments", "description": "Enrollment intake and admission decisions"},
        {"name": "Organizations", "description": "Tenant, department and membership management"},
        {"name": "Configuration", "description": "Enrollment status flow"}
    ],
    "paths": {
        "/courses/{courseId}/assignments": {
            "get": {
                "tags": ["Assignments"],
                "summary": "List a course's assignments grouped by organization",
                "parameters": [
                    {"name": "courseId", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Assignments"],
                "summary": "Assign course to an organization or department",
                "parameters": [
                    {"name": "courseId", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateAssignmentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Conflicting assignment exists at the other granularity"}
                }
            },
            "delete": {
                "tags": ["Assignments"],
                "summary": "Remove a course assignment",
                "parameters": [
                    {"name": "courseId", "in": "path", "type": "string", "required": true},
                    {"name": "organizationId", "in": "query", "type": "string", "required": true},
                    {"name": "departmentId", "in": "query", "type": "string"},
                    {"name": "cascade", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Department rows remain and cascade was not requested"}
                }
            }
        },
        "/courses/{courseId}/eligibility": {
            "get": {
                "tags": ["Enrollments"],
                "summary": "Check whether the caller may moderate a course's enrollments",
                "parameters": [
                    {"name": "courseId", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollments": {
            "get": {
                "tags": ["Enrollments"],
                "summary": "List enrollments",
                "parameters": [
                    {"name": "studentId", "in": "query", "type": "string"},
                    {"name": "courseId", "in": "query", "type": "string"},
                    {"name": "departmentId", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "sort", "in": "query", "type": "string"},
                    {"name": "order", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Enrollments"],
                "summary": "Request enrollment into a course",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RequestEnrollmentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Duplicate enrollment request"},
                    "422": {"description": "Course not assigned to the student's organization"}
                }
            }
        },
        "/enrollments/{id}/status": {
            "patch": {
                "tags": ["Enrollments"],
                "summary": "Change one enrollment's status",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/TransitionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Status not part of the configured flow"},
                    "409": {"description": "Capacity exceeded"},
                    "422": {"description": "No assignment governs the admission"}
                }
            }
        },
        "/enrollments/status": {
            "patch": {
                "tags": ["Enrollments"],
                "summary": "Change many enrollments' status atomically",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BulkTransitionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Aggregate capacity exceeded, no enrollment changed"}
                }
            }
        },
        "/configurations/enrollment-status": {
            "get": {
                "tags": ["Configuration"],
                "summary": "Get the enrollment status flow",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Configuration"],
                "summary": "Replace the enrollment status flow",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateStatusFlowRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/organizations": {
            "get": {
                "tags": ["Organizations"],
                "summary": "List organizations",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Organizations"],
                "summary": "Create an organization",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateOrganizationRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/organizations/{id}/departments": {
            "get": {
                "tags": ["Organizations"],
                "summary": "List an organization's departments",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Organizations"],
                "summary": "Create a department",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateDepartmentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Name taken or department limit reached"}
                }
            }
        },
        "/organizations/{id}/memberships": {
            "post": {
                "tags": ["Organizations"],
                "summary": "Register a user into an organization",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RegisterMemberRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Role limit reached or organization deactivated"}
                }
            }
        },
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"}
                }
            }
        }
    },
    "definitions": {
        "CreateAssignmentRequest": {
            "type": "object",
            "properties": {
                "organization_id": {"type": "string"},
                "department_id": {"type": "string"},
                "capacity": {"type": "integer"}
            },
            "required": ["organization_id"]
        },
        "RequestEnrollmentRequest": {
            "type": "object",
            "properties": {
                "course_id": {"type": "string"},
                "student_id": {"type": "string"}
            },
            "required": ["course_id"]
        },
        "TransitionRequest": {
            "type": "object",
            "properties": {
                "next_status": {"type": "string"}
            },
            "required": ["next_status"]
        },
        "BulkTransitionRequest": {
            "type": "object",
            "properties": {
                "enrollment_ids": {
                    "type": "array",
                    "items": {"type": "string"}
                },
                "next_status": {"type": "string"}
            },
            "required": ["enrollment_ids", "next_status"]
        },
        "UpdateStatusFlowRequest": {
            "type": "object",
            "properties": {
                "allowed": {
                    "type": "array",
                    "items": {"type": "string"}
                },
                "approved_like": {
                    "type": "array",
                    "items": {"type": "string"}
                }
            },
            "required": ["allowed", "approved_like"]
        },
        "CreateOrganizationRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "student_limit": {"type": "integer"},
                "instructor_limit": {"type": "integer"},
                "admin_limit": {"type": "integer"},
                "department_limit": {"type": "integer"}
            },
            "required": ["name"]
        },
        "CreateDepartmentRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"}
            },
            "required": ["name"]
        },
        "RegisterMemberRequest": {
            "type": "object",
            "properties": {
                "user_id": {"type": "string"},
                "department_id": {"type": "string"},
                "role": {"type": "string"}
            },
            "required": ["user_id", "role"]
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
