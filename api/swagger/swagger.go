package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Real Estate Admin API",
        "description": "Users, roles, permissions and property listings for the real-estate admin panel.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": ["http", "https"],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Auth", "description": "Login and current user"},
        {"name": "RBAC", "description": "Permissions, roles and role assignment"},
        {"name": "Users", "description": "User administration and exports"},
        {"name": "Properties", "description": "Property listings"},
        {"name": "Locations", "description": "Cities and localities"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"], "summary": "Login",
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "401": {"description": "Invalid credentials"}}
            }
        },
        "/auth/me": {
            "get": {"tags": ["Auth"], "summary": "Current user", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}
        },
        "/rbac/permissions": {
            "get": {
                "tags": ["RBAC"], "summary": "List permissions", "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["RBAC"], "summary": "Create permission", "security": [{"BearerAuth": []}],
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/PermissionRequest"}}],
                "responses": {"201": {"description": "Created"}, "409": {"description": "Duplicate name"}}
            }
        },
        "/rbac/permissions/check": {
            "get": {
                "tags": ["RBAC"], "summary": "Check a permission", "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "permission", "in": "query", "type": "string", "required": true},
                    {"name": "userId", "in": "query", "type": "string"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/rbac/permissions/{id}": {
            "get": {"tags": ["RBAC"], "summary": "Get permission", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}},
            "put": {"tags": ["RBAC"], "summary": "Update permission", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}, {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/PermissionRequest"}}], "responses": {"200": {"description": "OK"}}},
            "delete": {"tags": ["RBAC"], "summary": "Delete permission", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}], "responses": {"204": {"description": "Deleted"}, "409": {"description": "Assigned to a role"}}}
        },
        "/rbac/roles": {
            "get": {
                "tags": ["RBAC"], "summary": "List roles", "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["RBAC"], "summary": "Create role", "security": [{"BearerAuth": []}],
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RoleRequest"}}],
                "responses": {"201": {"description": "Created"}, "409": {"description": "Duplicate name"}, "422": {"description": "Unknown permission"}}
            }
        },
        "/rbac/roles/st/stats": {
            "get": {"tags": ["RBAC"], "summary": "Role statistics", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}
        },
        "/rbac/roles/{id}": {
            "get": {"tags": ["RBAC"], "summary": "Get role", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}], "responses": {"200": {"description": "OK"}}},
            "put": {"tags": ["RBAC"], "summary": "Update role", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}, {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RoleRequest"}}], "responses": {"200": {"description": "OK"}}},
            "delete": {"tags": ["RBAC"], "summary": "Delete role", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}], "responses": {"204": {"description": "Deleted"}, "409": {"description": "Role in use"}}}
        },
        "/rbac/users/assign-role": {
            "post": {
                "tags": ["RBAC"], "summary": "Assign a role to a user", "security": [{"BearerAuth": []}],
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RoleAssignmentRequest"}}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/rbac/users/{id}/role": {
            "get": {"tags": ["RBAC"], "summary": "Role of a user", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}], "responses": {"200": {"description": "OK"}}}
        },
        "/users": {
            "get": {
                "tags": ["Users"], "summary": "List users", "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "role", "in": "query", "type": "array", "items": {"type": "string"}, "collectionFormat": "multi"},
                    {"name": "status", "in": "query", "type": "array", "items": {"type": "string"}, "collectionFormat": "multi"},
                    {"name": "city", "in": "query", "type": "array", "items": {"type": "string"}, "collectionFormat": "multi"},
                    {"name": "locality", "in": "query", "type": "array", "items": {"type": "string"}, "collectionFormat": "multi"},
                    {"name": "createdFrom", "in": "query", "type": "string", "format": "date"},
                    {"name": "createdTo", "in": "query", "type": "string", "format": "date"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "sortBy", "in": "query", "type": "string"},
                    {"name": "sortOrder", "in": "query", "type": "string", "enum": ["asc", "desc"]}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Users"], "summary": "Create user", "security": [{"BearerAuth": []}],
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UserRequest"}}],
                "responses": {"201": {"description": "Created"}, "409": {"description": "Duplicate email"}}
            }
        },
        "/users/bulk": {
            "post": {
                "tags": ["Users"], "summary": "Bulk activate, deactivate or delete", "security": [{"BearerAuth": []}],
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BulkRequest"}}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/users/export": {
            "post": {
                "tags": ["Users"], "summary": "Export users synchronously", "security": [{"BearerAuth": []}],
                "produces": ["text/csv", "application/json", "application/pdf", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"],
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ExportRequest"}}],
                "responses": {"200": {"description": "File"}}
            }
        },
        "/users/export/jobs": {
            "post": {
                "tags": ["Users"], "summary": "Queue a user export", "security": [{"BearerAuth": []}],
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ExportRequest"}}],
                "responses": {"202": {"description": "Queued"}}
            }
        },
        "/users/export/jobs/{id}": {
            "get": {"tags": ["Users"], "summary": "Export job status", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}], "responses": {"200": {"description": "OK"}}}
        },
        "/users/export/download/{token}": {
            "get": {"tags": ["Users"], "summary": "Download a finished export", "parameters": [{"name": "token", "in": "path", "type": "string", "required": true}], "responses": {"200": {"description": "File"}, "403": {"description": "Invalid or expired token"}}}
        },
        "/users/{id}": {
            "get": {"tags": ["Users"], "summary": "Get user", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}], "responses": {"200": {"description": "OK"}}},
            "put": {"tags": ["Users"], "summary": "Update user", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}, {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UserRequest"}}], "responses": {"200": {"description": "OK"}}},
            "delete": {"tags": ["Users"], "summary": "Delete user", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}], "responses": {"204": {"description": "Deleted"}}}
        },
        "/users/{id}/status": {
            "patch": {"tags": ["Users"], "summary": "Update user status", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}, {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/StatusRequest"}}], "responses": {"200": {"description": "OK"}}}
        },
        "/users/{id}/role": {
            "patch": {"tags": ["Users"], "summary": "Change user role", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}, {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RoleAssignmentRequest"}}], "responses": {"200": {"description": "OK"}}}
        },
        "/properties": {
            "get": {
                "tags": ["Properties"], "summary": "List properties", "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "type", "in": "query", "type": "array", "items": {"type": "string"}, "collectionFormat": "multi"},
                    {"name": "status", "in": "query", "type": "array", "items": {"type": "string"}, "collectionFormat": "multi"},
                    {"name": "listingType", "in": "query", "type": "string", "enum": ["SALE", "RENT"]},
                    {"name": "city", "in": "query", "type": "array", "items": {"type": "string"}, "collectionFormat": "multi"},
                    {"name": "locality", "in": "query", "type": "array", "items": {"type": "string"}, "collectionFormat": "multi"},
                    {"name": "minPrice", "in": "query", "type": "number"},
                    {"name": "maxPrice", "in": "query", "type": "number"},
                    {"name": "minBedrooms", "in": "query", "type": "integer"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Properties"], "summary": "Create property", "security": [{"BearerAuth": []}],
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/PropertyRequest"}}],
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/properties/{id}": {
            "get": {"tags": ["Properties"], "summary": "Get property", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}], "responses": {"200": {"description": "OK"}}},
            "put": {"tags": ["Properties"], "summary": "Update property", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}, {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/PropertyRequest"}}], "responses": {"200": {"description": "OK"}}},
            "delete": {"tags": ["Properties"], "summary": "Delete property", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}], "responses": {"204": {"description": "Deleted"}}}
        },
        "/properties/{id}/status": {
            "patch": {"tags": ["Properties"], "summary": "Update property status", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}, {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/StatusRequest"}}], "responses": {"200": {"description": "OK"}}}
        },
        "/locations/cities": {
            "get": {"tags": ["Locations"], "summary": "List cities", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}
        },
        "/locations/localities": {
            "get": {"tags": ["Locations"], "summary": "List localities", "security": [{"BearerAuth": []}], "parameters": [{"name": "city", "in": "query", "type": "array", "items": {"type": "string"}, "collectionFormat": "multi"}], "responses": {"200": {"description": "OK"}}}
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object", "required": ["email", "password"],
            "properties": {"email": {"type": "string"}, "password": {"type": "string"}}
        },
        "PermissionRequest": {
            "type": "object", "required": ["name"],
            "properties": {"name": {"type": "string", "example": "users.read"}, "description": {"type": "string"}}
        },
        "RoleRequest": {
            "type": "object", "required": ["name"],
            "properties": {"name": {"type": "string"}, "description": {"type": "string"}, "permissionIds": {"type": "array", "items": {"type": "string"}}}
        },
        "RoleAssignmentRequest": {
            "type": "object", "required": ["roleId"],
            "properties": {"userId": {"type": "string"}, "roleId": {"type": "string"}}
        },
        "StatusRequest": {
            "type": "object", "required": ["status"],
            "properties": {"status": {"type": "string"}}
        },
        "UserRequest": {
            "type": "object",
            "properties": {
                "firstName": {"type": "string"},
                "lastName": {"type": "string"},
                "email": {"type": "string"},
                "phone": {"type": "string"},
                "password": {"type": "string"},
                "roleId": {"type": "string"},
                "status": {"type": "string", "enum": ["ACTIVE", "INACTIVE", "SUSPENDED", "PENDING_VERIFICATION"]},
                "cities": {"type": "array", "items": {"type": "string"}},
                "localities": {"type": "array", "items": {"type": "string"}},
                "managerId": {"type": "string"}
            }
        },
        "BulkRequest": {
            "type": "object", "required": ["userIds", "operation"],
            "properties": {
                "userIds": {"type": "array", "items": {"type": "string"}},
                "operation": {"type": "string", "enum": ["activate", "deactivate", "delete"]}
            }
        },
        "ExportRequest": {
            "type": "object",
            "properties": {
                "filters": {"type": "object"},
                "config": {
                    "type": "object",
                    "properties": {
                        "format": {"type": "string", "enum": ["csv", "excel", "json", "pdf"]},
                        "fields": {
                            "type": "object",
                            "properties": {
                                "basic": {"type": "boolean"},
                                "contact": {"type": "boolean"},
                                "role": {"type": "boolean"},
                                "status": {"type": "boolean"},
                                "dates": {"type": "boolean"},
                                "permissions": {"type": "boolean"}
                            }
                        }
                    }
                }
            }
        },
        "PropertyRequest": {
            "type": "object",
            "properties": {
                "title": {"type": "string"},
                "description": {"type": "string"},
                "type": {"type": "string", "enum": ["APARTMENT", "HOUSE", "VILLA", "PLOT", "COMMERCIAL", "OFFICE"]},
                "listingType": {"type": "string", "enum": ["SALE", "RENT"]},
                "status": {"type": "string", "enum": ["DRAFT", "AVAILABLE", "PENDING", "SOLD", "RENTED", "ARCHIVED"]},
                "price": {"type": "number"},
                "bedrooms": {"type": "integer"},
                "bathrooms": {"type": "integer"},
                "area": {"type": "number"},
                "address": {"type": "string"},
                "cityId": {"type": "string"},
                "localityId": {"type": "string"},
                "ownerId": {"type": "string"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "limit": {"type": "integer"},
                "total": {"type": "integer"},
                "totalPages": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "fields": {"type": "object", "additionalProperties": {"type": "string"}}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "data": {"type": "object"},
                "message": {"type": "string"},
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
