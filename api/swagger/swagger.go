package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Harbox API",
        "description": "HAR capture upload backend with token-pair sessions",
        "version": "0.1.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Users", "description": "Registration, login and session lifecycle"},
        {"name": "Files", "description": "Capture upload bookkeeping"},
        {"name": "Admin", "description": "Administrative user listing"}
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
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"}
                }
            }
        },
        "/users/register": {
            "post": {
                "tags": ["Users"],
                "summary": "Register user",
                "responses": {
                    "201": {"description": "Created"},
                    "400": {"description": "Validation failed"},
                    "409": {"description": "Duplicate username or email"}
                }
            }
        },
        "/users/login": {
            "post": {
                "tags": ["Users"],
                "summary": "Authenticate user and issue a token pair",
                "responses": {
                    "200": {"description": "Token pair issued"},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/users/refresh": {
            "post": {
                "tags": ["Users"],
                "summary": "Exchange a refresh token for a new pair",
                "responses": {
                    "200": {"description": "Token pair issued"},
                    "401": {"description": "Invalid refresh token"}
                }
            }
        },
        "/users/logout": {
            "post": {
                "tags": ["Users"],
                "summary": "Tear down the current session",
                "responses": {
                    "200": {"description": "Logged out"},
                    "401": {"description": "Unauthorized"}
                }
            }
        },
        "/users/me": {
            "get": {
                "tags": ["Users"],
                "summary": "Current user info",
                "responses": {
                    "200": {"description": "OK"},
                    "401": {"description": "Unauthorized"}
                }
            }
        },
        "/files": {
            "get": {
                "tags": ["Files"],
                "summary": "Upload service welcome",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Files"],
                "summary": "Upload a capture file",
                "responses": {
                    "201": {"description": "Created"},
                    "400": {"description": "File rejected"},
                    "401": {"description": "Unauthorized"}
                }
            },
            "delete": {
                "tags": ["Files"],
                "summary": "Soft-delete a file by path",
                "responses": {
                    "200": {"description": "Deleted"},
                    "404": {"description": "Unknown path"}
                }
            }
        },
        "/files/active": {
            "get": {
                "tags": ["Files"],
                "summary": "List active files for a user",
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Unknown user"}
                }
            }
        },
        "/files/deleted": {
            "get": {
                "tags": ["Files"],
                "summary": "List deleted files for a user",
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Unknown user"}
                }
            }
        },
        "/admin/users": {
            "get": {
                "tags": ["Admin"],
                "summary": "List users",
                "responses": {
                    "200": {"description": "OK"},
                    "403": {"description": "Forbidden"}
                }
            }
        },
        "/admin/users/export": {
            "get": {
                "tags": ["Admin"],
                "summary": "Export users as CSV or PDF",
                "responses": {
                    "200": {"description": "OK"},
                    "403": {"description": "Forbidden"}
                }
            }
        }
    },
    "definitions": {
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
