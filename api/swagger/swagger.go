package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SchoolSnap Attendance API",
        "description": "Gateway in front of the SchoolSnap backend: attendance sessions, rosters and normalised reads.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "tags": [
        {
            "name": "Attendance Sessions",
            "description": "Taking attendance for one grade and date"
        },
        {
            "name": "Attendance",
            "description": "Stored attendance records"
        },
        {
            "name": "Grades",
            "description": "Selectable grade levels"
        },
        {
            "name": "Feedback",
            "description": "Educator feedback"
        },
        {
            "name": "Likes",
            "description": "Liked feed posts"
        },
        {
            "name": "Submissions",
            "description": "Submission audit trail"
        },
        {
            "name": "Health",
            "description": "Health and metrics"
        }
    ],
    "paths": {
        "/grades": {
            "get": {
                "tags": [
                    "Grades"
                ],
                "summary": "List grade levels with student counts",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/attendance/sessions": {
            "post": {
                "tags": [
                    "Attendance Sessions"
                ],
                "summary": "Open an attendance session",
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": false,
                        "schema": {
                            "$ref": "#/definitions/OpenSessionRequest"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/attendance/sessions/{id}": {
            "get": {
                "tags": [
                    "Attendance Sessions"
                ],
                "summary": "Get an attendance session",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            },
            "delete": {
                "tags": [
                    "Attendance Sessions"
                ],
                "summary": "Discard an attendance session",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ],
                "responses": {
                    "204": {
                        "description": "No Content"
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/attendance/sessions/{id}/date": {
            "put": {
                "tags": [
                    "Attendance Sessions"
                ],
                "summary": "Change the attendance date",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/SetDateRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/attendance/sessions/{id}/grade": {
            "put": {
                "tags": [
                    "Attendance Sessions"
                ],
                "summary": "Select a grade and load its roster",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/SelectGradeRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/attendance/sessions/{id}/search": {
            "put": {
                "tags": [
                    "Attendance Sessions"
                ],
                "summary": "Filter the roster by name or admission number",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/SearchRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/attendance/sessions/{id}/students/{studentId}/status": {
            "put": {
                "tags": [
                    "Attendance Sessions"
                ],
                "summary": "Set one student's status",
                "description": "Late opens the detail editor instead of committing.",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "studentId",
                        "in": "path",
                        "required": true,
                        "type": "integer"
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/SetStatusRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/attendance/sessions/{id}/editor": {
            "post": {
                "tags": [
                    "Attendance Sessions"
                ],
                "summary": "Open the attendance detail editor",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/OpenEditorRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            },
            "put": {
                "tags": [
                    "Attendance Sessions"
                ],
                "summary": "Confirm the attendance detail editor",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/ConfirmEditorRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            },
            "delete": {
                "tags": [
                    "Attendance Sessions"
                ],
                "summary": "Cancel the attendance detail editor",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/attendance/sessions/{id}/bulk": {
            "post": {
                "tags": [
                    "Attendance Sessions"
                ],
                "summary": "Apply a bulk action to the whole roster",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/BulkRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "409": {
                        "description": "Editor open or nothing to change",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "428": {
                        "description": "Confirmation required",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/attendance/sessions/{id}/validation": {
            "get": {
                "tags": [
                    "Attendance Sessions"
                ],
                "summary": "List what blocks submission",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/attendance/sessions/{id}/summary": {
            "get": {
                "tags": [
                    "Attendance Sessions"
                ],
                "summary": "Attendance summary for charting",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/attendance/sessions/{id}/submit": {
            "post": {
                "tags": [
                    "Attendance Sessions"
                ],
                "summary": "Submit the session as one attendance batch",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Validation failed",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "422": {
                        "description": "Rejected by the school backend",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/attendance/sessions/{id}/export": {
            "get": {
                "tags": [
                    "Attendance Sessions"
                ],
                "summary": "Export the session roster",
                "produces": [
                    "text/csv",
                    "application/pdf"
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "format",
                        "in": "query",
                        "type": "string",
                        "enum": [
                            "csv",
                            "pdf"
                        ]
                    }
                ],
                "responses": {
                    "200": {
                        "description": "File",
                        "schema": {
                            "type": "file"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/attendance/records": {
            "get": {
                "tags": [
                    "Attendance"
                ],
                "summary": "List stored attendance records",
                "parameters": [
                    {
                        "name": "date",
                        "in": "query",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "grade_level_id",
                        "in": "query",
                        "required": true,
                        "type": "integer"
                    },
                    {
                        "name": "search",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "page",
                        "in": "query",
                        "type": "integer"
                    },
                    {
                        "name": "page_size",
                        "in": "query",
                        "type": "integer"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/submissions": {
            "get": {
                "tags": [
                    "Submissions"
                ],
                "summary": "List attendance submission attempts",
                "parameters": [
                    {
                        "name": "grade_level_id",
                        "in": "query",
                        "type": "integer"
                    },
                    {
                        "name": "user_id",
                        "in": "query",
                        "type": "integer"
                    },
                    {
                        "name": "outcome",
                        "in": "query",
                        "type": "string",
                        "enum": [
                            "succeeded",
                            "rejected"
                        ]
                    },
                    {
                        "name": "page",
                        "in": "query",
                        "type": "integer"
                    },
                    {
                        "name": "page_size",
                        "in": "query",
                        "type": "integer"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/feedback": {
            "get": {
                "tags": [
                    "Feedback"
                ],
                "summary": "List feedback",
                "description": "Parents see feedback for the child selected via X-Selected-Student.",
                "parameters": [
                    {
                        "name": "X-Selected-Student",
                        "in": "header",
                        "type": "integer"
                    },
                    {
                        "name": "search",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "student_id",
                        "in": "query",
                        "type": "integer"
                    },
                    {
                        "name": "page",
                        "in": "query",
                        "type": "integer"
                    },
                    {
                        "name": "page_size",
                        "in": "query",
                        "type": "integer"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            },
            "post": {
                "tags": [
                    "Feedback"
                ],
                "summary": "Record feedback for a student",
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/CreateFeedbackRequest"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/posts/likes": {
            "get": {
                "tags": [
                    "Likes"
                ],
                "summary": "List posts the caller liked",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            },
            "post": {
                "tags": [
                    "Likes"
                ],
                "summary": "Seed liked flags from a loaded feed page",
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/MergeLikesRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/posts/{postId}/like": {
            "put": {
                "tags": [
                    "Likes"
                ],
                "summary": "Like, unlike or toggle a post",
                "parameters": [
                    {
                        "name": "postId",
                        "in": "path",
                        "required": true,
                        "type": "integer"
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": false,
                        "schema": {
                            "$ref": "#/definitions/LikeRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/health": {
            "get": {
                "tags": [
                    "Health"
                ],
                "summary": "Liveness with a metrics snapshot",
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                }
            }
        },
        "/ready": {
            "get": {
                "tags": [
                    "Health"
                ],
                "summary": "Readiness of optional dependencies",
                "responses": {
                    "200": {
                        "description": "Ready"
                    },
                    "503": {
                        "description": "A dependency is down"
                    }
                }
            }
        },
        "/metrics": {
            "get": {
                "tags": [
                    "Health"
                ],
                "summary": "Prometheus metrics",
                "produces": [
                    "text/plain"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                }
            }
        }
    },
    "definitions": {
        "OpenSessionRequest": {
            "type": "object",
            "properties": {
                "date": {
                    "type": "string",
                    "format": "date"
                },
                "grade_id": {
                    "type": "integer",
                    "minimum": 1,
                    "maximum": 13
                }
            }
        },
        "SetDateRequest": {
            "type": "object",
            "properties": {
                "date": {
                    "type": "string",
                    "format": "date"
                }
            },
            "required": [
                "date"
            ]
        },
        "SelectGradeRequest": {
            "type": "object",
            "properties": {
                "grade_id": {
                    "type": "integer",
                    "minimum": 1,
                    "maximum": 13
                }
            },
            "required": [
                "grade_id"
            ]
        },
        "SearchRequest": {
            "type": "object",
            "properties": {
                "query": {
                    "type": "string"
                }
            }
        },
        "SetStatusRequest": {
            "type": "object",
            "properties": {
                "status": {
                    "type": "string",
                    "enum": [
                        "present",
                        "absent",
                        "late"
                    ]
                }
            },
            "required": [
                "status"
            ]
        },
        "OpenEditorRequest": {
            "type": "object",
            "properties": {
                "student_id": {
                    "type": "integer"
                },
                "status": {
                    "type": "string",
                    "enum": [
                        "absent",
                        "late"
                    ]
                }
            },
            "required": [
                "student_id",
                "status"
            ]
        },
        "ConfirmEditorRequest": {
            "type": "object",
            "properties": {
                "reason": {
                    "type": "string"
                },
                "notes": {
                    "type": "string"
                },
                "in_time": {
                    "type": "string",
                    "example": "07:45"
                },
                "out_time": {
                    "type": "string",
                    "example": "13:00"
                }
            }
        },
        "BulkRequest": {
            "type": "object",
            "properties": {
                "action": {
                    "type": "string",
                    "enum": [
                        "mark_all_present",
                        "mark_all_absent",
                        "mark_all_late",
                        "reset_all"
                    ]
                },
                "confirmed": {
                    "type": "boolean"
                }
            },
            "required": [
                "action"
            ]
        },
        "LikeRequest": {
            "type": "object",
            "properties": {
                "liked": {
                    "type": "boolean"
                }
            }
        },
        "MergeLikesRequest": {
            "type": "object",
            "properties": {
                "posts": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "post_id": {
                                "type": "integer"
                            },
                            "is_liked": {
                                "type": "boolean"
                            }
                        }
                    }
                }
            },
            "required": [
                "posts"
            ]
        },
        "CreateFeedbackRequest": {
            "type": "object",
            "properties": {
                "student_id": {
                    "type": "integer"
                },
                "category": {
                    "type": "string"
                },
                "comment": {
                    "type": "string"
                },
                "rating": {
                    "type": "integer",
                    "minimum": 1,
                    "maximum": 5
                }
            },
            "required": [
                "student_id",
                "comment"
            ]
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {
                    "type": "integer"
                },
                "page_size": {
                    "type": "integer"
                },
                "total_count": {
                    "type": "integer"
                }
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {
                    "type": "string"
                },
                "message": {
                    "type": "string"
                },
                "status": {
                    "type": "integer"
                },
                "details": {
                    "type": "object"
                }
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {
                    "type": "object"
                },
                "error": {
                    "$ref": "#/definitions/APIError"
                },
                "pagination": {
                    "$ref": "#/definitions/Pagination"
                },
                "meta": {
                    "type": "object"
                }
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
