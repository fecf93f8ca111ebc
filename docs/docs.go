// Package docs registers the Swagger document served at /swagger. Regenerate with swag init.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "API Support"
        },
        "license": {
            "name": "Apache 2.0",
            "url": "http://www.apache.org/licenses/LICENSE-2.0.html"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/exams": {
            "get": {"produces": ["application/json"], "tags": ["User - Exams"], "summary": "(User) List all available exams", "responses": {"200": {"description": "OK"}}}
        },
        "/exams/{exam_id}": {
            "get": {"produces": ["application/json"], "tags": ["User - Exams"], "summary": "(User) Get the content tree of an exam",
                "parameters": [{"type": "integer", "name": "exam_id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Exam not found"}}}
        },
        "/exams/{exam_id}/attempts": {
            "post": {"consumes": ["application/json"], "produces": ["application/json"], "tags": ["User - Attempts"], "summary": "(User) Start a timed attempt",
                "parameters": [{"type": "integer", "name": "exam_id", "in": "path", "required": true}, {"name": "attempt", "in": "body", "required": true, "schema": {"type": "object"}}],
                "responses": {"201": {"description": "Created"}, "400": {"description": "Invalid request"}, "404": {"description": "Exam not found"}}}
        },
        "/attempts/{attempt_id}": {
            "get": {"produces": ["application/json"], "tags": ["User - Attempts"], "summary": "(User) Get an attempt",
                "parameters": [{"type": "integer", "name": "attempt_id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Attempt not found"}}}
        },
        "/attempts/{attempt_id}/answers/{question_id}": {
            "put": {"consumes": ["application/json"], "tags": ["User - Attempts"], "summary": "(User) Save the answer to one question",
                "parameters": [{"type": "integer", "name": "attempt_id", "in": "path", "required": true}, {"type": "integer", "name": "question_id", "in": "path", "required": true}, {"name": "answer", "in": "body", "required": true, "schema": {"type": "object"}}],
                "responses": {"204": {"description": "No Content"}, "409": {"description": "Attempt is closed"}, "422": {"description": "Question is not part of the attempt"}}}
        },
        "/attempts/{attempt_id}/submit": {
            "post": {"produces": ["application/json"], "tags": ["User - Attempts"], "summary": "(User) Submit an attempt for scoring",
                "parameters": [{"type": "integer", "name": "attempt_id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Attempt not found"}}}
        },
        "/attempts/{attempt_id}/summary": {
            "get": {"produces": ["application/json"], "tags": ["User - Attempts"], "summary": "(User) Get the scoring summary of a completed attempt",
                "parameters": [{"type": "integer", "name": "attempt_id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "409": {"description": "Attempt still in progress"}}}
        },
        "/users/{user_id}/attempts": {
            "get": {"produces": ["application/json"], "tags": ["User - Attempts"], "summary": "(User) List a user's attempts",
                "parameters": [{"type": "integer", "name": "user_id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}}
        },
        "/admin/exams": {
            "post": {"consumes": ["application/json"], "produces": ["application/json"], "tags": ["Admin - Exams"], "summary": "(Admin) Create a complete exam",
                "parameters": [{"name": "exam", "in": "body", "required": true, "schema": {"type": "object"}}],
                "responses": {"201": {"description": "Created"}, "400": {"description": "Invalid exam definition"}}}
        },
        "/admin/grading/pending": {
            "get": {"produces": ["application/json"], "tags": ["Admin - Grading"], "summary": "(Admin) List answers waiting for a grader", "responses": {"200": {"description": "OK"}}}
        },
        "/admin/attempts/{attempt_id}/answers/{question_id}/grade": {
            "post": {"consumes": ["application/json"], "produces": ["application/json"], "tags": ["Admin - Grading"], "summary": "(Admin) Grade an essay or speaking answer",
                "parameters": [{"type": "integer", "name": "attempt_id", "in": "path", "required": true}, {"type": "integer", "name": "question_id", "in": "path", "required": true}, {"name": "grade", "in": "body", "required": true, "schema": {"type": "object"}}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Invalid score"}, "409": {"description": "Not completed or already graded"}}}
        },
        "/admin/attempts/{attempt_id}/answers/{question_id}/suggestion": {
            "get": {"produces": ["application/json"], "tags": ["Admin - Grading"], "summary": "(Admin) Ask the AI assistant for a suggested grade",
                "parameters": [{"type": "integer", "name": "attempt_id", "in": "path", "required": true}, {"type": "integer", "name": "question_id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "503": {"description": "Assistant not configured"}}}
        },
        "/admin/attempts/{attempt_id}/suggestions": {
            "get": {"produces": ["application/json"], "tags": ["Admin - Grading"], "summary": "(Admin) Ask the AI assistant about every pending answer of an attempt",
                "parameters": [{"type": "integer", "name": "attempt_id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "503": {"description": "Assistant not configured"}}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{"http", "https"},
	Title:            "BandScore Mock Exam API",
	Description:      "Timed IELTS-style mock exams: attempts, answer recording, scoring and manual grading.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
