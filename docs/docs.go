// Package docs registers the OpenAPI description served by gin-swagger.
//
// The template is maintained by hand. It lists every API route with its
// status codes but carries no schemas; edit it alongside the handler
// annotations when a route changes.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/medications": {
            "get": {"tags": ["Medications"], "summary": "List medications (paginated)", "operationId": "listMedications", "responses": {"200": {"description": "OK"}, "304": {"description": "Not Modified"}}},
            "post": {"tags": ["Medications"], "summary": "Add a medication", "operationId": "addMedication", "responses": {"201": {"description": "Created"}, "400": {"description": "Validation failed"}}}
        },
        "/medications/{id}": {
            "get": {"tags": ["Medications"], "summary": "Get a medication", "operationId": "getMedication", "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}},
            "patch": {"tags": ["Medications"], "summary": "Update a medication", "operationId": "updateMedication", "responses": {"200": {"description": "OK"}, "400": {"description": "Validation failed"}, "404": {"description": "Not found"}}},
            "delete": {"tags": ["Medications"], "summary": "Delete a medication", "operationId": "deleteMedication", "responses": {"204": {"description": "No Content"}, "404": {"description": "Not found"}}}
        },
        "/medications/{id}/refill": {
            "post": {"tags": ["Medications"], "summary": "Refill to total supply", "operationId": "refillMedication", "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}}
        },
        "/doses": {
            "get": {"tags": ["Doses"], "summary": "List dose history", "operationId": "listDoses", "responses": {"200": {"description": "OK"}, "400": {"description": "Bad date"}}},
            "post": {"tags": ["Doses"], "summary": "Record a dose", "operationId": "recordDose", "responses": {"201": {"description": "Recorded"}, "200": {"description": "Replayed"}, "400": {"description": "Bad request"}}}
        },
        "/schedule": {
            "get": {"tags": ["Schedule"], "summary": "Daily schedule with dose status", "operationId": "getSchedule", "responses": {"200": {"description": "OK"}, "400": {"description": "Bad date"}}}
        },
        "/reminders/due": {
            "get": {"tags": ["Reminders"], "summary": "Reminders due soon", "operationId": "dueReminders", "responses": {"200": {"description": "OK"}, "400": {"description": "Bad window"}}}
        },
        "/reminders/dispatch": {
            "post": {"tags": ["Reminders"], "summary": "Dispatch due reminders", "operationId": "dispatchReminders", "responses": {"200": {"description": "OK"}}}
        },
        "/refills": {
            "get": {"tags": ["Refills"], "summary": "Refill alerts", "operationId": "listRefillAlerts", "responses": {"200": {"description": "OK"}}}
        },
        "/data": {
            "delete": {"tags": ["Data"], "summary": "Clear all data", "operationId": "clearData", "responses": {"204": {"description": "No Content"}}}
        },
        "/auth/status": {
            "get": {"tags": ["Auth"], "summary": "PIN gate status", "operationId": "authStatus", "responses": {"200": {"description": "OK"}}}
        },
        "/auth/pin": {
            "post": {"tags": ["Auth"], "summary": "Create the PIN", "operationId": "createPIN", "responses": {"201": {"description": "Created"}, "400": {"description": "Invalid email or PIN"}, "409": {"description": "PIN already configured"}}}
        },
        "/auth/unlock": {
            "post": {"tags": ["Auth"], "summary": "Unlock with the PIN", "operationId": "unlock", "responses": {"204": {"description": "No Content"}, "401": {"description": "Incorrect PIN"}}}
        },
        "/auth/lock": {
            "post": {"tags": ["Auth"], "summary": "Lock the session", "operationId": "lock", "responses": {"204": {"description": "No Content"}}}
        },
        "/auth/reset": {
            "post": {"tags": ["Auth"], "summary": "Reset a forgotten PIN", "operationId": "resetPIN", "responses": {"204": {"description": "No Content"}, "401": {"description": "Incorrect code"}, "403": {"description": "Reset disabled"}}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "MedRemind API",
	Description:      "Medication schedules, dose history, reminders and refill tracking.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
