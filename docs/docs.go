// Package docs registers the OpenAPI document served under /swagger.
package docs

import "github.com/swaggo/swag/v2"

const docTemplate = `{
    "openapi": "3.1.0",
    "info": {
        "title": "{{.Title}}",
        "description": "{{.Description}}",
        "version": "{{.Version}}"
    },
    "servers": [{"url": "{{.BasePath}}"}],
    "paths": {
        "/channels/{channel_id}/notifications": {
            "post": {
                "operationId": "receiveMarketplaceNotification",
                "summary": "Receive a marketplace notification",
                "tags": ["notifications"],
                "parameters": [
                    {"name": "channel_id", "in": "path", "required": true, "schema": {"type": "string", "format": "uuid"}},
                    {"name": "X-Marketplace-Event", "in": "header", "schema": {"type": "string"}},
                    {"name": "X-Marketplace-Delivery-Id", "in": "header", "schema": {"type": "string"}}
                ],
                "requestBody": {"required": true, "content": {"application/json": {"schema": {"type": "object"}}}},
                "responses": {
                    "200": {"description": "Applied or ignored", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/NotificationAckResponse"}}}},
                    "400": {"$ref": "#/components/responses/Error"},
                    "404": {"$ref": "#/components/responses/Error"},
                    "500": {"$ref": "#/components/responses/Error"}
                }
            }
        },
        "/channels/{channel_id}/sync": {
            "post": {
                "operationId": "triggerChannelSync",
                "summary": "Trigger an order sync",
                "tags": ["sync"],
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "channel_id", "in": "path", "required": true, "schema": {"type": "string", "format": "uuid"}}
                ],
                "requestBody": {"required": true, "content": {"application/json": {"schema": {"$ref": "#/components/schemas/TriggerSyncRequest"}}}},
                "responses": {
                    "202": {"description": "Queued", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/SyncJobResponse"}}}},
                    "400": {"$ref": "#/components/responses/Error"},
                    "401": {"$ref": "#/components/responses/Error"},
                    "403": {"$ref": "#/components/responses/Error"},
                    "404": {"$ref": "#/components/responses/Error"},
                    "422": {"$ref": "#/components/responses/Error"},
                    "503": {"$ref": "#/components/responses/Error"}
                }
            }
        },
        "/orders/{order_id}": {
            "get": {
                "operationId": "getMarketplaceOrder",
                "summary": "Get a marketplace order",
                "tags": ["orders"],
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "order_id", "in": "path", "required": true, "schema": {"type": "string", "format": "uuid"}}
                ],
                "responses": {
                    "200": {"description": "Order", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/OrderEnvelope"}}}},
                    "401": {"$ref": "#/components/responses/Error"},
                    "404": {"$ref": "#/components/responses/Error"}
                }
            }
        },
        "/orders/{order_id}/audit": {
            "get": {
                "operationId": "getMarketplaceOrderAudit",
                "summary": "List the audit trail of a marketplace order",
                "tags": ["orders"],
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "order_id", "in": "path", "required": true, "schema": {"type": "string", "format": "uuid"}}
                ],
                "responses": {
                    "200": {"description": "Audit entries in sequence order", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/AuditEnvelope"}}}},
                    "401": {"$ref": "#/components/responses/Error"},
                    "404": {"$ref": "#/components/responses/Error"}
                }
            }
        },
        "/system/info": {
            "get": {
                "operationId": "getSystemInfo",
                "summary": "Get system information",
                "tags": ["system"],
                "responses": {"200": {"description": "Service name, version and uptime"}}
            }
        }
    },
    "components": {
        "securitySchemes": {
            "BearerAuth": {"type": "http", "scheme": "bearer", "bearerFormat": "JWT"}
        },
        "responses": {
            "Error": {"description": "Error envelope", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/ErrorResponse"}}}}
        },
        "schemas": {
            "ErrorInfo": {
                "type": "object",
                "properties": {
                    "code": {"type": "string", "example": "ERR_NOT_FOUND"},
                    "message": {"type": "string"},
                    "request_id": {"type": "string"},
                    "details": {"type": "array", "items": {"type": "object", "properties": {"field": {"type": "string"}, "message": {"type": "string"}}}},
                    "timestamp": {"type": "integer"}
                }
            },
            "ErrorResponse": {
                "type": "object",
                "properties": {"success": {"type": "boolean", "example": false}, "error": {"$ref": "#/components/schemas/ErrorInfo"}}
            },
            "NotificationAckResponse": {
                "type": "object",
                "properties": {
                    "success": {"type": "boolean"},
                    "data": {"type": "object", "properties": {"event_name": {"type": "string"}, "event_type": {"type": "string"}, "delivery_id": {"type": "string"}}}
                }
            },
            "TriggerSyncRequest": {
                "type": "object",
                "required": ["start_time", "end_time"],
                "properties": {"start_time": {"type": "string", "format": "date-time"}, "end_time": {"type": "string", "format": "date-time"}}
            },
            "SyncJobResponse": {
                "type": "object",
                "properties": {
                    "success": {"type": "boolean"},
                    "data": {
                        "type": "object",
                        "properties": {
                            "job_id": {"type": "string"},
                            "channel_id": {"type": "string"},
                            "start_time": {"type": "string", "format": "date-time"},
                            "end_time": {"type": "string", "format": "date-time"},
                            "status": {"type": "string", "example": "PENDING"}
                        }
                    }
                }
            },
            "OrderEnvelope": {
                "type": "object",
                "properties": {"success": {"type": "boolean"}, "data": {"type": "object"}}
            },
            "AuditEnvelope": {
                "type": "object",
                "properties": {"success": {"type": "boolean"}, "data": {"type": "array", "items": {"type": "object"}}}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Order Sync API",
	Description:      "Marketplace order reconciliation service",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
