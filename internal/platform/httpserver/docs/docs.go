// Package docs registers the engagement API description with swag so the
// /swagger/ route can serve it.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/v1/feed": {
            "get": {
                "summary": "Composed engagement view",
                "parameters": [{"name": "tab", "in": "query", "type": "string", "enum": ["all", "unread", "posts", "organizations"]}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/FeedResponse"}}, "400": {"description": "Invalid tab"}, "502": {"description": "Store unavailable"}}
            }
        },
        "/v1/polls/{poll_id}": {
            "get": {
                "summary": "Poll snapshot",
                "parameters": [{"name": "poll_id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/PollResponse"}}, "404": {"description": "Not found"}}
            }
        },
        "/v1/polls/{poll_id}/selections": {
            "post": {
                "summary": "Toggle or replace the pending selection",
                "parameters": [
                    {"name": "poll_id", "in": "path", "required": true, "type": "string"},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SelectOptionRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/PollResponse"}}, "409": {"description": "Submission in flight"}, "422": {"description": "Rejected selection"}}
            }
        },
        "/v1/polls/{poll_id}/votes": {
            "post": {
                "summary": "Submit the pending ballot",
                "parameters": [{"name": "poll_id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/PollResponse"}}, "204": {"description": "Superseded"}, "409": {"description": "Submission in flight"}, "422": {"description": "Invalid ballot"}, "502": {"description": "Store unavailable"}}
            }
        },
        "/v1/polls/{poll_id}/revert": {
            "post": {
                "summary": "Return a voted poll to editing",
                "parameters": [{"name": "poll_id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/PollResponse"}}, "422": {"description": "Revert not allowed"}}
            }
        },
        "/v1/polls/{poll_id}/resync": {
            "post": {
                "summary": "Refetch the authoritative tally",
                "parameters": [{"name": "poll_id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/PollResponse"}}, "502": {"description": "Store unavailable"}}
            }
        },
        "/v1/likes/{entity_id}": {
            "get": {
                "summary": "Like counter",
                "parameters": [{"name": "entity_id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/LikeResponse"}}}
            }
        },
        "/v1/likes/{entity_id}/toggle": {
            "post": {
                "summary": "Toggle the viewer's like",
                "parameters": [{"name": "entity_id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/LikeResponse"}}, "409": {"description": "Toggle in flight"}, "502": {"description": "Store unavailable"}}
            }
        },
        "/v1/notifications": {
            "get": {
                "summary": "Filtered notifications",
                "parameters": [{"name": "tab", "in": "query", "type": "string", "enum": ["all", "unread", "posts", "organizations"]}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/NotificationListResponse"}}}
            }
        },
        "/v1/notifications/refresh": {
            "post": {
                "summary": "Refetch and ingest notifications",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/NotificationListResponse"}}, "204": {"description": "Superseded"}, "502": {"description": "Store unavailable"}}
            }
        },
        "/v1/notifications/read-all": {
            "post": {
                "summary": "Mark every notification read",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/NotificationListResponse"}}, "502": {"description": "Store unavailable"}}
            }
        },
        "/v1/notifications/{notification_id}/read": {
            "post": {
                "summary": "Mark one notification read",
                "parameters": [{"name": "notification_id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/NotificationResponse"}}, "404": {"description": "Not found"}}
            }
        },
        "/v1/notifications/{notification_id}/press": {
            "post": {
                "summary": "Resolve the navigation target; marks read in the background",
                "parameters": [{"name": "notification_id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/NavigationResponse"}}, "404": {"description": "Not found"}}
            }
        }
    },
    "definitions": {
        "SelectOptionRequest": {"type": "object", "properties": {"option_id": {"type": "string"}}},
        "PollOptionResponse": {"type": "object", "properties": {
            "option_id": {"type": "string"}, "label": {"type": "string"}, "vote_count": {"type": "integer"},
            "percentage": {"type": "integer"}, "selected": {"type": "boolean"}, "submitted": {"type": "boolean"}}},
        "PollResponse": {"type": "object", "properties": {
            "poll_id": {"type": "string"}, "post_id": {"type": "string"}, "question": {"type": "string"},
            "allow_multiple": {"type": "boolean"}, "expires_at": {"type": "string", "format": "date-time"},
            "state": {"type": "string", "enum": ["unvoted", "voted", "expired"]}, "total_votes": {"type": "integer"},
            "options": {"type": "array", "items": {"$ref": "#/definitions/PollOptionResponse"}},
            "pending": {"type": "array", "items": {"type": "string"}}, "submitted": {"type": "array", "items": {"type": "string"}},
            "show_results": {"type": "boolean"}, "can_revert": {"type": "boolean"}, "submitting": {"type": "boolean"}, "tally_stale": {"type": "boolean"}}},
        "LikeResponse": {"type": "object", "properties": {
            "entity_id": {"type": "string"}, "liked": {"type": "boolean"}, "count": {"type": "integer"},
            "count_stale": {"type": "boolean"}, "toggling": {"type": "boolean"}}},
        "NotificationResponse": {"type": "object", "properties": {
            "notification_id": {"type": "string"}, "type": {"type": "string"}, "type_label": {"type": "string"},
            "category": {"type": "string"}, "icon": {"type": "string"}, "title": {"type": "string"}, "message": {"type": "string"},
            "created_at": {"type": "string", "format": "date-time"}, "is_read": {"type": "boolean"}, "priority": {"type": "string"},
            "actor_id": {"type": "string"}, "post_id": {"type": "string"}, "organization_id": {"type": "string"}, "event_id": {"type": "string"}}},
        "TabCountResponse": {"type": "object", "properties": {"tab": {"type": "string"}, "count": {"type": "integer"}}},
        "NotificationListResponse": {"type": "object", "properties": {
            "tab": {"type": "string"}, "items": {"type": "array", "items": {"$ref": "#/definitions/NotificationResponse"}},
            "unread_count": {"type": "integer"}, "tab_counts": {"type": "array", "items": {"$ref": "#/definitions/TabCountResponse"}}}},
        "NavigationResponse": {"type": "object", "properties": {
            "kind": {"type": "string", "enum": ["none", "post", "organization", "event"]}, "target_id": {"type": "string"}}},
        "PostResponse": {"type": "object", "properties": {
            "post_id": {"type": "string"}, "author_id": {"type": "string"}, "body": {"type": "string"}, "pinned": {"type": "boolean"},
            "created_at": {"type": "string", "format": "date-time"}, "likes": {"$ref": "#/definitions/LikeResponse"},
            "poll": {"$ref": "#/definitions/PollResponse"}}},
        "FeedResponse": {"type": "object", "properties": {
            "items": {"type": "array", "items": {"$ref": "#/definitions/PostResponse"}}, "tab": {"type": "string"},
            "notifications": {"type": "array", "items": {"$ref": "#/definitions/NotificationResponse"}},
            "unread_count": {"type": "integer"}, "tab_counts": {"type": "array", "items": {"$ref": "#/definitions/TabCountResponse"}},
            "composed_at": {"type": "string", "format": "date-time"}}}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Engagement API",
	Description:      "Poll, like and notification state for one viewer.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
