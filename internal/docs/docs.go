// Package docs registers the OpenAPI document of the ladder API.
// Regenerate with `swag init -g cmd/api/main.go -o internal/docs` after
// changing handler annotations.
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
        "/client/send-replay5": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "description": "Legacy telemetry report in the query string. Short games and duplicate submissions are accepted as no-ops.",
                "produces": ["application/json"],
                "tags": ["Ingestion"],
                "summary": "Ingest a game report",
                "parameters": [
                    {"type": "integer", "description": "Collector version", "name": "version", "in": "query", "required": true},
                    {"type": "integer", "description": "Format size (1..4)", "name": "type", "in": "query", "required": true},
                    {"type": "string", "description": "Reporter Steam id", "name": "sid", "in": "query"},
                    {"type": "string", "description": "Map name", "name": "map", "in": "query"},
                    {"type": "string", "description": "Termination reason", "name": "winby", "in": "query"},
                    {"type": "integer", "description": "Duration in seconds", "name": "gtime", "in": "query"},
                    {"type": "integer", "description": "Reporter APM", "name": "apm", "in": "query"},
                    {"type": "string", "description": "Mod technical name", "name": "mod", "in": "query"},
                    {"type": "string", "description": "Mod version, optionally base64", "name": "mod_version", "in": "query"},
                    {"type": "integer", "default": 1, "description": "Ranked flag", "name": "isRanked", "in": "query"},
                    {"type": "integer", "default": 1, "description": "Full standard game flag", "name": "isFullStdGame", "in": "query"},
                    {"type": "integer", "default": 0, "description": "Automatch flag", "name": "isAuto", "in": "query"},
                    {"type": "integer", "description": "Upstream match id", "name": "relicGameId", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.IngestResponse"}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "401": {"description": "Unauthorized", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "500": {"description": "Retry", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            },
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "description": "Same query parameters as the GET variant. The replay is the multipart field \"file\" or the raw body.",
                "consumes": ["multipart/form-data", "application/octet-stream"],
                "produces": ["application/json"],
                "tags": ["Ingestion"],
                "summary": "Ingest a game report with its replay",
                "parameters": [
                    {"type": "file", "description": "Replay", "name": "file", "in": "formData"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.IngestResponse"}},
                    "413": {"description": "Replay too large", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/client/stats5": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "description": "Registers unknown Steam ids and returns ratings, favourite race and ban state in request order",
                "produces": ["application/json"],
                "tags": ["Client"],
                "summary": "Lobby stats for the game client",
                "parameters": [
                    {"type": "string", "description": "Comma separated Steam ids", "name": "sids", "in": "query", "required": true},
                    {"type": "string", "description": "Comma separated base64 nicknames aligned with sids", "name": "nicks", "in": "query"},
                    {"type": "string", "description": "Mod technical name", "name": "mod_tech_name", "in": "query"},
                    {"type": "integer", "description": "Mod id, used when mod_tech_name is unknown", "name": "modId", "in": "query"},
                    {"type": "integer", "description": "Season id", "name": "seasonId", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.ClientStatsResponse"}}
                }
            }
        },
        "/v1/ladder": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Ladder"],
                "summary": "MMR ladder",
                "parameters": [
                    {"type": "integer", "description": "Mod id", "name": "mod", "in": "query", "required": true},
                    {"type": "integer", "description": "Season id, active season when omitted", "name": "season", "in": "query"},
                    {"type": "string", "default": "solo", "description": "solo or team", "name": "mmrType", "in": "query"},
                    {"type": "string", "description": "Name or previous nickname", "name": "search", "in": "query"},
                    {"type": "string", "default": "desc", "description": "asc or desc", "name": "sort", "in": "query"},
                    {"type": "integer", "description": "Server id", "name": "server", "in": "query"},
                    {"type": "integer", "default": 1, "description": "Page", "name": "page", "in": "query"},
                    {"type": "integer", "default": 25, "description": "Page size (1..200)", "name": "pageSize", "in": "query"},
                    {"type": "integer", "default": 1, "description": "Minimum games in the selected formats", "name": "minGames", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.LadderResponse"}}
                }
            }
        },
        "/v1/battles": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Battles"],
                "summary": "Battle history",
                "parameters": [
                    {"type": "integer", "description": "Mod id", "name": "mod", "in": "query"},
                    {"type": "integer", "description": "Season id", "name": "season", "in": "query"},
                    {"type": "integer", "description": "Server id", "name": "server", "in": "query"},
                    {"type": "string", "description": "Participant Steam id", "name": "sid", "in": "query"},
                    {"type": "string", "description": "Comma separated participant Steam ids", "name": "sids", "in": "query"},
                    {"type": "string", "description": "Earliest creation time", "name": "dateFrom", "in": "query"},
                    {"type": "string", "description": "Latest creation time", "name": "dateTo", "in": "query"},
                    {"type": "integer", "description": "Minimum duration in seconds", "name": "minDuration", "in": "query"},
                    {"type": "integer", "description": "Maximum duration in seconds", "name": "maxDuration", "in": "query"},
                    {"type": "string", "description": "Exact map name", "name": "map", "in": "query"},
                    {"type": "string", "description": "Map name substring", "name": "mapLike", "in": "query"},
                    {"type": "string", "description": "Automatch filter", "name": "isAuto", "in": "query"},
                    {"type": "string", "description": "Comma separated race ids of winners", "name": "winnerRaces", "in": "query"},
                    {"type": "string", "description": "Comma separated race ids of losers", "name": "loserRaces", "in": "query"},
                    {"type": "string", "default": "desc", "description": "asc or desc by creation time", "name": "sort", "in": "query"},
                    {"type": "integer", "default": 1, "description": "Page", "name": "page", "in": "query"},
                    {"type": "integer", "default": 25, "description": "Page size (1..200)", "name": "pageSize", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.BattleResponse"}}
                }
            }
        },
        "/v1/players/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Players"],
                "summary": "Player profile",
                "parameters": [
                    {"type": "integer", "description": "Player id", "name": "id", "in": "path", "required": true},
                    {"type": "integer", "description": "Mod id", "name": "mod", "in": "query", "required": true},
                    {"type": "integer", "description": "Season id", "name": "season", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.PlayerProfileResponse"}}
                }
            }
        },
        "/v1/mods": {"get": {"produces": ["application/json"], "tags": ["Catalog"], "summary": "Mods", "responses": {"200": {"description": "OK"}}}},
        "/v1/seasons": {"get": {"produces": ["application/json"], "tags": ["Catalog"], "summary": "Seasons", "responses": {"200": {"description": "OK"}}}},
        "/v1/servers": {"get": {"produces": ["application/json"], "tags": ["Catalog"], "summary": "Servers", "responses": {"200": {"description": "OK"}}}},
        "/v1/replays/upload": {
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["Replays"],
                "summary": "Upload a replay",
                "parameters": [
                    {"type": "file", "description": "Replay", "name": "file", "in": "formData", "required": true},
                    {"type": "integer", "description": "Game id", "name": "game_id", "in": "formData", "required": true}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.ReplayUploadResponse"}}}
            }
        },
        "/v1/replays/{key}": {
            "get": {
                "produces": ["application/octet-stream"],
                "tags": ["Replays"],
                "summary": "Download a replay",
                "parameters": [
                    {"type": "string", "description": "Replay key", "name": "key", "in": "path", "required": true},
                    {"type": "string", "description": "Attachment file name", "name": "filename", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"type": "file"}}}
            },
            "delete": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["Replays"],
                "summary": "Delete a replay",
                "parameters": [
                    {"type": "string", "description": "Replay key", "name": "key", "in": "path", "required": true}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.ReplayDeleteResponse"}}}
            }
        },
        "/v1/replays/{key}/url": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Replays"],
                "summary": "Presigned replay URL",
                "parameters": [
                    {"type": "string", "description": "Replay key", "name": "key", "in": "path", "required": true},
                    {"type": "string", "description": "Attachment file name", "name": "filename", "in": "query"},
                    {"type": "integer", "default": 900, "description": "Lifetime in seconds", "name": "expiresIn", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.ReplayURLResponse"}}}
            }
        },
        "/v1/system/install": {
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["System"],
                "summary": "Install Database Schema",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.InstallResponse"}}}
            }
        }
    },
    "definitions": {
        "models.IngestResponse": {
            "type": "object",
            "properties": {
                "ok": {"type": "boolean"},
                "gameId": {"type": "integer"},
                "skipped": {"type": "string"}
            }
        },
        "models.ClientStatsResponse": {
            "type": "object",
            "properties": {
                "modName": {"type": "string"},
                "seasonName": {"type": "string"},
                "stats": {"type": "array", "items": {"type": "object"}}
            }
        },
        "models.LadderResponse": {
            "type": "object",
            "properties": {
                "items": {"type": "array", "items": {"type": "object"}},
                "meta": {"type": "object"}
            }
        },
        "models.BattleResponse": {
            "type": "object",
            "properties": {
                "items": {"type": "array", "items": {"type": "object"}},
                "meta": {"type": "object"}
            }
        },
        "models.PlayerProfileResponse": {
            "type": "object",
            "properties": {
                "item": {"type": "object"},
                "meta": {"type": "object"}
            }
        },
        "models.ReplayUploadResponse": {
            "type": "object",
            "properties": {
                "ok": {"type": "boolean"},
                "key": {"type": "string"},
                "link": {"type": "string"}
            }
        },
        "models.ReplayURLResponse": {
            "type": "object",
            "properties": {
                "ok": {"type": "boolean"},
                "url": {"type": "string"},
                "expiresIn": {"type": "integer"}
            }
        },
        "models.ReplayDeleteResponse": {
            "type": "object",
            "properties": {
                "ok": {"type": "boolean"},
                "key": {"type": "string"}
            }
        },
        "models.InstallResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "results": {"type": "object", "additionalProperties": {"type": "string"}},
                "error": {"type": "boolean"}
            }
        }
    },
    "securityDefinitions": {
        "ApiKeyAuth": {
            "type": "apiKey",
            "name": "Key",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "dowstats ladder API",
	Description:      "Game report ingestion, MMR ladder and battle history for Dawn of War.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
