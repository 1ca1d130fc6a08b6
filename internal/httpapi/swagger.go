//go:build swagger

package httpapi

import (
	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/swaggo/swag"
)

const docTemplate = `{
  "swagger": "2.0",
  "info": {
    "title": "{{.Title}}",
    "description": "{{escape .Description}}",
    "version": "{{.Version}}"
  },
  "host": "{{.Host}}",
  "basePath": "{{.BasePath}}",
  "schemes": {{ marshal .Schemes }},
  "paths": {
    "/stt/status": {
      "get": {
        "summary": "Current runtime status",
        "produces": ["application/json"],
        "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.StatusResponse"}}}
      }
    },
    "/stt/ensure": {
      "post": {
        "summary": "Install and start the runtime if needed",
        "produces": ["application/json"],
        "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.StatusResponse"}}}
      }
    },
    "/stt/restart": {
      "post": {
        "summary": "Stop and start the runtime",
        "produces": ["application/json"],
        "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.StatusResponse"}}}
      }
    },
    "/stt/stop": {
      "post": {
        "summary": "Stop the runtime",
        "produces": ["application/json"],
        "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.StatusResponse"}}}
      }
    },
    "/stt/transcribe": {
      "post": {
        "summary": "Transcribe a WAV payload",
        "consumes": ["audio/wav"],
        "produces": ["application/json"],
        "responses": {
          "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.TranscribeResponse"}},
          "413": {"description": "Payload too large", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
        }
      }
    },
    "/stt/events": {
      "get": {
        "summary": "Status transitions as Server-Sent Events",
        "produces": ["text/event-stream"],
        "responses": {"200": {"description": "OK"}}
      }
    }
  },
  "definitions": {
    "types.StatusResponse": {
      "type": "object",
      "properties": {
        "state": {"type": "string", "example": "running"},
        "message": {"type": "string", "example": "STT service ready."},
        "progress": {"type": "number", "example": 0.42},
        "host": {"type": "string", "example": "127.0.0.1"},
        "port": {"type": "integer", "example": 8000},
        "pid": {"type": "integer"},
        "runtime_version": {"type": "string", "example": "stt-runtime-v0.1.1"},
        "transcription_url": {"type": "string"},
        "log_path": {"type": "string"},
        "server_time_unix": {"type": "integer"}
      }
    },
    "types.TranscribeResponse": {
      "type": "object",
      "properties": {
        "text": {"type": "string", "example": "hello world"},
        "error": {"type": "string", "example": "stt_unavailable"}
      }
    },
    "types.ErrorResponse": {
      "type": "object",
      "properties": {
        "error": {"type": "string"},
        "code": {"type": "integer"}
      }
    }
  }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "sttd API",
	Description:      "Control API for the local speech-to-text runtime.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

// MountSwagger serves the API document and UI under /swagger/.
func MountSwagger(r chi.Router) {
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
}
