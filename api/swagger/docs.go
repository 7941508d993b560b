// Package swagger is generated by swaggo/swag from the handler annotations.
package swagger

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
		"/api/login": {
			"post": {
				"produces": ["application/json"],
				"tags": ["auth"],
				"summary": "User login",
				"responses": {
					"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}
				}
			}
		},
		"/api/logout": {
			"post": {
				"produces": ["application/json"],
				"tags": ["auth"],
				"summary": "User logout",
				"responses": {
					"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}
				}
			}
		},
		"/api/orders": {
			"get": {
				"security": [{"BearerAuth": []}],
				"produces": ["application/json"],
				"tags": ["orders"],
				"summary": "List orders",
				"responses": {
					"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}
				}
			},
			"post": {
				"security": [{"BearerAuth": []}],
				"produces": ["application/json"],
				"tags": ["orders"],
				"summary": "Create order",
				"responses": {
					"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}
				}
			}
		},
		"/api/orders/{id}": {
			"get": {
				"security": [{"BearerAuth": []}],
				"produces": ["application/json"],
				"tags": ["orders"],
				"summary": "Get order",
				"responses": {
					"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}
				}
			},
			"put": {
				"security": [{"BearerAuth": []}],
				"produces": ["application/json"],
				"tags": ["orders"],
				"summary": "Update pending order",
				"responses": {
					"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}
				}
			}
		},
		"/api/orders/{id}/transitions/{action}": {
			"post": {
				"security": [{"BearerAuth": []}],
				"produces": ["application/json"],
				"tags": ["orders"],
				"summary": "Transition order",
				"responses": {
					"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}
				}
			}
		},
		"/api/stock/{product_id}": {
			"get": {
				"security": [{"BearerAuth": []}],
				"produces": ["application/json"],
				"tags": ["stock"],
				"summary": "Get stock level",
				"responses": {
					"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}
				}
			}
		},
		"/api/stock/adjust": {
			"post": {
				"security": [{"BearerAuth": []}],
				"produces": ["application/json"],
				"tags": ["stock"],
				"summary": "Adjust stock",
				"responses": {
					"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}
				}
			}
		},
		"/api/stock/movements": {
			"get": {
				"security": [{"BearerAuth": []}],
				"produces": ["application/json"],
				"tags": ["stock"],
				"summary": "List stock movements",
				"responses": {
					"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}
				}
			}
		},
		"/api/stock/low": {
			"get": {
				"security": [{"BearerAuth": []}],
				"produces": ["application/json"],
				"tags": ["stock"],
				"summary": "List low stock products",
				"responses": {
					"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}
				}
			}
		},
		"/api/products": {
			"get": {
				"security": [{"BearerAuth": []}],
				"produces": ["application/json"],
				"tags": ["stock"],
				"summary": "List products",
				"responses": {
					"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}
				}
			},
			"post": {
				"security": [{"BearerAuth": []}],
				"produces": ["application/json"],
				"tags": ["stock"],
				"summary": "Create product",
				"responses": {
					"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}
				}
			}
		},
		"/api/returns": {
			"get": {
				"security": [{"BearerAuth": []}],
				"produces": ["application/json"],
				"tags": ["returns"],
				"summary": "List returns and wastages",
				"responses": {
					"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}
				}
			},
			"post": {
				"security": [{"BearerAuth": []}],
				"produces": ["application/json"],
				"tags": ["returns"],
				"summary": "Record return",
				"responses": {
					"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}
				}
			}
		},
		"/api/returns/{id}": {
			"get": {
				"security": [{"BearerAuth": []}],
				"produces": ["application/json"],
				"tags": ["returns"],
				"summary": "Get return",
				"responses": {
					"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}
				}
			}
		},
		"/api/wastages": {
			"post": {
				"security": [{"BearerAuth": []}],
				"produces": ["application/json"],
				"tags": ["returns"],
				"summary": "Record wastage",
				"responses": {
					"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}
				}
			}
		},
		"/api/notifications": {
			"get": {
				"security": [{"BearerAuth": []}],
				"produces": ["application/json"],
				"tags": ["notifications"],
				"summary": "List notifications",
				"responses": {
					"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}
				}
			}
		},
		"/api/notifications/{id}/read": {
			"put": {
				"security": [{"BearerAuth": []}],
				"produces": ["application/json"],
				"tags": ["notifications"],
				"summary": "Mark notification read",
				"responses": {
					"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}
				}
			}
		},
		"/api/statistics": {
			"get": {
				"security": [{"BearerAuth": []}],
				"produces": ["application/json"],
				"tags": ["Statistics"],
				"summary": "Get Dashboard Statistics",
				"responses": {
					"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}
				}
			}
		},
		"/api/audit-logs": {
			"get": {
				"security": [{"BearerAuth": []}],
				"produces": ["application/json"],
				"tags": ["audit"],
				"summary": "Get audit logs",
				"responses": {
					"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}
				}
			}
		}
	},
	"definitions": {
		"response.Response": {
			"type": "object",
			"properties": {
				"status": {"type": "string"},
				"status_code": {"type": "integer"},
				"data": {},
				"error": {"type": "string"},
				"code": {"type": "string"},
				"fields": {"type": "object", "additionalProperties": {"type": "string"}}
			}
		}
	},
	"securityDefinitions": {
		"BearerAuth": {
			"type": "apiKey",
			"name": "Authorization",
			"in": "header"
		}
	}
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Site Supply API",
	Description:      "Construction-site order lifecycle and stock reconciliation.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
