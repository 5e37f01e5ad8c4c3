// Package docs registra a especificação Swagger servida em /swagger.
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
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "paths": {
        "/v1/kegs": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["kegs"],
                "summary": "Lista barris",
                "parameters": [
                    {"type": "string", "name": "brand", "in": "query"},
                    {"enum": ["Novo", "Ativo", "Esgotado", "Estragado", "Transferido"], "type": "string", "name": "status", "in": "query"},
                    {"type": "integer", "default": 1, "name": "page", "in": "query"},
                    {"type": "integer", "default": 20, "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.Keg"}}},
                    "400": {"description": "Filtro inválido", "schema": {"$ref": "#/definitions/domain.ErrorResponse"}}
                }
            }
        },
        "/v1/kegs/purchases": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["kegs"],
                "summary": "Registra compra de barris",
                "parameters": [{"name": "purchase", "in": "body", "required": true, "schema": {"$ref": "#/definitions/domain.PurchaseRequest"}}],
                "responses": {
                    "201": {"description": "Barris criados", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.Keg"}}},
                    "400": {"description": "Payload inválido", "schema": {"$ref": "#/definitions/domain.ErrorResponse"}}
                }
            }
        },
        "/v1/kegs/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["kegs"],
                "summary": "Busca barril por ID",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Keg"}},
                    "404": {"description": "Barril não encontrado", "schema": {"$ref": "#/definitions/domain.ErrorResponse"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["kegs"],
                "summary": "Remove barril (admin)",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "204": {"description": "No Content"},
                    "403": {"description": "Papel sem permissão", "schema": {"$ref": "#/definitions/domain.ErrorResponse"}},
                    "404": {"description": "Barril não encontrado", "schema": {"$ref": "#/definitions/domain.ErrorResponse"}}
                }
            }
        },
        "/v1/kegs/{id}/activate": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["kegs"],
                "summary": "Ativa um barril Novo",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"name": "activation", "in": "body", "schema": {"$ref": "#/definitions/domain.ActivationRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Keg"}},
                    "409": {"description": "Barril não está Novo", "schema": {"$ref": "#/definitions/domain.ErrorResponse"}}
                }
            }
        },
        "/v1/kegs/{id}/loss": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["kegs"],
                "summary": "Registra perda",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"name": "loss", "in": "body", "required": true, "schema": {"$ref": "#/definitions/domain.LossRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/keg.RetirementResponse"}},
                    "409": {"description": "Barril em estado terminal", "schema": {"$ref": "#/definitions/domain.ErrorResponse"}}
                }
            }
        },
        "/v1/kegs/{id}/transfer": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["kegs"],
                "summary": "Transfere barril",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"name": "transfer", "in": "body", "required": true, "schema": {"$ref": "#/definitions/domain.TransferRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/keg.RetirementResponse"}},
                    "409": {"description": "Barril em estado terminal", "schema": {"$ref": "#/definitions/domain.ErrorResponse"}}
                }
            }
        },
        "/v1/brands/{brand}/summary": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["brands"],
                "summary": "Resumo do estoque ativo da marca",
                "parameters": [{"type": "string", "name": "brand", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.BrandSummary"}}}
            }
        },
        "/v1/movements": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["movements"],
                "summary": "Lista movimentações",
                "parameters": [
                    {"type": "string", "name": "keg_id", "in": "query"},
                    {"enum": ["Venda", "Perda", "Transferência"], "type": "string", "name": "type", "in": "query"},
                    {"type": "string", "name": "from", "in": "query"},
                    {"type": "string", "name": "to", "in": "query"},
                    {"type": "integer", "default": 1, "name": "page", "in": "query"},
                    {"type": "integer", "default": 50, "name": "limit", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.Movement"}}}}
            }
        },
        "/v1/sales/external": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["sales"],
                "summary": "Aloca venda externa (FIFO)",
                "parameters": [{"name": "sale", "in": "body", "required": true, "schema": {"$ref": "#/definitions/domain.ExternalSaleRequest"}}],
                "responses": {
                    "200": {"description": "Venda alocada (total ou parcial)", "schema": {"$ref": "#/definitions/domain.AllocationResult"}},
                    "400": {"description": "Volume ausente, não positivo ou com mais de 3 casas decimais", "schema": {"$ref": "#/definitions/domain.ErrorResponse"}},
                    "422": {"description": "Nenhum barril ativo para a marca", "schema": {"$ref": "#/definitions/domain.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "domain.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "integer", "example": 422},
                "category": {"type": "string", "example": "NO_ELIGIBLE_KEGS"},
                "message": {"type": "string"}
            }
        },
        "domain.Keg": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "brand": {"type": "string"},
                "code": {"type": "string"},
                "capacity": {"type": "string", "example": "50"},
                "current_liters": {"type": "string", "example": "25"},
                "purchase_price": {"type": "string", "example": "33.33"},
                "purchase_date": {"type": "string"},
                "activation_date": {"type": "string"},
                "status": {"type": "string", "enum": ["Novo", "Ativo", "Esgotado", "Estragado", "Transferido"]},
                "version": {"type": "integer"},
                "created_by": {"type": "string"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "domain.Movement": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "keg_id": {"type": "string"},
                "type": {"type": "string", "enum": ["Venda", "Perda", "Transferência"]},
                "liters": {"type": "string"},
                "date": {"type": "string"},
                "description": {"type": "string"},
                "allocation_id": {"type": "string"},
                "created_by": {"type": "string"},
                "created_at": {"type": "string"}
            }
        },
        "domain.PurchaseRequest": {
            "type": "object",
            "required": ["brand", "quantity", "purchase_date"],
            "properties": {
                "brand": {"type": "string"},
                "capacity_per_keg": {"type": "string", "example": "50"},
                "quantity": {"type": "integer", "example": 3},
                "total_price": {"type": "string", "example": "900.00"},
                "purchase_date": {"type": "string"},
                "code": {"type": "string"}
            }
        },
        "domain.ActivationRequest": {
            "type": "object",
            "properties": {"date": {"type": "string"}}
        },
        "domain.LossRequest": {
            "type": "object",
            "properties": {"liters": {"type": "string", "example": "10"}, "description": {"type": "string"}}
        },
        "domain.TransferRequest": {
            "type": "object",
            "required": ["destination"],
            "properties": {"liters": {"type": "string"}, "destination": {"type": "string"}}
        },
        "domain.BrandSummary": {
            "type": "object",
            "properties": {
                "brand": {"type": "string"},
                "active_kegs": {"type": "integer"},
                "available_liters": {"type": "string"},
                "oldest_activation": {"type": "string"}
            }
        },
        "domain.ExternalSaleRequest": {
            "type": "object",
            "required": ["brand"],
            "properties": {"brand": {"type": "string"}, "total_liters": {"type": "string", "example": "25"}, "date": {"type": "string"}}
        },
        "domain.KegConsumption": {
            "type": "object",
            "properties": {
                "keg_id": {"type": "string"},
                "code": {"type": "string"},
                "consumed": {"type": "string"},
                "remaining_liters": {"type": "string"},
                "status": {"type": "string"},
                "movement_id": {"type": "string"}
            }
        },
        "domain.AllocationResult": {
            "type": "object",
            "properties": {
                "allocation_id": {"type": "string"},
                "brand": {"type": "string"},
                "requested_liters": {"type": "string"},
                "fulfilled_liters": {"type": "string"},
                "shortfall_liters": {"type": "string"},
                "outcome": {"type": "string", "enum": ["fulfilled", "partial", "no_eligible_kegs", "skipped"]},
                "date": {"type": "string"},
                "consumptions": {"type": "array", "items": {"$ref": "#/definitions/domain.KegConsumption"}}
            }
        },
        "keg.RetirementResponse": {
            "type": "object",
            "properties": {
                "keg": {"$ref": "#/definitions/domain.Keg"},
                "movement": {"$ref": "#/definitions/domain.Movement"}
            }
        }
    }
}`

// SwaggerInfo contém as informações exportadas da especificação.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "GoChopp API",
	Description:      "Controle de barris de chopp com alocação FIFO de vendas externas.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
