/*
Copyright © 2025 Global Type System
Released under Apache License 2.0
*/

package gts

import "testing"

func registerCoreEventSchemas(t *testing.T, store *Registry) {
	t.Helper()
	mustRegisterContent(t, store, map[string]any{
		"$id":      "gts.x.core.events.type.v1~",
		"$schema":  "http://json-schema.org/draft-07/schema#",
		"type":     "object",
		"required": []any{"id", "type", "tenantId", "occurredAt"},
		"properties": map[string]any{
			"type":       map[string]any{"type": "string"},
			"id":         map[string]any{"type": "string"},
			"tenantId":   map[string]any{"type": "string", "format": "uuid"},
			"occurredAt": map[string]any{"type": "string", "format": "date-time"},
			"payload":    map[string]any{"type": "object"},
		},
	})
}

func registerDerivedEventSchema(t *testing.T, store *Registry, id string, payloadRequired []any, payloadProps map[string]any) {
	t.Helper()
	mustRegisterContent(t, store, map[string]any{
		"$id":     id,
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type":    "object",
		"allOf": []any{
			map[string]any{"$ref": "gts.x.core.events.type.v1~"},
			map[string]any{
				"type":     "object",
				"required": []any{"type", "payload"},
				"properties": map[string]any{
					"type":    map[string]any{"const": id},
					"payload": map[string]any{"type": "object", "required": payloadRequired, "properties": payloadProps},
				},
			},
		},
	})
}

func TestValidateInstance_DerivedEventSchemas(t *testing.T) {
	t.Run("well-formed instance validates", func(t *testing.T) {
		store := NewRegistry()
		registerCoreEventSchemas(t, store)
		registerDerivedEventSchema(t, store, "gts.x.core.events.type.v1~x.commerce.orders.order_placed.v1.0~",
			[]any{"orderId", "customerId", "totalAmount", "items"},
			map[string]any{
				"orderId":     map[string]any{"type": "string", "format": "uuid"},
				"customerId":  map[string]any{"type": "string", "format": "uuid"},
				"totalAmount": map[string]any{"type": "number"},
				"items":       map[string]any{"type": "array", "items": map[string]any{"type": "object"}},
			})

		id := "gts.x.core.events.type.v1~x.commerce.orders.order_placed.v1.0~x.y._.some_event.v1.0"
		mustRegisterContent(t, store, map[string]any{
			"type":       "gts.x.core.events.type.v1~x.commerce.orders.order_placed.v1.0~",
			"id":         id,
			"tenantId":   "11111111-2222-3333-4444-555555555555",
			"occurredAt": "2025-09-20T18:35:00Z",
			"payload": map[string]any{
				"orderId":     "af0e3c1b-8f1e-4a27-9a9b-b7b9b70c1f01",
				"customerId":  "0f2e4a9b-1c3d-4e5f-8a9b-0c1d2e3f4a5b",
				"totalAmount": 149.99,
				"items": []any{
					map[string]any{"sku": "SKU-ABC-001", "name": "Wireless Mouse", "qty": 1, "price": 49.99},
				},
			},
		})

		result := store.ValidateInstance(id)
		if !result.OK {
			t.Errorf("expected validation to succeed, got error: %s", result.Error)
		}
		if result.ID != id {
			t.Errorf("expected ID %q, got: %s", id, result.ID)
		}
	})

	t.Run("missing required payload field fails", func(t *testing.T) {
		store := NewRegistry()
		registerCoreEventSchemas(t, store)
		registerDerivedEventSchema(t, store, "gts.x.core.events.type.v1~x.test6.invalid.event.v1.0~",
			[]any{"requiredField"},
			map[string]any{"requiredField": map[string]any{"type": "string"}})

		id := "gts.x.core.events.type.v1~x.commerce.orders.order_placed.v1.0~x.y._.some_event2.v1.0"
		mustRegisterContent(t, store, map[string]any{
			"type":       "gts.x.core.events.type.v1~x.test6.invalid.event.v1.0~",
			"id":         id,
			"tenantId":   "11111111-2222-3333-4444-555555555555",
			"occurredAt": "2025-09-20T18:35:00Z",
			"payload":    map[string]any{"someOtherField": "value"},
		})

		result := store.ValidateInstance(id)
		if result.OK {
			t.Error("expected validation to fail, but it succeeded")
		}
		if result.ID != id {
			t.Errorf("expected ID %q, got: %s", id, result.ID)
		}
		if result.Error == "" {
			t.Error("expected a non-empty error message")
		}
	})
}

func TestValidateInstance_NotFound(t *testing.T) {
	store := NewRegistry()
	result := store.ValidateInstance("gts.x.nonexistent.ns.type.v1.0")
	if result.OK {
		t.Error("expected validation to fail for a non-existent instance")
	}
	if result.Error == "" {
		t.Error("expected an error message for a non-existent instance")
	}
}

func TestValidateInstance_SchemaConstraints(t *testing.T) {
	tests := []struct {
		name     string
		schemaID string
		schema   map[string]any
		id       string
		instance map[string]any
	}{
		{
			name:     "format constraints on uuid, email, and date-time",
			schemaID: "gts.x.test6.formats.user.v1~",
			schema: map[string]any{
				"$id": "gts.x.test6.formats.user.v1~", "$schema": "http://json-schema.org/draft-07/schema#", "type": "object",
				"required": []any{"userId", "email", "createdAt"},
				"properties": map[string]any{
					"userId":    map[string]any{"type": "string", "format": "uuid"},
					"email":     map[string]any{"type": "string", "format": "email"},
					"createdAt": map[string]any{"type": "string", "format": "date-time"},
				},
			},
			id: "gts.x.test6.formats.user.v1~x.test6._.user_inst.v1",
			instance: map[string]any{
				"type": "gts.x.test6.formats.user.v1~", "id": "gts.x.test6.formats.user.v1~x.test6._.user_inst.v1",
				"userId": "550e8400-e29b-41d4-a716-446655440000", "email": "user@example.com", "createdAt": "2025-01-15T10:30:00Z",
			},
		},
		{
			name:     "nested objects and array items",
			schemaID: "gts.x.test6.nested.order.v1~",
			schema: map[string]any{
				"$id": "gts.x.test6.nested.order.v1~", "$schema": "http://json-schema.org/draft-07/schema#", "type": "object",
				"required": []any{"orderId", "customer", "items"},
				"properties": map[string]any{
					"orderId": map[string]any{"type": "string"},
					"customer": map[string]any{
						"type": "object", "required": []any{"customerId", "name", "address"},
						"properties": map[string]any{
							"customerId": map[string]any{"type": "string"},
							"name":       map[string]any{"type": "string"},
							"address": map[string]any{
								"type": "object", "required": []any{"street", "city", "country"},
								"properties": map[string]any{
									"street":     map[string]any{"type": "string"},
									"city":       map[string]any{"type": "string"},
									"country":    map[string]any{"type": "string"},
									"postalCode": map[string]any{"type": "string"},
								},
							},
						},
					},
					"items": map[string]any{
						"type": "array", "minItems": 1,
						"items": map[string]any{
							"type": "object", "required": []any{"sku", "quantity", "price"},
							"properties": map[string]any{
								"sku":      map[string]any{"type": "string"},
								"quantity": map[string]any{"type": "integer", "minimum": 1},
								"price":    map[string]any{"type": "number", "minimum": 0},
							},
						},
					},
				},
			},
			id: "gts.x.test6.nested.order.v1~x.test6._.order1.v1",
			instance: map[string]any{
				"type": "gts.x.test6.nested.order.v1~", "id": "gts.x.test6.nested.order.v1~x.test6._.order1.v1",
				"orderId": "ORD-12345",
				"customer": map[string]any{
					"customerId": "CUST-001", "name": "John Doe",
					"address": map[string]any{"street": "123 Main St", "city": "New York", "country": "USA", "postalCode": "10001"},
				},
				"items": []any{
					map[string]any{"sku": "SKU-001", "quantity": 2, "price": 29.99},
					map[string]any{"sku": "SKU-002", "quantity": 1, "price": 49.99},
				},
			},
		},
		{
			name:     "enum constraints",
			schemaID: "gts.x.test6.enum.status.v1~",
			schema: map[string]any{
				"$id": "gts.x.test6.enum.status.v1~", "$schema": "http://json-schema.org/draft-07/schema#", "type": "object",
				"required": []any{"statusId", "status"},
				"properties": map[string]any{
					"statusId": map[string]any{"type": "string"},
					"status":   map[string]any{"type": "string", "enum": []any{"pending", "approved", "rejected", "completed"}},
					"priority": map[string]any{"type": "string", "enum": []any{"low", "medium", "high", "critical"}},
				},
			},
			id: "gts.x.test6.enum.status.v1~x.test6._.status1.v1",
			instance: map[string]any{
				"type": "gts.x.test6.enum.status.v1~", "id": "gts.x.test6.enum.status.v1~x.test6._.status1.v1",
				"statusId": "STATUS-001", "status": "approved", "priority": "high",
			},
		},
		{
			name:     "array minItems and maxItems",
			schemaID: "gts.x.test6.array.tags.v1~",
			schema: map[string]any{
				"$id": "gts.x.test6.array.tags.v1~", "$schema": "http://json-schema.org/draft-07/schema#", "type": "object",
				"required": []any{"itemId", "tags"},
				"properties": map[string]any{
					"itemId": map[string]any{"type": "string"},
					"tags":   map[string]any{"type": "array", "minItems": 1, "maxItems": 5, "items": map[string]any{"type": "string"}},
				},
			},
			id: "gts.x.test6.array.tags.v1~x.test6._.item1.v1",
			instance: map[string]any{
				"type": "gts.x.test6.array.tags.v1~", "id": "gts.x.test6.array.tags.v1~x.test6._.item1.v1",
				"itemId": "ITEM-001", "tags": []any{"electronics", "sale", "featured"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewRegistry()
			mustRegisterContent(t, store, tt.schema)
			mustRegisterContent(t, store, tt.instance)

			result := store.ValidateInstance(tt.id)
			if !result.OK {
				t.Errorf("expected validation to succeed, got error: %s", result.Error)
			}
		})
	}
}

func TestValidateInstance_MissingSchemaReference(t *testing.T) {
	store := NewRegistry()
	id := "gts.x.test6.noschem.item.v1~a.b.c.d.v1"
	mustRegisterContent(t, store, map[string]any{"id": id, "someField": "value"})

	result := store.ValidateInstance(id)
	if result.OK {
		t.Error("expected validation to fail for an instance without a schema reference")
	}
	if result.Error == "" {
		t.Error("expected an error message for an instance without a schema reference")
	}
}
