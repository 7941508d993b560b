package response

import (
	"encoding/json"
	"testing"
)

func TestValidationFailed_SerializesFields(t *testing.T) {
	res := ValidationFailed(422, "invalid_line_item", "the given data was invalid", map[string]string{"items.0.quantity": "must be at least 1"})

	raw, err := json.Marshal(res)
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["status"] != "invalid" || decoded["code"] != "invalid_line_item" {
		t.Errorf("Unexpected body %s", raw)
	}
	fields, ok := decoded["fields"].(map[string]interface{})
	if !ok || fields["items.0.quantity"] != "must be at least 1" {
		t.Errorf("Expected fields in body, got %s", raw)
	}
	if _, ok := decoded["data"]; ok {
		t.Error("Expected data to be omitted")
	}
}

func TestSuccess_OmitsErrorFields(t *testing.T) {
	raw, _ := json.Marshal(Success(200, map[string]int{"n": 1}))
	var decoded map[string]interface{}
	_ = json.Unmarshal(raw, &decoded)
	for _, key := range []string{"error", "code", "fields"} {
		if _, ok := decoded[key]; ok {
			t.Errorf("Expected %s to be omitted in %s", key, raw)
		}
	}
}
