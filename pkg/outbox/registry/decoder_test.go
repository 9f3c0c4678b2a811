package registry

import (
	"encoding/json"
	"testing"

	"github.com/calderhq/opsdesk-backend/pkg/enums"
)

func TestDecoderRegistry(t *testing.T) {
	reg := NewDecoderRegistry()
	reg.Register(enums.EventInvoiceStatusChanged, 1, func(payload json.RawMessage) (interface{}, error) {
		var decoded map[string]string
		if err := json.Unmarshal(payload, &decoded); err != nil {
			return nil, err
		}
		return decoded, nil
	})

	input := json.RawMessage(`{"to_status":"paid"}`)
	output, err := reg.Decode(enums.EventInvoiceStatusChanged, 1, input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outMap, ok := output.(map[string]string); !ok || outMap["to_status"] != "paid" {
		t.Fatalf("unexpected output %+v", output)
	}

	if _, err := reg.Decode(enums.EventInvoiceStatusChanged, 2, input); err == nil {
		t.Fatalf("expected error for unregistered version")
	}
}
