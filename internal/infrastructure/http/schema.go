package httpapi

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const paymentRequestSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["amount", "currency", "paymentMethod", "details"],
  "properties": {
    "amount": {
      "oneOf": [
        {"type": "number", "exclusiveMinimum": 0},
        {"type": "string", "pattern": "^[0-9]+(\\.[0-9]+)?$"}
      ]
    },
    "currency": {"type": "string", "pattern": "^[A-Za-z]{3}$"},
    "paymentMethod": {"type": "string", "enum": ["CREDIT_CARD", "BANK_TRANSFER"]},
    "details": {
      "type": "object",
      "oneOf": [
        {
          "required": ["type", "paymentMethodId"],
          "properties": {
            "type": {"const": "CREDIT_CARD"},
            "paymentMethodId": {"type": "string", "minLength": 1},
            "cardHolder": {"type": "string"},
            "expiryMonth": {"type": "string"},
            "expiryYear": {"type": "string"}
          }
        },
        {
          "required": ["type", "iban", "accountHolder", "email"],
          "properties": {
            "type": {"const": "BANK_TRANSFER"},
            "iban": {"type": "string", "minLength": 1},
            "accountHolder": {"type": "string", "minLength": 1},
            "email": {"type": "string", "format": "email"},
            "bankName": {"type": "string"}
          }
        }
      ]
    }
  }
}`

var paymentRequestLoader = gojsonschema.NewStringLoader(paymentRequestSchema)

func validateJSONSchema(schemaLoader gojsonschema.JSONLoader, body []byte) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("malformed request body: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("request does not conform to schema: %s", strings.Join(msgs, "; "))
	}
	return nil
}
