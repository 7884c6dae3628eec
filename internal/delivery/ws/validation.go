package ws

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/mmuslimabdulj/campus-realtime/internal/domain"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// decodeInbound parses an envelope and its typed payload.
// The envelope is returned even on failure so errors can reference it.
func decodeInbound(raw []byte) (domain.Message, domain.Inbound, error) {
	var msg domain.Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return msg, nil, fmt.Errorf("%w: malformed frame", domain.ErrInvalidEvent)
	}
	if len(msg.ID) > domain.MaxIDLength {
		return msg, nil, fmt.Errorf("%w: event id too long", domain.ErrInvalidEvent)
	}

	payload, ok := domain.NewInbound(msg.Type)
	if !ok {
		return msg, nil, fmt.Errorf("%w: unknown type %q", domain.ErrInvalidEvent, msg.Type)
	}

	if len(msg.Payload) > 0 && string(msg.Payload) != "null" {
		if err := json.Unmarshal(msg.Payload, payload); err != nil {
			return msg, nil, fmt.Errorf("%w: malformed %s payload", domain.ErrInvalidEvent, msg.Type)
		}
	}

	if err := validate.Struct(payload); err != nil {
		return msg, nil, fmt.Errorf("%w: %s", domain.ErrInvalidEvent, describe(err))
	}

	// validator counts runes for max on strings; reject invalid UTF-8 outright
	if p, ok := payload.(*domain.SendMessagePayload); ok && !utf8.ValidString(p.Text) {
		return msg, nil, fmt.Errorf("%w: text is not valid UTF-8", domain.ErrInvalidEvent)
	}

	return msg, payload, nil
}

// describe turns validator errors into a short client-facing reason
func describe(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	if fe.Param() != "" {
		return fmt.Sprintf("field %s failed %s=%s", fe.Field(), fe.Tag(), fe.Param())
	}
	return fmt.Sprintf("field %s failed %s", fe.Field(), fe.Tag())
}
