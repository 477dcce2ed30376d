package models

import (
	"encoding/json"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-bankconnect/core"
)

// Decode turns a raw JSON object into one typed entity and attaches the
// session back reference. A nil or JSON-null payload decodes to nil without
// constructing anything.
func Decode[E any, P interface {
	*E
	Entity
}](nav Navigator, raw json.RawMessage) (*E, error) {
	if isNullPayload(raw) {
		return nil, nil
	}
	entity := new(E)
	if err := json.Unmarshal(raw, entity); err != nil {
		return nil, decodeError(err)
	}
	P(entity).Attach(nav)
	return entity, nil
}

// DecodeCollection extracts collectionKey from a raw JSON object and decodes
// each element. A missing key or a nil payload yields an empty slice.
func DecodeCollection[E any, P interface {
	*E
	Entity
}](nav Navigator, raw json.RawMessage, collectionKey string) ([]*E, error) {
	if isNullPayload(raw) {
		return []*E{}, nil
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, decodeError(err)
	}
	elements, ok := envelope[collectionKey]
	if !ok || isNullPayload(elements) {
		return []*E{}, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(elements, &items); err != nil {
		return nil, decodeError(err)
	}
	entities := make([]*E, 0, len(items))
	for _, item := range items {
		entity, err := Decode[E, P](nav, item)
		if err != nil {
			return nil, err
		}
		if entity != nil {
			entities = append(entities, entity)
		}
	}
	return entities, nil
}

func isNullPayload(raw json.RawMessage) bool {
	switch string(raw) {
	case "", "null":
		return true
	}
	return false
}

func decodeError(source error) error {
	message := "models: invalid entity payload"
	if source != nil {
		message = source.Error()
	}
	return goerrors.Wrap(source, goerrors.CategoryExternal, message).
		WithTextCode(core.ErrorCodeJSON)
}
