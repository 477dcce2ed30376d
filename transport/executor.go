package transport

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/goliatone/go-bankconnect/core"
)

// apiErrorEnvelope is the payload the server returns with a 400 response.
type apiErrorEnvelope struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// Execute sends one request over the channel and classifies the response by
// HTTP status. A 404 and an empty success body both yield (nil, nil); callers
// treat that as "no such resource".
func Execute(ctx context.Context, channel core.Channel, req core.TransportRequest) (json.RawMessage, error) {
	if channel == nil {
		return nil, errChannelMisconfigured("transport: execute requires a channel")
	}

	res, err := channel.Do(ctx, req)
	if err != nil {
		return nil, err
	}

	switch {
	case res.StatusCode >= 200 && res.StatusCode < 300:
		return decodeSuccess(res.Body)
	case res.StatusCode == http.StatusBadRequest:
		return nil, decodeBadRequest(res.Body)
	case res.StatusCode == http.StatusUnauthorized:
		return nil, errUnauthorized()
	case res.StatusCode == http.StatusForbidden:
		return nil, errForbidden()
	case res.StatusCode == http.StatusNotFound:
		return nil, nil
	case res.StatusCode == http.StatusMethodNotAllowed:
		return nil, errMethodNotAllowed()
	case res.StatusCode == http.StatusServiceUnavailable:
		return nil, errServiceUnavailable()
	default:
		return nil, errInternal()
	}
}

func decodeSuccess(body []byte) (json.RawMessage, error) {
	if len(body) == 0 {
		return nil, nil
	}
	var probe any
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil, errJSONDecode(err)
	}
	return json.RawMessage(body), nil
}

// decodeBadRequest surfaces the server's own error wording when the envelope
// parses, and a json_error when it does not.
func decodeBadRequest(body []byte) error {
	var envelope apiErrorEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return errJSONDecode(err)
	}
	return errAPI(envelope.Error, envelope.ErrorDescription)
}
