package handlers

import (
	"encoding/json"
	"fmt"

	"github.com/amalgam-labs/amalgamd/internal/core/application"
	"github.com/amalgam-labs/amalgamd/internal/core/domain"
	"github.com/amalgam-labs/amalgamd/pkg/errors"
	"github.com/amalgam-labs/amalgamd/pkg/fixedpoint"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// request is the envelope of the Instantiate and Execute calls.
type request struct {
	Sender string          `json:"sender"`
	Funds  []domain.Coin   `json:"funds"`
	Msg    json.RawMessage `json:"msg"`
}

func (r request) info() application.MessageInfo {
	return application.MessageInfo{Sender: r.Sender, Funds: r.Funds}
}

type fundRequest struct {
	Asset   domain.Asset      `json:"asset"`
	Address string            `json:"address"`
	Amount  fixedpoint.Amount `json:"amount"`
}

type eventStreamRequest struct {
	Types []string `json:"types"`
}

func decode(s *structpb.Struct, out any) errors.Error {
	if s == nil {
		return errors.INVALID_REQUEST.New("missing request")
	}
	buf, err := protojson.Marshal(s)
	if err != nil {
		return errors.INVALID_REQUEST.Wrap(err)
	}
	if err := json.Unmarshal(buf, out); err != nil {
		return errors.INVALID_REQUEST.New("invalid request: %s", err)
	}
	return nil
}

func encode(v any) (*structpb.Struct, error) {
	buf, err := json.Marshal(v)
	if err != nil {
		return nil, errors.INTERNAL_ERROR.Wrap(fmt.Errorf("failed to encode response: %w", err))
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(buf, out); err != nil {
		return nil, errors.INTERNAL_ERROR.Wrap(fmt.Errorf("failed to encode response: %w", err))
	}
	return out, nil
}

func parseRequest(s *structpb.Struct, msg any) (*request, errors.Error) {
	var req request
	if err := decode(s, &req); err != nil {
		return nil, err
	}
	if req.Sender == "" {
		return nil, errors.INVALID_REQUEST.New("missing sender")
	}
	if len(req.Msg) == 0 {
		return nil, errors.INVALID_REQUEST.New("missing msg")
	}
	if err := json.Unmarshal(req.Msg, msg); err != nil {
		return nil, errors.INVALID_REQUEST.New("invalid msg: %s", err)
	}
	return &req, nil
}

func parseFundRequest(s *structpb.Struct) (*fundRequest, errors.Error) {
	var req fundRequest
	if err := decode(s, &req); err != nil {
		return nil, err
	}
	if req.Address == "" {
		return nil, errors.INVALID_REQUEST.New("missing address")
	}
	if err := req.Asset.Validate(); err != nil {
		return nil, errors.INVALID_REQUEST.Wrap(err)
	}
	if req.Amount.IsZero() {
		return nil, errors.INVALID_REQUEST.New("amount must be greater than zero")
	}
	return &req, nil
}

func parseEventTypes(s *structpb.Struct) ([]string, errors.Error) {
	if s == nil {
		return nil, nil
	}
	var req eventStreamRequest
	if err := decode(s, &req); err != nil {
		return nil, err
	}
	return req.Types, nil
}

// response is the wire form of application.Response: each instruction is
// keyed by its type, ie. {"bank_send": {...}}.
type response struct {
	Messages   []map[domain.InstructionType]domain.Instruction `json:"messages"`
	Attributes []application.Attribute                         `json:"attributes"`
}

func toResponse(r *application.Response) response {
	messages := make([]map[domain.InstructionType]domain.Instruction, 0, len(r.Messages))
	for _, ix := range r.Messages {
		messages = append(messages, map[domain.InstructionType]domain.Instruction{ix.Type(): ix})
	}
	attributes := r.Attributes
	if attributes == nil {
		attributes = []application.Attribute{}
	}
	return response{messages, attributes}
}
