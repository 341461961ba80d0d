package codec

import (
	"encoding/json"
	"errors"

	"github.com/aretw0/graff/pkg/domain"
)

// Request names understood by the backend.
const (
	OpRegisterRobot   = "registerRobot"
	OpRegisterSession = "registerSession"
	OpAddVariable     = "addVariable"
	OpAddFactor       = "addFactor"
	OpBatchSolve      = "batchSolve"
	OpGetVarMAPKDE    = "GetVarMAPKDE"
	OpGetVarMAPMax    = "GetVarMAPMax"
	OpGetVarMAPMean   = "GetVarMAPMean"
	OpVarQuery        = "varQuery"
	OpList            = "ls"
	OpShutdown        = "shutdown"
	OpToggleMock      = "toggleMockServer"
	OpGetStatus       = "getStatus"
)

// Envelope and reply field names.
const (
	KeyRequest  = "request"
	KeyPayload  = "payload"
	KeyStatus   = "status"
	KeyMessage  = "message"
	KeyEstimate = "estimate"
	KeyRobot    = "robot"
	KeySession  = "session"
	KeyTag      = "tag"

	// legacyKeyType is the discriminator of the flat pre-payload envelope.
	legacyKeyType = "type"
)

// Reply status values. Only StatusOK means success.
const (
	StatusOK    = "OK"
	StatusError = "ERROR"
)

// ErrLegacyEnvelope is wrapped by the DecodeError returned for flat envelopes.
var ErrLegacyEnvelope = errors.New("legacy flat envelope is not supported")

// Request is an outbound envelope. A nil Payload is sent as an empty document.
type Request struct {
	Op      string
	Payload any
}

// NewRequest builds a request envelope.
func NewRequest(op string, payload any) Request {
	return Request{Op: op, Payload: payload}
}

// Document returns the envelope as a document.
func (r Request) Document() domain.Document {
	payload := r.Payload
	if payload == nil {
		payload = domain.Document{}
	}
	return domain.Document{KeyRequest: r.Op, KeyPayload: payload}
}

// PayloadDocument returns the payload when it is a document.
func (r Request) PayloadDocument() (domain.Document, bool) {
	return asDocument(r.Payload)
}

// PayloadString returns the payload when it is a string (variable queries).
func (r Request) PayloadString() (string, bool) {
	s, ok := r.Payload.(string)
	return s, ok
}

// MarshalRequest serializes the envelope for the wire.
func MarshalRequest(r Request) ([]byte, error) {
	return json.Marshal(r.Document())
}

// DecodeRequest parses an inbound envelope on the serving side.
func DecodeRequest(data []byte) (Request, error) {
	doc, err := unmarshalDocument(data)
	if err != nil {
		return Request{}, err
	}
	op, ok := doc[KeyRequest].(string)
	if !ok || op == "" {
		if _, legacy := doc[legacyKeyType]; legacy {
			return Request{}, &domain.DecodeError{Field: KeyRequest, Err: ErrLegacyEnvelope}
		}
		return Request{}, &domain.DecodeError{Field: KeyRequest, Reason: "missing request name"}
	}
	payload := doc[KeyPayload]
	if d, ok := asDocument(payload); ok {
		payload = d
	}
	return Request{Op: op, Payload: payload}, nil
}

// Reply is an inbound envelope.
type Reply struct {
	doc domain.Document
}

// NewReply wraps a document as a reply.
func NewReply(doc domain.Document) Reply {
	if doc == nil {
		doc = domain.Document{}
	}
	return Reply{doc: doc}
}

// OKReply builds a successful reply carrying extra fields.
func OKReply(fields domain.Document) Reply {
	doc := domain.Document{KeyStatus: StatusOK}
	for k, v := range fields {
		doc[k] = v
	}
	return Reply{doc: doc}
}

// ErrorReply builds a failed reply with a message.
func ErrorReply(message string) Reply {
	return Reply{doc: domain.Document{KeyStatus: StatusError, KeyMessage: message}}
}

// Status returns the status field, or "" when it is missing or not a string.
func (r Reply) Status() string {
	s, _ := r.doc[KeyStatus].(string)
	return s
}

// OK reports whether the backend confirmed the request.
func (r Reply) OK() bool { return r.Status() == StatusOK }

// Message returns the optional human-readable message.
func (r Reply) Message() string {
	s, _ := r.doc[KeyMessage].(string)
	return s
}

// Get returns a raw reply field.
func (r Reply) Get(key string) (any, bool) {
	v, ok := r.doc[key]
	return v, ok
}

// Document returns the underlying reply document.
func (r Reply) Document() domain.Document { return r.doc }

// Err returns nil for an OK reply and a *domain.RejectedError otherwise.
func (r Reply) Err(op string) error {
	if r.OK() {
		return nil
	}
	return &domain.RejectedError{
		Op:      op,
		Status:  r.Status(),
		Message: r.Message(),
		Reply:   r.doc,
	}
}

// MarshalReply serializes a reply on the serving side.
func MarshalReply(r Reply) ([]byte, error) {
	return json.Marshal(r.doc)
}

// UnmarshalReply parses an inbound reply. Anything but a JSON object is a DecodeError.
func UnmarshalReply(data []byte) (Reply, error) {
	doc, err := unmarshalDocument(data)
	if err != nil {
		return Reply{}, err
	}
	return Reply{doc: doc}, nil
}

func unmarshalDocument(data []byte) (domain.Document, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &domain.DecodeError{Reason: "malformed document", Err: err}
	}
	doc, ok := asDocument(raw)
	if !ok {
		return nil, &domain.DecodeError{Reason: "envelope is not an object"}
	}
	return doc, nil
}

func asDocument(v any) (domain.Document, bool) {
	switch t := v.(type) {
	case domain.Document:
		return t, true
	case map[string]any:
		return domain.Document(t), true
	}
	return nil, false
}
