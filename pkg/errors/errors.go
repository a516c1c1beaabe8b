package errors

import (
	"encoding/json"
	"fmt"

	log "github.com/sirupsen/logrus"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const errorDomain = "amalgam"

// Code is the type representing a namespace error code.
type Code[MT any] struct {
	Code     uint16
	Name     string
	GrpcCode grpccodes.Code
}

// New creates a new error with the given code and the message
func (c Code[MT]) New(msg string, args ...any) TypedError[MT] {
	return &ErrorImpl[MT]{
		code:  c,
		cause: fmt.Errorf(msg, args...),
	}
}

// Wrap creates a new Error with the given code and the cause error
func (c Code[MT]) Wrap(cause error) TypedError[MT] {
	return &ErrorImpl[MT]{
		code:  c,
		cause: cause,
	}
}

func (c Code[MT]) String() string {
	return fmt.Sprintf("%s (%d)", c.Name, c.Code)
}

type Error interface {
	error
	Log() *log.Entry
	Code() uint16
	CodeName() string
	GrpcCode() grpccodes.Code
	Metadata() map[string]string
	GRPCStatus() *status.Status
}

type TypedError[MT any] interface {
	Error
	WithMetadata(MT) TypedError[MT]
}

// ErrorImpl is the default concrete implementation of TypedError.
type ErrorImpl[MT any] struct {
	code     Code[MT]
	cause    error
	metadata MT
}

func (e *ErrorImpl[MT]) Log() *log.Entry {
	return log.WithField("name", e.code.Name).
		WithField("code", e.code.Code).
		WithField("metadata", e.metadata)
}

func (e *ErrorImpl[MT]) Metadata() map[string]string {
	metadata := make(map[string]string)
	buf, err := json.Marshal(e.metadata)
	if err != nil {
		return metadata
	}
	var genericMap map[string]any
	if err := json.Unmarshal(buf, &genericMap); err != nil {
		return metadata
	}
	for k, v := range genericMap {
		vStr := ""
		if v != nil {
			vStr = fmt.Sprintf("%v", v)
		}
		metadata[k] = vStr
	}
	return metadata
}

func (e *ErrorImpl[MT]) GrpcCode() grpccodes.Code {
	return e.code.GrpcCode
}

func (e *ErrorImpl[MT]) Code() uint16 {
	return e.code.Code
}

func (e *ErrorImpl[MT]) CodeName() string {
	return e.code.Name
}

// GRPCStatus makes the error recognizable by status.Convert. The code name and
// the flattened metadata travel as an ErrorInfo detail.
func (e *ErrorImpl[MT]) GRPCStatus() *status.Status {
	st := status.New(e.code.GrpcCode, e.Error())

	metadata := e.Metadata()
	metadata["code"] = fmt.Sprintf("%d", e.code.Code)

	stWithDetails, err := st.WithDetails(&errdetails.ErrorInfo{
		Reason:   e.code.Name,
		Domain:   errorDomain,
		Metadata: metadata,
	})
	if err != nil {
		return st
	}
	return stWithDetails
}

// Error() implements the error interface.
func (e *ErrorImpl[MT]) Error() string {
	return fmt.Sprintf("%s: %s", e.code.String(), e.cause.Error())
}

func (e *ErrorImpl[MT]) Unwrap() error {
	return e.cause
}

func (e *ErrorImpl[MT]) WithMetadata(metadata MT) TypedError[MT] {
	e.metadata = metadata
	return e
}

type SenderMetadata struct {
	Sender string `json:"sender"`
}

type SignerMetadata struct {
	Signer string `json:"signer,omitempty"`
	Sender string `json:"sender,omitempty"`
}

type FundsMetadata struct {
	ExpectedDenom string   `json:"expected_denom,omitempty"`
	Funds         []string `json:"funds"`
}

type AssetMetadata struct {
	Asset string `json:"asset"`
}

type WithdrawalFeeMetadata struct {
	Fee    uint32 `json:"fee"`
	MaxFee uint32 `json:"max_fee"`
}

type WeightMetadata struct {
	Asset  string `json:"asset"`
	Weight string `json:"weight"`
}

type ArithmeticMetadata struct {
	Operation string `json:"operation"`
}

type PayloadMetadata struct {
	Payload string `json:"payload"`
}

var INTERNAL_ERROR = Code[map[string]any]{0, "INTERNAL_ERROR", grpccodes.Internal}
var UNAUTHORIZED = Code[SenderMetadata]{1, "UNAUTHORIZED", grpccodes.PermissionDenied}
var INVALID_FUNDS = Code[FundsMetadata]{2, "INVALID_FUNDS", grpccodes.InvalidArgument}

var DUPLICATE_COMPONENT = Code[AssetMetadata]{
	3,
	"DUPLICATE_COMPONENT",
	grpccodes.AlreadyExists,
}
var UNKNOWN_ASSET = Code[AssetMetadata]{4, "UNKNOWN_ASSET", grpccodes.NotFound}

var INVALID_WITHDRAWAL_FEE = Code[WithdrawalFeeMetadata]{
	5,
	"INVALID_WITHDRAWAL_FEE",
	grpccodes.InvalidArgument,
}
var NO_TAXES = Code[AssetMetadata]{6, "NO_TAXES", grpccodes.FailedPrecondition}
var INVALID_WEIGHT = Code[WeightMetadata]{7, "INVALID_WEIGHT", grpccodes.InvalidArgument}

var ARITHMETIC_ERROR = Code[ArithmeticMetadata]{
	8,
	"ARITHMETIC_ERROR",
	grpccodes.FailedPrecondition,
}

var ALREADY_INSTANTIATED = Code[any]{9, "ALREADY_INSTANTIATED", grpccodes.AlreadyExists}
var NOT_INSTANTIATED = Code[any]{10, "NOT_INSTANTIATED", grpccodes.FailedPrecondition}
var INVALID_PAYLOAD = Code[PayloadMetadata]{11, "INVALID_PAYLOAD", grpccodes.InvalidArgument}
var INVALID_REQUEST = Code[any]{12, "INVALID_REQUEST", grpccodes.InvalidArgument}
var LEDGER_REJECTED = Code[any]{13, "LEDGER_REJECTED", grpccodes.FailedPrecondition}
var FAUCET_DISABLED = Code[any]{14, "FAUCET_DISABLED", grpccodes.Unimplemented}
var UNAUTHENTICATED = Code[SignerMetadata]{15, "UNAUTHENTICATED", grpccodes.Unauthenticated}
