package risk

import (
	"errors"
	"net/http"
)

// Kind 错误分类
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidInput
	KindIrrelevantInput
	KindUpstream
	KindMalformedUpstreamResponse
)

var kindNames = map[Kind]string{
	KindUnknown:                   "unknown_error",
	KindInvalidInput:              "invalid_input",
	KindIrrelevantInput:           "irrelevant_input",
	KindUpstream:                  "upstream_error",
	KindMalformedUpstreamResponse: "malformed_upstream_response",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[KindUnknown]
}

// 返回给调用方的固定错误信息
const (
	MsgInputRequired     = "Prompt or image is required"
	MsgIrrelevantInput   = "This query does not relate to intellectual property risk. Please provide a relevant inquiry."
	MsgMalformedResponse = "API response format is incorrect"
	MsgUnknownError      = "An unknown error occurred"
)

// Error 风险检查过程中的错误，Message 可以直接返回给调用方
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Kind.String() + ": " + e.Message + ": " + e.Err.Error()
	}
	return e.Kind.String() + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is 同类错误视为相等，便于 errors.Is(err, ErrIrrelevantInput) 这样的判断
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// 用于 errors.Is 的分类哨兵
var (
	ErrInvalidInput      = &Error{Kind: KindInvalidInput}
	ErrIrrelevantInput   = &Error{Kind: KindIrrelevantInput}
	ErrUpstream          = &Error{Kind: KindUpstream}
	ErrMalformedResponse = &Error{Kind: KindMalformedUpstreamResponse}
	ErrUnknown           = &Error{Kind: KindUnknown}
)

// NewError 创建分类错误
func NewError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf 返回错误的分类，未分类错误为 KindUnknown
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// PublicMessage 返回可以直接写入响应体的错误信息
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	if err != nil && err.Error() != "" {
		return err.Error()
	}
	return MsgUnknownError
}

// HTTPStatus 输入类错误映射为400，其余映射为500
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindInvalidInput, KindIrrelevantInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
