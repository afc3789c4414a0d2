package model

// BasicResponse is the bridge API response envelope.
type BasicResponse struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
	Data any    `json:"data,omitempty"`
}

const (
	SuccessCode = "0"
	ErrorCode   = "1"
)

// Success wraps data with the success code.
func Success(msg string, data any) BasicResponse {
	return BasicResponse{
		Code: SuccessCode,
		Msg:  msg,
		Data: data,
	}
}

// Error returns a BasicResponse with the default error code.
func Error(msg string) BasicResponse {
	return BasicResponse{
		Code: ErrorCode,
		Msg:  msg,
	}
}
