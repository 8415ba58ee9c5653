package services

import "errors"

// 服务层哨兵错误，由控制器映射为对应的业务错误码
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrEmailAlreadyExist = errors.New("email already registered")
	ErrPasswordIncorrect = errors.New("password incorrect")

	// 会话不存在，或已解除后被当作不存在处理
	ErrSessionNotFound = errors.New("emergency session not found")

	ErrRecordingNotFound  = errors.New("recording not found")
	ErrNoPayload          = errors.New("no audio payload provided")
	ErrPayloadTooLarge    = errors.New("audio payload exceeds size limit")
	ErrRecordingForbidden = errors.New("recording belongs to another user")
)
