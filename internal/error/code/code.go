package code

// HTTP状态码.
const (
	// StatusOK - 200: 成功.
	StatusOK = 200
	// StatusBadRequest - 400: 请求参数错误.
	StatusBadRequest = 400
	// StatusUnauthorized - 401: 未授权.
	StatusUnauthorized = 401
	// StatusForbidden - 403: 禁止访问.
	StatusForbidden = 403
	// StatusNotFound - 404: 资源不存在.
	StatusNotFound = 404
	// StatusInternalServerError - 500: 服务器内部错误.
	StatusInternalServerError = 500
	// StatusTooManyRequests - 429: 请求过多.
	StatusTooManyRequests = 429
)

// 通用错误码 (100xxx).
const (
	// ErrSuccess - 200: 成功.
	ErrSuccess int = iota + 100000
	// ErrUnknown - 500: 未知错误.
	ErrUnknown
	// ErrBind - 400: 请求参数绑定错误.
	ErrBind
	// ErrValidation - 400: 请求参数验证错误.
	ErrValidation
	// ErrTokenInvalid - 401: 令牌无效.
	ErrTokenInvalid
	// ErrTooManyRequests - 429: 请求频率过高.
	ErrTooManyRequests
	// ErrForbidden - 403: 没有操作权限.
	ErrForbidden
)

// 用户相关错误码 (101xxx).
const (
	// ErrUserNotFound - 404: 用户不存在.
	ErrUserNotFound int = iota + 101000
	// ErrUserAlreadyExist - 400: 邮箱已注册.
	ErrUserAlreadyExist
	// ErrUserPasswordIncorrect - 401: 邮箱或密码错误.
	ErrUserPasswordIncorrect
)

// 紧急会话相关错误码 (106xxx).
const (
	// ErrEmergencyNotFound - 404: 紧急会话不存在.
	ErrEmergencyNotFound int = iota + 106000
	// ErrEmergencyResolved - 404: 紧急会话已解除.
	ErrEmergencyResolved
	// ErrInvalidLocation - 400: 位置坐标无效.
	ErrInvalidLocation
)

// 录音相关错误码 (107xxx).
const (
	// ErrRecordingNotFound - 404: 录音不存在.
	ErrRecordingNotFound int = iota + 107000
	// ErrNoPayload - 400: 未上传音频文件.
	ErrNoPayload
	// ErrPayloadTooLarge - 400: 音频文件超过大小限制.
	ErrPayloadTooLarge
	// ErrInvalidOwner - 400: 上传者用户无效.
	ErrInvalidOwner
)

// 通知/下游相关错误码 (108xxx).
const (
	// ErrNotifyGateway - 500: 短信网关错误.
	ErrNotifyGateway int = iota + 108000
	// ErrFeedUnavailable - 500: 实时推送通道不可用.
	ErrFeedUnavailable
)

// 数据库相关错误码 (105xxx).
const (
	// ErrDatabase - 500: 数据库错误.
	ErrDatabase int = iota + 105000
	// ErrRecordNotFound - 404: 记录不存在.
	ErrRecordNotFound
)
