package code

// 错误码消息映射
var codeMessageMap = map[int]string{
	// 通用错误码
	ErrSuccess:         "成功",
	ErrUnknown:         "未知错误",
	ErrBind:            "请求参数绑定错误",
	ErrValidation:      "请求参数验证错误",
	ErrTokenInvalid:    "无效的认证令牌",
	ErrTooManyRequests: "请求频率过高",
	ErrForbidden:       "没有操作权限",

	// 用户相关错误码
	ErrUserNotFound:          "用户不存在",
	ErrUserAlreadyExist:      "邮箱已注册",
	ErrUserPasswordIncorrect: "邮箱或密码错误",

	// 紧急会话相关错误码
	ErrEmergencyNotFound: "紧急会话不存在",
	ErrEmergencyResolved: "紧急会话已解除",
	ErrInvalidLocation:   "位置坐标无效",

	// 录音相关错误码
	ErrRecordingNotFound: "录音不存在",
	ErrNoPayload:         "未上传音频文件",
	ErrPayloadTooLarge:   "音频文件超过大小限制",
	ErrInvalidOwner:      "上传者用户无效",

	// 通知/下游相关错误码
	ErrNotifyGateway:   "短信网关错误",
	ErrFeedUnavailable: "实时推送通道不可用",

	// 数据库相关错误码
	ErrDatabase:       "数据库错误",
	ErrRecordNotFound: "记录不存在",
}

// 错误码HTTP状态码映射
var codeStatusMap = map[int]int{
	// 通用错误码
	ErrSuccess:         StatusOK,
	ErrUnknown:         StatusInternalServerError,
	ErrBind:            StatusBadRequest,
	ErrValidation:      StatusBadRequest,
	ErrTokenInvalid:    StatusUnauthorized,
	ErrTooManyRequests: StatusTooManyRequests,
	ErrForbidden:       StatusForbidden,

	// 用户相关错误码
	ErrUserNotFound:          StatusNotFound,
	ErrUserAlreadyExist:      StatusBadRequest,
	ErrUserPasswordIncorrect: StatusUnauthorized,

	// 紧急会话相关错误码
	ErrEmergencyNotFound: StatusNotFound,
	ErrEmergencyResolved: StatusNotFound,
	ErrInvalidLocation:   StatusBadRequest,

	// 录音相关错误码
	ErrRecordingNotFound: StatusNotFound,
	ErrNoPayload:         StatusBadRequest,
	ErrPayloadTooLarge:   StatusBadRequest,
	ErrInvalidOwner:      StatusBadRequest,

	// 通知/下游相关错误码
	ErrNotifyGateway:   StatusInternalServerError,
	ErrFeedUnavailable: StatusInternalServerError,

	// 数据库相关错误码
	ErrDatabase:       StatusInternalServerError,
	ErrRecordNotFound: StatusNotFound,
}

// GetMessage 获取错误码对应的消息
func GetMessage(code int) string {
	if msg, ok := codeMessageMap[code]; ok {
		return msg
	}
	return "未知错误"
}

// GetStatus 获取错误码对应的HTTP状态码
func GetStatus(code int) int {
	if status, ok := codeStatusMap[code]; ok {
		return status
	}
	return StatusInternalServerError
}
