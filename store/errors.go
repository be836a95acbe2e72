package store

import "errors"

// 统一的错误分类，handler 层用 errors.Is 映射为 HTTP 状态码。
var (
	// ErrConflict 乐观锁版本不匹配，调用方需要重新拉取后重试
	ErrConflict = errors.New("version conflict")
	// ErrVersionRequired 写操作缺少期望版本号
	ErrVersionRequired = errors.New("expected version required")
	// ErrNotFound 目标记录不存在
	ErrNotFound = errors.New("not found")
	// ErrDuplicateName 同一范围内名称重复
	ErrDuplicateName = errors.New("duplicate name")
	// ErrTooMuchContention create 重试次数耗尽，提示用户稍后再试
	ErrTooMuchContention = errors.New("too much contention")
)
