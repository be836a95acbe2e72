package store

import "context"

// KV 键名。数据和版本号是两条独立记录，CAS 把两者绑定为一个原子单元。
const (
	TemplateSetsKey        = "patternstudio:template_sets"
	TemplateSetsVersionKey = "patternstudio:template_sets:version"
)

// VersionedStore 带版本号的 KV 存储协作方。
// CompareAndSwap 在版本匹配时写入数据并自增版本号，返回新版本；
// 不匹配时返回 ok=false 且不产生任何写入。版本键不存在按 "1" 处理，
// 以兼容尚未引入版本号时写入的旧数据。
type VersionedStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	MGet(ctx context.Context, keys ...string) ([]*string, error)
	CompareAndSwap(ctx context.Context, versionKey, dataKey, expectedVersion, value string) (newVersion string, ok bool, err error)
}
