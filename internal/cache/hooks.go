package cache

// Hooks 接收缓存内部被吞掉的事件。实现必须廉价且不阻塞。
type Hooks interface {
	// Stored 在条目成功落盘后调用。
	Stored(key string)
	// Hit 在 Load 返回有效数据时调用。
	Hit(key string)
	// Evicted 在读取或 sweep 删除条目时调用，reason 为 Reason* 常量之一。
	Evicted(key, reason string)
	// WriteFailed 报告 Save 过程中的错误，错误不会返回给调用方。
	WriteFailed(key string, err error)
	// ReadFailed 报告除"不存在"之外的读取/删除错误。
	ReadFailed(key string, err error)
}

// NopHooks 是默认实现。
type NopHooks struct{}

func (NopHooks) Stored(string)             {}
func (NopHooks) Hit(string)                {}
func (NopHooks) Evicted(string, string)    {}
func (NopHooks) WriteFailed(string, error) {}
func (NopHooks) ReadFailed(string, error)  {}
