package cache

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"
)

// Envelope 是落盘的缓存条目。Data 保持为原始 JSON，直到调用方给出目标类型。
type Envelope struct {
	Data       json.RawMessage `json:"data"`
	Timestamp  float64         `json:"timestamp"`
	ExpiryTime float64         `json:"expiryTime"`
}

// StoredAt 返回写入时间。
func (e Envelope) StoredAt() time.Time {
	sec := int64(e.Timestamp)
	nsec := int64((e.Timestamp - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec)
}

// TTL 返回条目的生存时间。
func (e Envelope) TTL() time.Duration {
	return time.Duration(e.ExpiryTime * float64(time.Second))
}

// Expired 判断条目在 now 时刻是否已过期：now - storedAt 严格大于 TTL。
func (e Envelope) Expired(now time.Time) bool {
	elapsed := float64(now.UnixNano())/float64(time.Second) - e.Timestamp
	return elapsed > e.ExpiryTime
}

// header 仅解析 sweep 需要的元数据，payload 不做解码。
type header struct {
	Data       json.RawMessage `json:"data"`
	Timestamp  *float64        `json:"timestamp"`
	ExpiryTime *float64        `json:"expiryTime"`
}

func (h header) envelope() (Envelope, error) {
	if len(h.Data) == 0 || h.Timestamp == nil || h.ExpiryTime == nil {
		return Envelope{}, errMalformedEnvelope
	}
	return Envelope{Data: h.Data, Timestamp: *h.Timestamp, ExpiryTime: *h.ExpiryTime}, nil
}

// IsNull 判断原始 JSON 是否为字面量 null。null 不是任何值类型的合法表示。
func IsNull(raw []byte) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func newEnvelope(data []byte, now time.Time, ttl time.Duration) Envelope {
	return Envelope{
		Data:       data,
		Timestamp:  float64(now.UnixNano()) / float64(time.Second),
		ExpiryTime: ttl.Seconds(),
	}
}

// 淘汰原因，透传给 Hooks.Evicted。
const (
	ReasonExpired = "expired"
	ReasonCorrupt = "corrupt"
	ReasonDecode  = "decode"
)

var (
	errMalformedEnvelope = errors.New("malformed cache envelope")
	errInvalidKey        = errors.New("invalid cache key")
)

// SweepStats 汇总一次 Sweep 的结果，供启动日志使用。
type SweepStats struct {
	Scanned int
	Expired int
	Corrupt int
	Kept    int

	// StaleTemps 是被清理的残留临时文件数，不计入 Scanned。
	StaleTemps int
}
