package cache

import (
	"encoding/binary"
	"strconv"
	"time"
)

// 本地持久化存储的值格式：8 字节大端过期时间（UnixNano，0 表示不过期）+ 原始值

func encodeEntry(val []byte, ttl time.Duration, now time.Time) []byte {
	buf := make([]byte, 8+len(val))
	if ttl > 0 {
		binary.BigEndian.PutUint64(buf, uint64(now.Add(ttl).UnixNano()))
	}
	copy(buf[8:], val)
	return buf
}

// decodeEntry 返回值的拷贝，格式错误或已过期时 ok 为 false
func decodeEntry(buf []byte, now time.Time) (val []byte, ok bool) {
	if len(buf) < 8 {
		return nil, false
	}
	if expireAt := binary.BigEndian.Uint64(buf); expireAt != 0 && now.UnixNano() >= int64(expireAt) {
		return nil, false
	}
	val = make([]byte, len(buf)-8)
	copy(val, buf[8:])
	return val, true
}

// nextCounter 计数器值以十进制文本保存，解析失败时从 0 开始
func nextCounter(buf []byte, now time.Time) (int64, []byte) {
	var n int64
	if val, ok := decodeEntry(buf, now); ok {
		n, _ = strconv.ParseInt(string(val), 10, 64)
	}
	n++
	return n, encodeEntry([]byte(strconv.FormatInt(n, 10)), 0, now)
}

func ttlOr(ttl, defaultTTL time.Duration) time.Duration {
	if ttl == 0 {
		return defaultTTL
	}
	return ttl
}
