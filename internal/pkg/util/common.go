package util

import (
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var (
	srcMu sync.Mutex
	src   = rand.NewSource(time.Now().UnixNano())
)

// 生成随机字符串
func RandString(n int) string {
	const letterBytes = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	const (
		letterIdxBits = 5
		letterIdxMask = 1<<letterIdxBits - 1
		letterIdxMax  = 63 / letterIdxBits
	)

	srcMu.Lock()
	defer srcMu.Unlock()

	b := make([]byte, n)
	for i, cache, remain := n-1, src.Int63(), letterIdxMax; i >= 0; {
		if remain == 0 {
			cache, remain = src.Int63(), letterIdxMax
		}
		if idx := int(cache & letterIdxMask); idx < len(letterBytes) {
			b[i] = letterBytes[idx]
			i--
		}
		cache >>= letterIdxBits
		remain--
	}
	return string(b)
}

// ParseAmount parses a decimal amount from a request string.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "parse amount %q", s)
	}
	return d, nil
}

// ParseOptionalID parses an optional numeric id, empty means absent.
func ParseOptionalID(s string) (*uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "global" {
		return nil, nil
	}
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return nil, errors.Wrapf(err, "parse id %q", s)
	}
	return &id, nil
}
