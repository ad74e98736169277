package service

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"sort"

	"strategy-backtester/internal/model"
	"strategy-backtester/internal/strategy"
)

// CacheKey hashes everything that determines a result: the bars, the
// strategy kind with its resolved params, and the output options. Two
// requests with the same key produce identical results.
func CacheKey(bars []model.PriceBar, cfg strategy.Config, includeSignals bool) string {
	h := sha256.New()
	var buf [8]byte
	putU64 := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		h.Write(buf[:])
	}
	putF := func(v float64) { putU64(math.Float64bits(v)) }

	h.Write([]byte(cfg.Kind()))
	h.Write([]byte{0})

	params := cfg.Params()
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		h.Write([]byte(name))
		h.Write([]byte{'='})
		putF(params[name])
	}

	if includeSignals {
		h.Write([]byte{1})
	} else {
		h.Write([]byte{0})
	}

	putU64(uint64(len(bars)))
	for i := range bars {
		b := &bars[i]
		putU64(uint64(b.TS))
		putF(b.Open)
		putF(b.High)
		putF(b.Low)
		putF(b.Close)
		putF(b.Volume)
	}
	return hex.EncodeToString(h.Sum(nil))
}
