package logger

import (
	"hash/fnv"
	"strconv"
	"strings"
	"sync"
)

// ratioSampler passes numerator out of every denominator events.
// A zero ratio disables sampling and lets everything through.
type ratioSampler struct {
	mu      sync.Mutex
	num     uint32
	den     uint32
	counter uint32
}

func newRatioSampler(numerator, denominator int) *ratioSampler {
	s := &ratioSampler{}
	s.Set(numerator, denominator)
	return s
}

// Set replaces the ratio and restarts the counter.
func (s *ratioSampler) Set(numerator, denominator int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counter = 0
	if numerator <= 0 || denominator <= 0 {
		s.num, s.den = 0, 0
		return
	}
	s.num = uint32(min(numerator, denominator))
	s.den = uint32(denominator)
}

// Allow reports whether the next event in sequence passes.
func (s *ratioSampler) Allow() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.den == 0 {
		return true
	}
	s.counter = s.counter%s.den + 1
	return s.counter <= s.num
}

// AllowKey gives a stable answer per key, so one conversation is either
// traced end to end or not at all.
func (s *ratioSampler) AllowKey(key string) bool {
	s.mu.Lock()
	num, den := s.num, s.den
	s.mu.Unlock()
	if den == 0 {
		return true
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return h.Sum32()%den < num
}

// parseRatioSpec accepts "1/50", "50" (one in fifty) or "2%".
// Anything unparsable or non-positive yields 0, 0.
func parseRatioSpec(spec string) (int, int) {
	spec = strings.TrimSpace(spec)
	if pct, ok := strings.CutSuffix(spec, "%"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(pct))
		if err != nil || n <= 0 {
			return 0, 0
		}
		return min(n, 100), 100
	}
	if a, b, ok := strings.Cut(spec, "/"); ok {
		num, err1 := strconv.Atoi(strings.TrimSpace(a))
		den, err2 := strconv.Atoi(strings.TrimSpace(b))
		if err1 != nil || err2 != nil || num <= 0 || den <= 0 {
			return 0, 0
		}
		return num, den
	}
	if v, err := strconv.Atoi(spec); err == nil && v > 0 {
		return 1, v
	}
	return 0, 0
}
