package service

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// barName: 1 -> "1m", 60 -> "1H", 1440 -> "1D".
func barName(tf time.Duration) string {
	m := int(tf / time.Minute)
	switch {
	case m <= 0:
		return "1m"
	case m%1440 == 0:
		return fmt.Sprintf("%dD", m/1440)
	case m%60 == 0:
		return fmt.Sprintf("%dH", m/60)
	default:
		return fmt.Sprintf("%dm", m)
	}
}

// bucketStart округляет unix-время вниз до начала свечи.
func bucketStart(t time.Time, tf time.Duration) int64 {
	sec := int64(tf / time.Second)
	if sec <= 0 {
		sec = 60
	}
	u := t.Unix()
	return u - u%sec
}

func round5(v float64) float64 {
	return math.Round(v*1e5) / 1e5
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}
