package util

import (
	"time"
)

// Request timeout tiers. Every provider and store call runs under one of
// these so nothing blocks indefinitely.
const (
	ShortReqTimeout = 30 * time.Second
	MedReqTimeout   = 5 * time.Minute
	LongReqTimeout  = 60 * time.Minute
)
