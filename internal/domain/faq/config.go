package faq

import "time"

// Config holds runtime knobs for the FAQ service.
type Config struct {
	MinQueryLength      int
	MaxQueryLength      int
	TopK                int
	SimilarityThreshold float64
	ContextLimit        int
	CacheSize           int
	Prompt              string
	FallbackAnswer      string
	TopRecommendations  int
	SharedCacheTTL      time.Duration
	GenerateTimeout     time.Duration
}
