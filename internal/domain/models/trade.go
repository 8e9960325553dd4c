package models

// Trade is a single print from a streaming feed.
type Trade struct {
	Symbol    string
	Timestamp int64 // unix ms
	Price     float64
	Volume    float64
}
