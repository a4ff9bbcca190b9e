package fir

// DefaultMaxEvents bounds the pipeline event log when Options.MaxEvents
// is zero.
const DefaultMaxEvents = 64

// Memory accounting
const (
	bytesPerSample = 8 // Sample is an int64
	bytesPerOffset = 8 // register offset per stored tap
)

// Group delay of a symmetric set is half its expanded length.
const groupDelayDivisor = 2

// Convenience constructor defaults
const (
	defaultDataWidth  = 16
	defaultDataFract  = 15
	defaultCoeffWidth = 18
	defaultCoeffFract = 17
	halfbandRate      = 2
)
