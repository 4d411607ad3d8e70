package models

// Signal is a transient entry snapshot, recomputed on every evaluation.
// It is never persisted.
type Signal struct {
	Price        float64
	ATMIV        float64
	RollingIV    float64
	IVSpike      bool
	Sweep        bool
	IVSufficient bool
	EntryReady   bool

	// Synthetic marks a signal built from the labeled demo data path
	// rather than live exchange reads.
	Synthetic bool
}
