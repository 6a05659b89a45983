package ir

// BlockComment is the rendered hint comment of one render level.
// Block is the level's stable label (sel_N, N = pre-order SELECT offset).
type BlockComment struct {
	Block   string `json:"block"`
	Comment string `json:"comment"`
}

// RenderRecord is a persisted render pass.
//
// NOTE: Seq is assigned by the store on write (logical order, never a
// wall-clock timestamp).
type RenderRecord struct {
	ID            string         `json:"id"`
	Fingerprint   string         `json:"fingerprint"`
	Digest        string         `json:"digest"`
	Plan          string         `json:"plan,omitempty"` // canonical plan JSON, empty when built in code
	EngineVersion string         `json:"engine_version"`
	Seq           int64          `json:"seq"`
	Comments      []BlockComment `json:"comments"`
}
