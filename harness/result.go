// Package harness runs the pvc solver binaries and scrapes their output.
package harness

// Measurement holds one benchmark trial: a sequential and a parallel run
// of the same problem size.
type Measurement struct {
	N       int     `json:"N"`
	T       int     `json:"T"`
	TimeSeq float64 `json:"timeSeq"`
	TimePar float64 `json:"timePar"`
	Error   bool    `json:"error"`
}

// Capture is the stdout of one solver invocation, split into the result
// payload and the trailing timing annotation.
type Capture struct {
	Payload    []byte
	Annotation []byte
	Elapsed    float64
}
