//go:build !opencl

package fluid

import "errors"

type clPipeline struct{}

func newCLPipeline(s *Sim, preferFP16 bool) (*clPipeline, error) {
	return nil, errors.New("OpenCL support is not enabled; rebuild with -tags opencl")
}

func (p *clPipeline) step(s *Sim, dt float64, splats []Splat) error {
	return errors.New("OpenCL pipeline unavailable")
}

func (p *clPipeline) realloc(s *Sim) error { return nil }

func (p *clPipeline) invalidate() {}

func (p *clPipeline) Close() {}

func (p *clPipeline) DeviceName() string { return "" }

func (p *clPipeline) usesFP16() bool { return false }
