package core

// Size describes the interior dimensions of a simulation grid.
type Size struct {
	W int
	H int
}

// Sim defines the contract the viewer and tools drive a simulation through.
type Sim interface {
	Name() string
	Size() Size
	Reset(seed int64)
	Step(dt float32) error
	Render() *Field
}
