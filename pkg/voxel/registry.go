package voxel

import "fmt"

// Block is a block type id. Zero is air.
type Block uint8

const (
	Air Block = iota
	Grass
	Dirt
	ShinyDirt
	Water

	// Unloaded stands in for blocks of chunks that were moved to a store and
	// not loaded back yet. It is solid so that bodies never fall through
	// terrain that is merely absent.
	Unloaded Block = 255
)

type BlockInfo struct {
	Name  string
	Solid bool
	Fluid bool
}

var ErrUnknownBlock = fmt.Errorf("unknown block")

// Registry maps block ids to their physical properties.
type Registry struct {
	blocks [256]BlockInfo
	known  [256]bool
	names  map[string]Block
}

func NewRegistry() *Registry {
	r := &Registry{
		names: make(map[string]Block),
	}
	r.Register(Air, BlockInfo{Name: "air"})
	r.Register(Unloaded, BlockInfo{Name: "unloaded", Solid: true})
	return r
}

// DefaultRegistry knows the blocks of the test worlds.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(Grass, BlockInfo{Name: "grass", Solid: true})
	r.Register(Dirt, BlockInfo{Name: "dirt", Solid: true})
	r.Register(ShinyDirt, BlockInfo{Name: "shinyDirt", Solid: true})
	r.Register(Water, BlockInfo{Name: "water", Fluid: true})
	return r
}

func (r *Registry) Register(id Block, info BlockInfo) {
	r.blocks[id] = info
	r.known[id] = true
	r.names[info.Name] = id
}

func (r *Registry) Info(id Block) (BlockInfo, bool) {
	return r.blocks[id], r.known[id]
}

// Lookup finds a block by name.
func (r *Registry) Lookup(name string) (Block, error) {
	id, ok := r.names[name]
	if !ok {
		return Air, fmt.Errorf("%q: %w", name, ErrUnknownBlock)
	}
	return id, nil
}

func (r *Registry) Solid(id Block) bool {
	return r.blocks[id].Solid
}

func (r *Registry) Fluid(id Block) bool {
	return r.blocks[id].Fluid
}
