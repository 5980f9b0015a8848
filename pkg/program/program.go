// Package program defines the encoded-program container the assembler
// produces and the simulator loads, with gob persistence adapted from
// this codebase's checkpoint-file convention.
package program

import (
	"encoding/gob"
	"os"
)

// Program is a fully assembled PUC8a image: a code word stream ready to
// be fetched starting at word address 0, and the initial contents of
// data memory (memory-mapped I/O addresses are not part of this array —
// they are trapped by the simulator before ever reaching it).
type Program struct {
	Code []uint16
	Data []uint8
}

func init() {
	gob.Register(Program{})
}

// Save writes p to path using gob encoding.
func Save(path string, p *Program) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return gob.NewEncoder(f).Encode(p)
}

// Load reads a Program previously written by Save.
func Load(path string) (*Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var p Program
	if err := gob.NewDecoder(f).Decode(&p); err != nil {
		return nil, err
	}
	return &p, nil
}
