/*
 * Copyright 2024 retrocc Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package mir

import (
    `fmt`
    `strings`
)

// Block is a basic block: a straight-line instruction list whose trailing
// terminator instructions determine the control-flow successors.
type Block struct {
    Id  int
    Ins []*Instr
}

// FirstTerminator is the index of the first instruction of the trailing
// terminator sequence, or len(Ins) when the block has no terminators.
func (self *Block) FirstTerminator() int {
    i := len(self.Ins)
    for i > 0 && self.Ins[i - 1].Op.IsTerminator() {
        i--
    }
    return i
}

func (self *Block) String() string {
    buf := []string { fmt.Sprintf("bb_%d:", self.Id) }
    for _, p := range self.Ins {
        buf = append(buf, "    " + p.String())
    }
    return strings.Join(buf, "\n")
}

// FrameSlot is an abstract stack location; its final address is assigned by
// the frame-layout collaborator, not by this layer.
type FrameSlot struct {
    Size  int
    Align int
}

// Func is a single function under code generation: its blocks, frame slots
// and the class table for virtual registers.
type Func struct {
    Name     string
    Blocks   []*Block
    Slots    []FrameSlot
    Recurses bool // selects soft-stack addressing for spills
    NoVRegs  bool // set once allocation ran; cleared when a component makes a new vreg
    vregs    []Class
}

func NewFunc(name string) *Func {
    return &Func { Name: name }
}

// CreateBlock appends a new empty basic block.
func (self *Func) CreateBlock() *Block {
    bb := &Block { Id: len(self.Blocks) }
    self.Blocks = append(self.Blocks, bb)
    return bb
}

// InsertBlockAfter creates a new block laid out immediately after bb.
func (self *Func) InsertBlockAfter(bb *Block) *Block {
    nb := &Block { Id: len(self.Blocks) }
    for i, p := range self.Blocks {
        if p == bb {
            self.Blocks = append(self.Blocks[:i + 1], append([]*Block { nb }, self.Blocks[i + 1:]...)...)
            return nb
        }
    }
    panic("mir: block does not belong to function: " + fmt.Sprint(bb.Id))
}

// CreateFrameSlot registers a new abstract stack slot and returns its index.
func (self *Func) CreateFrameSlot(size int, align int) int {
    self.Slots = append(self.Slots, FrameSlot { Size: size, Align: align })
    return len(self.Slots) - 1
}

// CreateVReg allocates a fresh virtual register of class c. Creating one
// takes the function out of the no-virtual-registers state.
func (self *Func) CreateVReg(c Class) Reg {
    self.NoVRegs = false
    self.vregs = append(self.vregs, c)
    return VirtualReg(len(self.vregs) - 1)
}

// ClassOf is the allocated class of a virtual register.
func (self *Func) ClassOf(r Reg) Class {
    if !r.IsVirtual() {
        panic("mir: ClassOf on a physical register: " + r.String())
    } else {
        return self.vregs[r.Index()]
    }
}

// SetClass rewrites the class of a virtual register. The caller must have
// verified the new class against every use of the register.
func (self *Func) SetClass(r Reg, c Class) {
    if !r.IsVirtual() {
        panic("mir: SetClass on a physical register: " + r.String())
    } else {
        self.vregs[r.Index()] = c
    }
}

// NumVRegs is the number of virtual registers created so far.
func (self *Func) NumVRegs() int {
    return len(self.vregs)
}

// OperandRef locates one register operand inside the function.
type OperandRef struct {
    Instr *Instr
    Idx   int
}

// RegRefs collects every operand of every instruction that references
// register r.
func (self *Func) RegRefs(r Reg) (refs []OperandRef) {
    for _, bb := range self.Blocks {
        for _, p := range bb.Ins {
            for i, v := range p.Args {
                if v.IsReg() && v.Reg == r {
                    refs = append(refs, OperandRef { Instr: p, Idx: i })
                }
            }
        }
    }
    return
}

func (self *Func) String() string {
    buf := make([]string, 0, len(self.Blocks) + 1)
    buf = append(buf, fmt.Sprintf("func %s {", self.Name))
    for _, bb := range self.Blocks {
        buf = append(buf, bb.String())
    }
    buf = append(buf, "}")
    return strings.Join(buf, "\n")
}

// Builder is an insertion cursor into a block's instruction list. Emitted
// instructions are inserted at the point and the point advances past them,
// never reordering existing instructions.
type Builder struct {
    fn *Func
    bb *Block
    pt int
}

// At places an insertion point before instruction index i of bb.
func (self *Func) At(bb *Block, i int) *Builder {
    if i < 0 || i > len(bb.Ins) {
        panic(fmt.Sprintf("mir: insertion point out of range: %d", i))
    } else {
        return &Builder { fn: self, bb: bb, pt: i }
    }
}

// AtEnd places an insertion point at the end of bb.
func (self *Func) AtEnd(bb *Block) *Builder {
    return &Builder { fn: self, bb: bb, pt: len(bb.Ins) }
}

func (self *Builder) Func() *Func   { return self.fn }
func (self *Builder) Block() *Block { return self.bb }
func (self *Builder) Point() int    { return self.pt }

// Emit inserts a new instruction at the point and advances past it.
func (self *Builder) Emit(op Op, args ...Operand) *Instr {
    p := NewInstr(op, args...)
    self.Insert(p)
    return p
}

// Insert places an existing instruction at the point and advances past it.
func (self *Builder) Insert(p *Instr) {
    self.bb.Ins = append(self.bb.Ins, nil)
    copy(self.bb.Ins[self.pt + 1:], self.bb.Ins[self.pt:])
    self.bb.Ins[self.pt] = p
    self.pt++
}

// Last is the most recently inserted instruction, the one just before the
// point, or nil at the beginning of the block.
func (self *Builder) Last() *Instr {
    if self.pt == 0 {
        return nil
    } else {
        return self.bb.Ins[self.pt - 1]
    }
}

// Peek is the existing instruction at the point, or nil at the end of the
// block.
func (self *Builder) Peek() *Instr {
    if self.pt >= len(self.bb.Ins) {
        return nil
    } else {
        return self.bb.Ins[self.pt]
    }
}
